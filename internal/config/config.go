package config

import (
	"encoding/base64"
	"fmt"
	"os"

	"github.com/spf13/viper"
)

// insecureEncryptionKeyPlaceholder is the zero-valued 32-byte key shipped
// as connection.encryption_key's default, base64-encoded.
const insecureEncryptionKeyPlaceholder = "AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA=" // 32 zero bytes

// ServerConfig represents server configuration
type ServerConfig struct {
	Address         string  `mapstructure:"address"`
	Port            int     `mapstructure:"port"`
	ReadTimeout     int     `mapstructure:"read_timeout"`
	WriteTimeout    int     `mapstructure:"write_timeout"`
	IdleTimeout     int     `mapstructure:"idle_timeout"`
	ShutdownTimeout int     `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64 `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int     `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig represents the control-plane Postgres connection.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// RedisConfig represents Redis configuration
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
	// SessionTTL bounds how long a cached session entry survives in Redis
	// before the next ValidateSession call falls back to Postgres.
	SessionTTL int `mapstructure:"session_ttl"`
}

// AuthConfig represents authentication configuration
type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	TokenExpiry    int    `mapstructure:"token_expiry"`
	SessionExpiry  int    `mapstructure:"session_expiry"`
	BcryptCost     int    `mapstructure:"bcrypt_cost"`
	MaxLoginTries  int    `mapstructure:"max_login_tries"`
	LockoutSeconds int    `mapstructure:"lockout_seconds"`
}

// ConnectionConfig configures ConnectionManager's saved-connection
// password encryption.
type ConnectionConfig struct {
	// EncryptionKey is a base64-encoded 32-byte NaCl secretbox key.
	EncryptionKey string `mapstructure:"encryption_key"`
}

// LLMProviderConfig configures one named LanguageModel adapter.
type LLMProviderConfig struct {
	Kind        string  `mapstructure:"kind"` // "anthropic", "bedrock", "azure", "gemini" or "openrouter"
	APIKey      string  `mapstructure:"api_key"`
	Model       string  `mapstructure:"model"`
	Region      string  `mapstructure:"region"`
	Endpoint    string  `mapstructure:"endpoint"`
	MaxTokens   int     `mapstructure:"max_tokens"`
	Temperature float64 `mapstructure:"temperature"`
}

// LLMConfig represents LLM configuration: a classifier model and a
// synthesizer model, each independently selectable.
type LLMConfig struct {
	Classifier  LLMProviderConfig `mapstructure:"classifier"`
	Synthesizer LLMProviderConfig `mapstructure:"synthesizer"`
}

// ProvidersConfig groups external collaborators that aren't the
// relational control-plane store.
type ProvidersConfig struct {
	Embedding   EmbeddingConfig   `mapstructure:"embedding"`
	VectorStore VectorStoreConfig `mapstructure:"vector_store"`
	GraphStore  GraphStoreConfig  `mapstructure:"graph_store"`
}

// EmbeddingConfig configures the EmbeddingModel collaborator used by
// SchemaIngestor.
type EmbeddingConfig struct {
	Kind      string `mapstructure:"kind"`
	APIKey    string `mapstructure:"api_key"`
	Model     string `mapstructure:"model"`
	Region    string `mapstructure:"region"`
	Dimension int    `mapstructure:"dimension"`
}

// VectorStoreConfig configures the Pinecone-backed VectorIndex collaborator.
type VectorStoreConfig struct {
	APIKey     string `mapstructure:"api_key"`
	IndexName  string `mapstructure:"index_name"`
	Namespace  string `mapstructure:"namespace"`
	CloudRegio string `mapstructure:"cloud_region"`
}

// GraphStoreConfig configures the in-process GraphIndex collaborator.
type GraphStoreConfig struct {
	MaxTraversalDepth int `mapstructure:"max_traversal_depth"`
}

// ExecutorConfig controls QueryExecutor's safety policy.
type ExecutorConfig struct {
	// WarnOnly disables hard-blocking of denylisted statements and
	// instead logs a warning. Defaults to false: unsafe statements are
	// rejected unless an operator explicitly opts into warn-only mode.
	WarnOnly    bool     `mapstructure:"warn_only"`
	Denylist    []string `mapstructure:"denylist"`
	MaxRows     int      `mapstructure:"max_rows"`
	TimeoutSecs int      `mapstructure:"timeout_secs"`
}

// AdminBootstrapConfig describes the one operator account created on
// startup if no ADMIN user exists yet.
type AdminBootstrapConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Username string `mapstructure:"username"`
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// Config represents the application configuration
type Config struct {
	Version        string               `mapstructure:"version"`
	Server         ServerConfig         `mapstructure:"server"`
	Database       DatabaseConfig       `mapstructure:"database"`
	Redis          RedisConfig          `mapstructure:"redis"`
	Auth           AuthConfig           `mapstructure:"auth"`
	Connection     ConnectionConfig     `mapstructure:"connection"`
	LLM            LLMConfig            `mapstructure:"llm"`
	Providers      ProvidersConfig      `mapstructure:"providers"`
	Executor       ExecutorConfig       `mapstructure:"executor"`
	AdminBootstrap AdminBootstrapConfig `mapstructure:"admin_bootstrap"`
	Logging        LoggingConfig        `mapstructure:"logging"`
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	setDefaults()

	configPath := findConfigFile()
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./config/")
		viper.AddConfigPath("./")
		viper.AddConfigPath("/etc/nldbexplorer/")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("NLDB")

	viper.BindEnv("auth.jwt_secret", "NLDB_AUTH_JWT_SECRET")
	viper.BindEnv("database.password", "NLDB_DATABASE_PASSWORD")
	viper.BindEnv("database.host", "NLDB_DATABASE_HOST")
	viper.BindEnv("database.port", "NLDB_DATABASE_PORT")
	viper.BindEnv("database.user", "NLDB_DATABASE_USER")
	viper.BindEnv("database.dbname", "NLDB_DATABASE_NAME")
	viper.BindEnv("redis.password", "NLDB_REDIS_PASSWORD")
	viper.BindEnv("redis.host", "NLDB_REDIS_HOST")
	viper.BindEnv("redis.port", "NLDB_REDIS_PORT")
	viper.BindEnv("connection.encryption_key", "NLDB_CONNECTION_ENCRYPTION_KEY")
	viper.BindEnv("providers.vector_store.api_key", "NLDB_PINECONE_API_KEY")
	viper.BindEnv("llm.classifier.api_key", "NLDB_CLASSIFIER_API_KEY")
	viper.BindEnv("llm.synthesizer.api_key", "NLDB_SYNTHESIZER_API_KEY")
	viper.BindEnv("admin_bootstrap.password", "NLDB_ADMIN_PASSWORD")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
		fmt.Println("no config file found, using defaults and environment variables")
	} else {
		fmt.Printf("using config file: %s\n", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %v", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %v", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("version", "1.0.0")

	viper.SetDefault("server.address", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.read_timeout", 30)
	viper.SetDefault("server.write_timeout", 30)
	viper.SetDefault("server.idle_timeout", 300)
	viper.SetDefault("server.shutdown_timeout", 30)
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("server.rate_limit_burst", 40)

	viper.SetDefault("database.host", "localhost")
	viper.SetDefault("database.port", 5432)
	viper.SetDefault("database.user", "nldbexplorer")
	viper.SetDefault("database.dbname", "nldbexplorer")
	viper.SetDefault("database.sslmode", "disable")

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.database", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.session_ttl", 900)

	viper.SetDefault("auth.jwt_secret", "default-secret-change-in-production")
	viper.SetDefault("auth.token_expiry", 86400)
	viper.SetDefault("auth.session_expiry", 604800)
	viper.SetDefault("auth.bcrypt_cost", 12)
	viper.SetDefault("auth.max_login_tries", 5)
	viper.SetDefault("auth.lockout_seconds", 900)

	viper.SetDefault("llm.classifier.kind", "anthropic")
	viper.SetDefault("llm.classifier.max_tokens", 256)
	viper.SetDefault("llm.classifier.temperature", 0.0)
	viper.SetDefault("llm.synthesizer.kind", "bedrock")
	viper.SetDefault("llm.synthesizer.max_tokens", 1024)
	viper.SetDefault("llm.synthesizer.temperature", 0.1)

	viper.SetDefault("providers.embedding.kind", "bedrock")
	viper.SetDefault("providers.embedding.model", "amazon.titan-embed-text-v2:0")
	viper.SetDefault("providers.embedding.region", "us-east-1")
	viper.SetDefault("providers.embedding.dimension", 1536)
	viper.SetDefault("providers.vector_store.index_name", "nldbexplorer-schema")
	viper.SetDefault("providers.graph_store.max_traversal_depth", 3)

	viper.SetDefault("executor.warn_only", false)
	viper.SetDefault("executor.max_rows", 500)
	viper.SetDefault("executor.timeout_secs", 10)
	viper.SetDefault("executor.denylist", []string{
		"DROP", "DELETE", "UPDATE", "INSERT", "ALTER", "TRUNCATE", "GRANT", "REVOKE", "CREATE",
	})

	// Insecure placeholder; validateConfig rejects it so operators must set
	// NLDB_CONNECTION_ENCRYPTION_KEY before saved connections can be stored.
	viper.SetDefault("connection.encryption_key", insecureEncryptionKeyPlaceholder)

	viper.SetDefault("admin_bootstrap.enabled", true)
	viper.SetDefault("admin_bootstrap.username", "admin")

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")
	viper.SetDefault("logging.output", "stdout")
}

func findConfigFile() string {
	if configPath := os.Getenv("NLDB_CONFIG"); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	locations := []string{
		"./config/config.yaml",
		"./config.yaml",
		"/etc/nldbexplorer/config.yaml",
	}

	for _, location := range locations {
		expanded := os.ExpandEnv(location)
		if _, err := os.Stat(expanded); err == nil {
			return expanded
		}
	}

	return ""
}

func validateConfig(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535")
	}

	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.DBName == "" {
		return fmt.Errorf("database name is required")
	}

	if cfg.Redis.Enabled {
		if cfg.Redis.Host == "" {
			return fmt.Errorf("redis host is required when redis is enabled")
		}
		if cfg.Redis.Port < 1 || cfg.Redis.Port > 65535 {
			return fmt.Errorf("redis port must be between 1 and 65535")
		}
	}

	if cfg.Auth.JWTSecret == "" || cfg.Auth.JWTSecret == "default-secret-change-in-production" {
		return fmt.Errorf("JWT secret must be set and not use default value")
	}
	if cfg.Auth.BcryptCost < 4 || cfg.Auth.BcryptCost > 31 {
		return fmt.Errorf("auth bcrypt cost must be between 4 and 31")
	}

	if cfg.Connection.EncryptionKey == insecureEncryptionKeyPlaceholder {
		return fmt.Errorf("connection encryption_key must be set and not use the default value")
	}
	if key, err := base64.StdEncoding.DecodeString(cfg.Connection.EncryptionKey); err != nil || len(key) != 32 {
		return fmt.Errorf("connection encryption_key must be a base64-encoded 32-byte key")
	}

	if cfg.Executor.MaxRows < 1 {
		return fmt.Errorf("executor max rows must be positive")
	}

	if cfg.AdminBootstrap.Enabled {
		if cfg.AdminBootstrap.Username == "" {
			return fmt.Errorf("admin bootstrap username is required when enabled")
		}
		if cfg.AdminBootstrap.Password == "" {
			return fmt.Errorf("admin bootstrap password is required when enabled")
		}
	}

	return nil
}
