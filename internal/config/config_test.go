package config

import "testing"

func validConfig() *Config {
	return &Config{
		Server:     ServerConfig{Port: 8080},
		Database:   DatabaseConfig{Host: "localhost", DBName: "nldbexplorer"},
		Redis:      RedisConfig{Enabled: true, Host: "localhost", Port: 6379},
		Auth:       AuthConfig{JWTSecret: "s3cret", BcryptCost: 12},
		Connection: ConnectionConfig{EncryptionKey: "3R9xZ2v0k6m1hQd8nF5sT7pL4cY0aW2eU9bX6jK1rG0="},
		Executor:   ExecutorConfig{MaxRows: 500},
		AdminBootstrap: AdminBootstrapConfig{
			Enabled:  true,
			Username: "admin",
			Password: "hunter2-hunter2",
		},
	}
}

func TestValidateConfig_Valid(t *testing.T) {
	if err := validateConfig(validConfig()); err != nil {
		t.Fatalf("expected valid config, got error: %v", err)
	}
}

func TestValidateConfig_RejectsBadPort(t *testing.T) {
	cfg := validConfig()
	cfg.Server.Port = 0
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for out-of-range port")
	}
}

func TestValidateConfig_RejectsMissingDatabaseName(t *testing.T) {
	cfg := validConfig()
	cfg.Database.DBName = ""
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for missing database name")
	}
}

func TestValidateConfig_RejectsDefaultJWTSecret(t *testing.T) {
	cfg := validConfig()
	cfg.Auth.JWTSecret = "default-secret-change-in-production"
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for default jwt secret")
	}
}

func TestValidateConfig_RejectsEnabledRedisWithoutHost(t *testing.T) {
	cfg := validConfig()
	cfg.Redis.Host = ""
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for redis enabled without host")
	}
}

func TestValidateConfig_RejectsAdminBootstrapWithoutPassword(t *testing.T) {
	cfg := validConfig()
	cfg.AdminBootstrap.Password = ""
	if err := validateConfig(cfg); err == nil {
		t.Fatal("expected error for admin bootstrap enabled without password")
	}
}

func TestValidateConfig_AllowsDisabledAdminBootstrapWithoutCredentials(t *testing.T) {
	cfg := validConfig()
	cfg.AdminBootstrap = AdminBootstrapConfig{Enabled: false}
	if err := validateConfig(cfg); err != nil {
		t.Fatalf("expected disabled admin bootstrap to skip validation, got: %v", err)
	}
}
