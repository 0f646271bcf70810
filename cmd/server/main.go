package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/auth"
	"github.com/HelixDevelopment/nldbexplorer/internal/classifier"
	"github.com/HelixDevelopment/nldbexplorer/internal/config"
	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/database"
	"github.com/HelixDevelopment/nldbexplorer/internal/event"
	"github.com/HelixDevelopment/nldbexplorer/internal/executor"
	"github.com/HelixDevelopment/nldbexplorer/internal/graphindex"
	"github.com/HelixDevelopment/nldbexplorer/internal/llm"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/HelixDevelopment/nldbexplorer/internal/orchestrator"
	"github.com/HelixDevelopment/nldbexplorer/internal/redis"
	"github.com/HelixDevelopment/nldbexplorer/internal/router"
	"github.com/HelixDevelopment/nldbexplorer/internal/schema"
	"github.com/HelixDevelopment/nldbexplorer/internal/synthesizer"
	"github.com/HelixDevelopment/nldbexplorer/internal/vectorindex"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
	gitCommit = "unknown"
)

func main() {
	fmt.Printf("Starting nldbexplorer server v%s\n", version)
	fmt.Printf("Build: %s, commit: %s\n", buildTime, gitCommit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := logging.NewLoggerWithName("main")

	db, err := database.New(database.Config{
		Host: cfg.Database.Host, Port: cfg.Database.Port, User: cfg.Database.User,
		Password: cfg.Database.Password, DBName: cfg.Database.DBName, SSLMode: cfg.Database.SSLMode,
	})
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer db.Close()

	if err := db.InitializeSchema(); err != nil {
		log.Fatalf("failed to initialize database schema: %v", err)
	}

	rds, err := redis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatalf("failed to initialize redis: %v", err)
	}
	defer rds.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events := event.GetGlobalBus()
	events.Subscribe(event.EventAuthFailure, logEventHandler(logger))
	events.Subscribe(event.EventConnectionFailed, logEventHandler(logger))
	events.Subscribe(event.EventSchemaIngestFailed, logEventHandler(logger))
	events.Subscribe(event.EventQueryBlocked, logEventHandler(logger))
	events.Subscribe(event.EventQueryFailed, logEventHandler(logger))

	authMgr := buildAuth(cfg, db, rds)
	vectorMgr := buildVectorIndex(ctx, cfg)
	graphMgr := buildGraphIndex()
	connMgr := buildConnections(cfg, db, vectorMgr, graphMgr)

	embedder := buildEmbedder(ctx, cfg)
	classifierMgr := buildClassifier(cfg)
	synthesizerMgr := buildSynthesizer(cfg)
	executorMgr := buildExecutor(cfg, connMgr)
	schemaMgr := buildSchema(executorMgr, embedder, vectorMgr, graphMgr)
	orchestratorMgr := buildOrchestrator(vectorMgr, graphMgr, embedder, classifierMgr, synthesizerMgr, executorMgr, connMgr)

	for _, runnable := range []interface{ Run(context.Context) }{
		authMgr, connMgr, vectorMgr, graphMgr, schemaMgr, classifierMgr, synthesizerMgr, executorMgr, orchestratorMgr,
	} {
		go runnable.Run(ctx)
	}

	if cfg.AdminBootstrap.Enabled {
		bootstrapCtx, bootstrapCancel := context.WithTimeout(ctx, 10*time.Second)
		if err := authMgr.Bootstrap(bootstrapCtx, cfg.AdminBootstrap.Username, cfg.AdminBootstrap.Email, cfg.AdminBootstrap.Password); err != nil {
			logger.Warn("admin bootstrap failed: %v", err)
		}
		bootstrapCancel()
	}

	rtr := router.New(router.Config{
		Address:            cfg.Server.Address,
		Port:               cfg.Server.Port,
		ReadTimeout:        time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:       time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:        time.Duration(cfg.Server.IdleTimeout) * time.Second,
		RateLimitPerSecond: cfg.Server.RateLimitRPS,
		RateLimitBurst:     cfg.Server.RateLimitBurst,
	}, authMgr, connMgr, schemaMgr, orchestratorMgr, events, logging.NewLoggerWithName("router"))

	events.Publish(ctx, event.Event{Type: event.EventSystemStartup, Source: "main", Severity: event.SeverityInfo})

	go func() {
		log.Printf("listening on %s:%d", cfg.Server.Address, cfg.Server.Port)
		if err := rtr.Start(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")
	events.PublishAndWait(context.Background(), event.Event{Type: event.EventSystemShutdown, Source: "main", Severity: event.SeverityInfo})
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer shutdownCancel()
	if err := rtr.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Println("shutdown complete")
}

// logEventHandler subscribes a simple structured-log sink to the global
// event bus for events worth an operator's attention.
func logEventHandler(logger *logging.Logger) event.EventHandler {
	return func(ctx context.Context, evt event.Event) error {
		logger.Warn("event %s user=%s connection=%s", evt.Type, evt.UserID, evt.ConnectionID)
		return nil
	}
}

func buildAuth(cfg *config.Config, db *database.Database, rds *redis.Client) *auth.Manager {
	repo := auth.NewPostgresRepository(db)
	authCfg := auth.Config{
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenExpiry:   time.Duration(cfg.Auth.TokenExpiry) * time.Second,
		SessionExpiry: time.Duration(cfg.Auth.SessionExpiry) * time.Second,
		BcryptCost:    cfg.Auth.BcryptCost,
		LockoutPeriod: time.Duration(cfg.Auth.LockoutSeconds) * time.Second,
		MaxLoginTries: cfg.Auth.MaxLoginTries,
	}
	cacheTTL := time.Duration(cfg.Redis.SessionTTL) * time.Second
	logger := logging.NewLoggerWithName("auth")
	if !cfg.Redis.Enabled {
		// Passing a nil *redis.Client through NewManager's interface
		// parameter here would wrap a non-nil-but-empty interface value
		// instead of a true nil, defeating newCachedRepository's nil check.
		return auth.NewManager(authCfg, repo, nil, cacheTTL, logger)
	}
	return auth.NewManager(authCfg, repo, rds, cacheTTL, logger)
}

func buildConnections(cfg *config.Config, db *database.Database, vectorMgr *vectorindex.Manager, graphMgr *graphindex.Manager) *connection.Manager {
	repo := connection.NewPostgresRepository(db)
	factory := connection.NewLiveConnectionFactory()
	keyBytes, err := base64.StdEncoding.DecodeString(cfg.Connection.EncryptionKey)
	if err != nil {
		log.Fatalf("invalid connection encryption key: %v", err)
	}
	cipher, err := connection.NewPasswordCipher(keyBytes)
	if err != nil {
		log.Fatalf("failed to build password cipher: %v", err)
	}
	return connection.NewManager(repo, factory, cipher, vectorMgr, graphMgr, logging.NewLoggerWithName("connection"))
}

func buildVectorIndex(ctx context.Context, cfg *config.Config) *vectorindex.Manager {
	store, err := vectorindex.NewPineconeStore(ctx, vectorindex.PineconeConfig{
		APIKey:    cfg.Providers.VectorStore.APIKey,
		IndexName: cfg.Providers.VectorStore.IndexName,
		Namespace: cfg.Providers.VectorStore.Namespace,
	})
	if err != nil {
		log.Fatalf("failed to initialize vector store: %v", err)
	}
	return vectorindex.NewManager(store, cfg.Providers.Embedding.Dimension, logging.NewLoggerWithName("vectorindex"))
}

func buildGraphIndex() *graphindex.Manager {
	store := graphindex.NewInMemoryGraphStore()
	return graphindex.NewManager(store, logging.NewLoggerWithName("graphindex"))
}

func buildEmbedder(ctx context.Context, cfg *config.Config) contracts.EmbeddingModel {
	embedder, err := llm.NewBedrockEmbedder(ctx, cfg.Providers.Embedding.Model, cfg.Providers.Embedding.Region, cfg.Providers.Embedding.Dimension)
	if err != nil {
		log.Fatalf("failed to initialize embedding model: %v", err)
	}
	return embedder
}

// buildLanguageModel resolves one LLMProviderConfig entry to a concrete
// llm.Provider via the shared ProviderFactory, so picking a provider for
// the classifier or the synthesizer is a config-only decision: any of the
// five registered kinds can back either role.
func buildLanguageModel(entry config.LLMProviderConfig) contracts.LanguageModel {
	providerType := llm.ProviderType(entry.Kind)
	if providerType == "" {
		providerType = llm.ProviderTypeAnthropic
	}
	factory := llm.ProviderFactory{}
	provider, err := factory.CreateProvider(llm.ProviderConfigEntry{
		Type:     providerType,
		Endpoint: entry.Endpoint,
		APIKey:   entry.APIKey,
		Models:   []string{entry.Model},
		Enabled:  true,
		Parameters: map[string]interface{}{
			"region":   entry.Region,
			"endpoint": entry.Endpoint,
		},
	})
	if err != nil {
		log.Fatalf("failed to initialize %s provider: %v", entry.Kind, err)
	}
	return llm.NewLanguageModelAdapter(provider, entry.Model)
}

func buildClassifier(cfg *config.Config) *classifier.Manager {
	model := buildLanguageModel(cfg.LLM.Classifier)
	svc := classifier.NewService(model)
	return classifier.NewManager(svc, logging.NewLoggerWithName("classifier"))
}

func buildSynthesizer(cfg *config.Config) *synthesizer.Manager {
	model := buildLanguageModel(cfg.LLM.Synthesizer)
	svc := synthesizer.NewService(model)
	return synthesizer.NewManager(svc, logging.NewLoggerWithName("synthesizer"))
}

func buildExecutor(cfg *config.Config, connMgr *connection.Manager) *executor.Manager {
	svc := executor.NewService(connectionRunnerAdapter{connMgr}, cfg.Executor.Denylist, cfg.Executor.WarnOnly, logging.NewLoggerWithName("executor"))
	return executor.NewManager(svc, logging.NewLoggerWithName("executor-manager"))
}

func buildSchema(executorMgr *executor.Manager, embedder contracts.EmbeddingModel, vectorMgr *vectorindex.Manager, graphMgr *graphindex.Manager) *schema.Manager {
	svc := schema.NewService(queryRunnerAdapter{executorMgr}, embedder, vectorMgr, graphMgr, logging.NewLoggerWithName("schema"))
	return schema.NewManager(svc, logging.NewLoggerWithName("schema-manager"))
}

func buildOrchestrator(vectorMgr *vectorindex.Manager, graphMgr *graphindex.Manager, embedder contracts.EmbeddingModel, classifierMgr *classifier.Manager, synthesizerMgr *synthesizer.Manager, executorMgr *executor.Manager, connMgr *connection.Manager) *orchestrator.Manager {
	svc := orchestrator.NewService(classifierMgr, vectorMgr, graphMgr, embedder, synthesizerMgr, executorMgr, connMgr, logging.NewLoggerWithName("orchestrator"))
	return orchestrator.NewManager(svc, logging.NewLoggerWithName("orchestrator-manager"))
}
