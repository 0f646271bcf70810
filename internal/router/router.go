package router

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/event"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/gin-gonic/gin"
)

// Router is the Router component: a thin Gin-backed translation layer over
// AuthManager, ConnectionManager, SchemaIngestor and Orchestrator. It holds
// no business state of its own.
type Router struct {
	auth         AuthManager
	connections  ConnectionManager
	schema       SchemaIngestor
	orchestrator Orchestrator
	events       EventPublisher
	engine       *gin.Engine
	server       *http.Server
	logger       *logging.Logger
}

// Config bounds the listener this Router serves on.
type Config struct {
	Address      string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	Debug        bool
	// RateLimitPerSecond and RateLimitBurst configure the per-client token
	// bucket applied to every request. RateLimitPerSecond<=0 disables
	// rate limiting entirely.
	RateLimitPerSecond float64
	RateLimitBurst     int
}

// New wires a Router over its four collaborators and registers every route.
// publisher may be nil, in which case event publication is a no-op.
func New(cfg Config, authMgr AuthManager, connections ConnectionManager, schemaIngestor SchemaIngestor, orch Orchestrator, publisher EventPublisher, logger *logging.Logger) *Router {
	if logger == nil {
		logger = logging.NewLoggerWithName("router")
	}
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Logger(), gin.Recovery(), corsMiddleware(), securityMiddleware(), jwtAuthMiddleware(authMgr))
	if cfg.RateLimitPerSecond > 0 {
		engine.Use(rateLimitMiddleware(NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)))
	}

	r := &Router{
		auth:         authMgr,
		connections:  connections,
		schema:       schemaIngestor,
		orchestrator: orch,
		events:       publisher,
		engine:       engine,
		logger:       logger,
	}
	r.registerRoutes()

	r.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Address, cfg.Port),
		Handler:      engine,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return r
}

// Start serves until the process is asked to stop.
func (r *Router) Start() error {
	r.logger.Info("router listening on %s", r.server.Addr)
	err := r.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully drains in-flight requests.
func (r *Router) Shutdown(ctx context.Context) error {
	return r.server.Shutdown(ctx)
}

func (r *Router) registerRoutes() {
	r.engine.GET("/health", r.health)

	authGroup := r.engine.Group("/auth")
	{
		authGroup.POST("/register", r.register)
		authGroup.POST("/login", r.login)
		authGroup.POST("/logout", r.logout)
		authGroup.POST("/change-password", r.changePassword)
	}

	db := r.engine.Group("/database")
	{
		db.POST("/connect", r.connect)
		db.POST("/connect-saved", r.connectSaved)
		db.GET("/connections", r.listConnections)
		db.POST("/test", r.testConnection)
		db.DELETE("/connect/:id", r.closeConnection)
		db.DELETE("/saved/:id", r.deleteSavedConnection)
		db.GET("/connect/:id", r.connectionStatus)
	}

	r.engine.POST("/chat/database", r.chat)
}

func (r *Router) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "timestamp": time.Now().UTC()})
}

// publish fires an audit event in the background if an EventPublisher is
// configured. A request never fails because the event couldn't be delivered.
func (r *Router) publish(evt event.Event) {
	if r.events == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), askTimeout)
		defer cancel()
		if err := r.events.Publish(ctx, evt); err != nil {
			r.logger.Warn("event publish failed for %s: %v", evt.Type, err)
		}
	}()
}
