// Package router implements the Router: the external HTTP controller layer
// translating REST requests into calls against AuthManager, ConnectionManager,
// SchemaIngestor and Orchestrator, and their results back into HTTP responses.
// It is the only place an ErrorKind is translated into a status code.
package router

import (
	"context"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/auth"
	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/event"
	"github.com/HelixDevelopment/nldbexplorer/internal/schema"
	"github.com/google/uuid"
)

// AuthManager is the narrow slice of AuthManager this package depends on,
// satisfied structurally by auth.Manager.
type AuthManager interface {
	Register(ctx context.Context, username, email, password string) (*auth.User, error)
	Login(ctx context.Context, usernameOrEmail, password, userAgent, ip string) (*auth.User, *auth.Session, error)
	Logout(ctx context.Context, sessionID uuid.UUID) error
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error

	// GenerateJWT/VerifyJWT back the stateless, session-free auth path
	// used by jwtAuthMiddleware: a service-to-service caller presents a
	// bearer token instead of holding a session.
	GenerateJWT(user *auth.User) (string, error)
	VerifyJWT(token string) (uuid.UUID, error)
}

// ConnectionManager is the narrow slice of ConnectionManager this package
// depends on, satisfied structurally by connection.Manager.
type ConnectionManager interface {
	Establish(ctx context.Context, req connection.EstablishRequest) (uuid.UUID, error)
	ConnectSaved(ctx context.Context, connectionID, userID uuid.UUID) error
	ListSaved(ctx context.Context, userID uuid.UUID) ([]*connection.SavedConnection, error)
	Test(ctx context.Context, req connection.EstablishRequest) error
	Close(ctx context.Context, connectionID, userID uuid.UUID) error
	DeleteSaved(ctx context.Context, connectionID, userID uuid.UUID) error
	Status(ctx context.Context, connectionID, userID uuid.UUID) (connection.Status, error)
	Kind(ctx context.Context, connectionID, userID uuid.UUID) (connection.DatabaseKind, error)
}

// SchemaIngestor is the narrow slice of SchemaIngestor this package
// depends on, satisfied structurally by schema.Manager.
type SchemaIngestor interface {
	Ingest(ctx context.Context, connectionID, userID uuid.UUID, kind connection.DatabaseKind) (schema.IngestResult, error)
}

// Orchestrator is the narrow slice of Orchestrator this package depends
// on, satisfied structurally by orchestrator.Manager.
type Orchestrator interface {
	HandleTurn(ctx context.Context, turn *contracts.ConversationTurn) error
}

// EventPublisher is the narrow slice of EventBus this package depends on,
// satisfied structurally by *event.EventBus. Publishing is best-effort: the
// Router never fails a request because the audit trail couldn't be written.
type EventPublisher interface {
	Publish(ctx context.Context, evt event.Event) error
}

// askTimeout bounds every ask issued against a component from an HTTP
// handler; queryTimeout bounds the end-to-end /chat/database turn.
const (
	askTimeout   = 10 * time.Second
	queryTimeout = 30 * time.Second
)
