package connection

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DatabaseKind is a supported backing store for a SavedConnection.
type DatabaseKind string

const (
	KindPostgreSQL DatabaseKind = "POSTGRESQL"
	KindMySQL      DatabaseKind = "MYSQL"
	KindMongoDB    DatabaseKind = "MONGODB"
)

// supported reports whether kind has a registered LiveConnectionFactory strategy.
func (k DatabaseKind) supported() bool {
	switch k {
	case KindPostgreSQL, KindMySQL, KindMongoDB:
		return true
	default:
		return false
	}
}

// SavedConnection is the persisted, user-owned metadata for a database
// connection. Password is stored encrypted at rest; PostgresRepository
// never returns a SavedConnection with the plaintext password populated.
type SavedConnection struct {
	ID                   uuid.UUID
	UserID               uuid.UUID
	ConnectionName       string
	Kind                 DatabaseKind
	Host                 string
	Port                 int
	DatabaseName         string
	Username             string
	EncryptedPassword    []byte
	AdditionalProperties map[string]string
	IsActive             bool
	CreatedAt            time.Time
	LastUsedAt           *time.Time
}

// EstablishRequest carries everything establish needs to open and persist
// a new connection.
type EstablishRequest struct {
	UserID               uuid.UUID
	ConnectionName       string
	Kind                 DatabaseKind
	Host                 string
	Port                 int
	DatabaseName         string
	Username             string
	Password             string
	AdditionalProperties map[string]string
}

// dialTarget is what a LiveConnectionFactory strategy needs to open a
// driver handle; it never carries persisted IDs, only dial parameters.
type dialTarget struct {
	kind                 DatabaseKind
	host                 string
	port                 int
	databaseName         string
	username             string
	password             string
	additionalProperties map[string]string
}

// LiveConnection is the in-memory handle ConnectionManager keeps for an
// open driver connection. It is never shared outside the component; other
// components ask QueryExecutor, which asks ConnectionManager.
type LiveConnection struct {
	ConnectionID uuid.UUID
	UserID       uuid.UUID
	Kind         DatabaseKind
	handle       driverHandle
	openedAt     time.Time
}

// Test pings the underlying driver handle.
func (c *LiveConnection) Test(ctx context.Context) error {
	return c.handle.Ping(ctx)
}

// Close closes the underlying driver handle. Safe to call once; a second
// call is the caller's bug, not this type's concern.
func (c *LiveConnection) Close() error {
	return c.handle.Close()
}

// IsActive reports whether the handle still answers a ping.
func (c *LiveConnection) IsActive(ctx context.Context) bool {
	return c.handle.Ping(ctx) == nil
}

// driverHandle is the narrow capability a LiveConnectionFactory strategy
// hands back: open, ping, close. A handle that can also run queries
// additionally implements queryableHandle (factory.go); Manager type-asserts
// for it when QueryExecutor asks for Query.
type driverHandle interface {
	Ping(ctx context.Context) error
	Close() error
}

// Status is the externally visible lifecycle state of a connection.
type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

// IndexPurger is the narrow capability ConnectionManager needs from
// VectorIndex and GraphIndex to cascade a hard delete: purge every row
// keyed by connectionID. A nil IndexPurger is treated as already-empty,
// so ConnectionManager can run standalone in tests.
type IndexPurger interface {
	PurgeConnection(ctx context.Context, connectionID uuid.UUID) error
}
