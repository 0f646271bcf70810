package connection

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/database"
	"github.com/google/uuid"
)

// Sentinel repository-level errors, translated to contracts.Error by Service.
var ErrConnectionNotFound = errors.New("saved connection not found")

// Repository defines the control-plane persistence ConnectionManager needs
// for SavedConnections. ConnectionManager is the only component with
// access to it.
type Repository interface {
	Create(ctx context.Context, conn *SavedConnection) error
	Get(ctx context.Context, id uuid.UUID) (*SavedConnection, error)
	GetActiveByName(ctx context.Context, userID uuid.UUID, name string) (*SavedConnection, error)
	ListActive(ctx context.Context, userID uuid.UUID) ([]*SavedConnection, error)
	TouchLastUsed(ctx context.Context, id uuid.UUID, when time.Time) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// PostgresRepository implements Repository against the control-plane
// saved_connections table.
type PostgresRepository struct {
	db database.DatabaseInterface
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db database.DatabaseInterface) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, conn *SavedConnection) error {
	props, err := json.Marshal(conn.AdditionalProperties)
	if err != nil {
		return fmt.Errorf("failed to marshal additional properties: %v", err)
	}

	query := `
		INSERT INTO saved_connections
			(id, user_id, connection_name, database_kind, host, port, database_name,
			 username, password_encrypted, additional_properties, is_active, created_at, last_used_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`

	_, err = r.db.Exec(ctx, query,
		conn.ID, conn.UserID, conn.ConnectionName, string(conn.Kind), conn.Host, conn.Port,
		conn.DatabaseName, conn.Username, conn.EncryptedPassword, props, conn.IsActive,
		conn.CreatedAt, conn.LastUsedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create saved connection: %v", err)
	}
	return nil
}

const savedConnectionSelectColumns = `
	id, user_id, connection_name, database_kind, host, port, database_name,
	username, password_encrypted, additional_properties, is_active, created_at, last_used_at`

// rowScanner abstracts pgx.Row's Scan so scanSavedConnection works for any query.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSavedConnection(row rowScanner) (*SavedConnection, error) {
	var c SavedConnection
	var kind string
	var props []byte
	var lastUsedAt sql.NullTime

	err := row.Scan(
		&c.ID, &c.UserID, &c.ConnectionName, &kind, &c.Host, &c.Port, &c.DatabaseName,
		&c.Username, &c.EncryptedPassword, &props, &c.IsActive, &c.CreatedAt, &lastUsedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Kind = DatabaseKind(kind)
	if lastUsedAt.Valid {
		t := lastUsedAt.Time
		c.LastUsedAt = &t
	}
	c.AdditionalProperties = map[string]string{}
	if len(props) > 0 {
		if err := json.Unmarshal(props, &c.AdditionalProperties); err != nil {
			return nil, fmt.Errorf("failed to unmarshal additional properties: %v", err)
		}
	}
	return &c, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (*SavedConnection, error) {
	row := r.db.QueryRow(ctx, "SELECT "+savedConnectionSelectColumns+" FROM saved_connections WHERE id = $1", id)
	c, err := scanSavedConnection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to get saved connection: %v", err)
	}
	return c, nil
}

func (r *PostgresRepository) GetActiveByName(ctx context.Context, userID uuid.UUID, name string) (*SavedConnection, error) {
	row := r.db.QueryRow(ctx,
		"SELECT "+savedConnectionSelectColumns+" FROM saved_connections WHERE user_id = $1 AND connection_name = $2 AND is_active = true",
		userID, name)
	c, err := scanSavedConnection(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrConnectionNotFound
		}
		return nil, fmt.Errorf("failed to get saved connection by name: %v", err)
	}
	return c, nil
}

func (r *PostgresRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]*SavedConnection, error) {
	rows, err := r.db.Query(ctx,
		"SELECT "+savedConnectionSelectColumns+" FROM saved_connections WHERE user_id = $1 AND is_active = true ORDER BY created_at ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved connections: %v", err)
	}
	defer rows.Close()

	var out []*SavedConnection
	for rows.Next() {
		c, err := scanSavedConnection(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan saved connection: %v", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate saved connections: %v", err)
	}
	return out, nil
}

func (r *PostgresRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, when time.Time) error {
	_, err := r.db.Exec(ctx, "UPDATE saved_connections SET last_used_at = $1 WHERE id = $2", when, id)
	if err != nil {
		return fmt.Errorf("failed to touch last_used_at: %v", err)
	}
	return nil
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, "UPDATE saved_connections SET is_active = false WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to deactivate saved connection: %v", err)
	}
	return nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.Exec(ctx, "DELETE FROM saved_connections WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete saved connection: %v", err)
	}
	return nil
}
