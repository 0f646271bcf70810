package auth

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/database"
	"github.com/google/uuid"
)

// Repository defines the control-plane persistence AuthService needs for
// Users and Sessions. AuthManager is the only component with access to it.
type Repository interface {
	CreateUser(ctx context.Context, user *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*User, error)
	UpdateUser(ctx context.Context, user *User) error
	CountUsersByRole(ctx context.Context, role Role) (int, error)

	CreateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id uuid.UUID) (*Session, error)
	UpdateSession(ctx context.Context, session *Session) error
	DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error)
}

// PostgresRepository implements Repository against the control-plane store.
type PostgresRepository struct {
	db database.DatabaseInterface
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(db database.DatabaseInterface) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, username, email, password_hash, salt, role, status, failed_attempts, locked_until, last_login_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.Exec(ctx, query,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Salt,
		string(user.Role), string(user.Status), user.FailedAttempts, user.LockedUntil,
		user.LastLoginAt, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %v", err)
	}
	return nil
}

const userSelectColumns = `id, username, email, password_hash, salt, role, status, failed_attempts, locked_until, last_login_at, created_at, updated_at`

func scanUser(row rowScanner) (*User, error) {
	var u User
	var role, status string
	var lockedUntil, lastLoginAt sql.NullTime

	err := row.Scan(
		&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Salt,
		&role, &status, &u.FailedAttempts, &lockedUntil, &lastLoginAt,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	u.Role = Role(role)
	u.Status = UserStatus(status)
	if lockedUntil.Valid {
		t := lockedUntil.Time
		u.LockedUntil = &t
	}
	if lastLoginAt.Valid {
		t := lastLoginAt.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

// rowScanner abstracts pgx.Row's Scan so scanUser works for any query.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (r *PostgresRepository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := r.db.QueryRow(ctx, "SELECT "+userSelectColumns+" FROM users WHERE username = $1", username)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %v", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := r.db.QueryRow(ctx, "SELECT "+userSelectColumns+" FROM users WHERE email = $1", email)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by email: %v", err)
	}
	return u, nil
}

func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	row := r.db.QueryRow(ctx, "SELECT "+userSelectColumns+" FROM users WHERE id = $1", id)
	u, err := scanUser(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %v", err)
	}
	return u, nil
}

func (r *PostgresRepository) UpdateUser(ctx context.Context, user *User) error {
	query := `
		UPDATE users SET
			password_hash = $1, salt = $2, role = $3, status = $4,
			failed_attempts = $5, locked_until = $6, last_login_at = $7, updated_at = $8
		WHERE id = $9`

	_, err := r.db.Exec(ctx, query,
		user.PasswordHash, user.Salt, string(user.Role), string(user.Status),
		user.FailedAttempts, user.LockedUntil, user.LastLoginAt, time.Now(), user.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %v", err)
	}
	return nil
}

func (r *PostgresRepository) CountUsersByRole(ctx context.Context, role Role) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE role = $1", string(role)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count users by role: %v", err)
	}
	return count, nil
}

func (r *PostgresRepository) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, user_id, username, status, user_agent, ip_address, refresh_token, created_at, accessed_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	var ipAddr interface{}
	if session.IPAddress != "" {
		ipAddr = session.IPAddress
	}

	_, err := r.db.Exec(ctx, query,
		session.ID, session.UserID, session.Username, string(session.Status),
		session.UserAgent, ipAddr, session.RefreshToken,
		session.CreatedAt, session.AccessedAt, session.ExpiresAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create session: %v", err)
	}
	return nil
}

const sessionSelectColumns = `id, user_id, username, status, user_agent, ip_address, refresh_token, created_at, accessed_at, expires_at`

func (r *PostgresRepository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	row := r.db.QueryRow(ctx, "SELECT "+sessionSelectColumns+" FROM sessions WHERE id = $1", id)

	var s Session
	var status string
	var ipAddr sql.NullString

	err := row.Scan(
		&s.ID, &s.UserID, &s.Username, &status, &s.UserAgent, &ipAddr,
		&s.RefreshToken, &s.CreatedAt, &s.AccessedAt, &s.ExpiresAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to get session: %v", err)
	}

	s.Status = SessionStatus(status)
	if ipAddr.Valid {
		s.IPAddress = ipAddr.String
	}
	return &s, nil
}

func (r *PostgresRepository) UpdateSession(ctx context.Context, session *Session) error {
	query := `UPDATE sessions SET status = $1, accessed_at = $2, expires_at = $3 WHERE id = $4`
	_, err := r.db.Exec(ctx, query, string(session.Status), session.AccessedAt, session.ExpiresAt, session.ID)
	if err != nil {
		return fmt.Errorf("failed to update session: %v", err)
	}
	return nil
}

func (r *PostgresRepository) DeleteExpiredSessions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM sessions WHERE expires_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %v", err)
	}
	return tag.RowsAffected(), nil
}
