package auth

import (
	"time"

	"github.com/google/uuid"
)

// Role is a User's access level.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
	RoleGuest Role = "GUEST"
)

// UserStatus is a User's account status.
type UserStatus string

const (
	UserActive    UserStatus = "ACTIVE"
	UserInactive  UserStatus = "INACTIVE"
	UserLocked    UserStatus = "LOCKED"
	UserSuspended UserStatus = "SUSPENDED"
)

// User is an AuthManager-owned account.
type User struct {
	ID             uuid.UUID
	Username       string
	Email          string
	PasswordHash   string
	Salt           string
	Role           Role
	Status         UserStatus
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// EffectiveStatus reports LOCKED while LockedUntil is in the future, even if
// the persisted Status hasn't caught up yet, and reports ACTIVE once
// LockedUntil has passed even if the persisted Status is still stale
// LOCKED — the lockout is a time window, not a permanent state, and
// nothing sweeps User.Status back to ACTIVE on a timer.
func (u *User) EffectiveStatus(now time.Time) UserStatus {
	if u.LockedUntil != nil {
		if now.Before(*u.LockedUntil) {
			return UserLocked
		}
		if u.Status == UserLocked {
			return UserActive
		}
	}
	return u.Status
}

// SessionStatus is a Session's lifecycle state.
type SessionStatus string

const (
	SessionActive  SessionStatus = "ACTIVE"
	SessionRevoked SessionStatus = "REVOKED"
	SessionExpired SessionStatus = "EXPIRED"
)

// Session is an AuthManager-owned session.
type Session struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Username     string
	Status       SessionStatus
	UserAgent    string
	IPAddress    string
	RefreshToken string
	CreatedAt    time.Time
	AccessedAt   time.Time
	ExpiresAt    time.Time
}

// Valid reports whether the session is usable right now: ACTIVE and not
// past its expiry. Expiry is evaluated lazily — a session past ExpiresAt is
// never implicitly treated as ACTIVE again.
func (s *Session) Valid(now time.Time) bool {
	return s.Status == SessionActive && now.Before(s.ExpiresAt)
}
