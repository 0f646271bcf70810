package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel repository-level errors, translated to contracts.Error by Service.
var (
	ErrUserNotFound    = errors.New("user not found")
	ErrSessionNotFound = errors.New("session not found")
)

const maxFailedAttempts = 5

// Config holds authentication configuration.
type Config struct {
	JWTSecret      string
	TokenExpiry    time.Duration
	SessionExpiry  time.Duration
	BcryptCost     int
	LockoutPeriod  time.Duration
	MaxLoginTries  int
}

// DefaultConfig returns a sensible authentication configuration.
func DefaultConfig() Config {
	return Config{
		JWTSecret:     "default-secret-change-in-production",
		TokenExpiry:   24 * time.Hour,
		SessionExpiry: 7 * 24 * time.Hour,
		BcryptCost:    bcrypt.DefaultCost,
		LockoutPeriod: 30 * time.Minute,
		MaxLoginTries: maxFailedAttempts,
	}
}

// Service implements registration, login, session lifecycle and access
// checks against a Repository. It holds no actor/mailbox state — Manager
// wraps it with the component's message loop and the session cache.
type Service struct {
	config Config
	repo   Repository
}

// NewService creates a new Service.
func NewService(config Config, repo Repository) *Service {
	if config.MaxLoginTries == 0 {
		config.MaxLoginTries = maxFailedAttempts
	}
	return &Service{config: config, repo: repo}
}

// Register creates a new user account.
func (s *Service) Register(ctx context.Context, username, email, password string) (*User, error) {
	if err := validatePasswordPolicy(password); err != nil {
		return nil, err
	}

	username = strings.ToLower(strings.TrimSpace(username))
	email = strings.ToLower(strings.TrimSpace(email))

	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, contracts.NewError(contracts.ErrDuplicate, "username already taken")
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, contracts.AsError(err)
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, contracts.NewError(contracts.ErrDuplicate, "email already taken")
	} else if !errors.Is(err, ErrUserNotFound) {
		return nil, contracts.AsError(err)
	}

	salt, err := generateRandomToken(16)
	if err != nil {
		return nil, contracts.NewError(contracts.ErrInternal, "failed to generate salt")
	}

	hash, err := hashPassword(password, salt, s.config.BcryptCost)
	if err != nil {
		return nil, contracts.NewError(contracts.ErrInternal, "failed to hash password")
	}

	now := time.Now()
	user := &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Salt:         salt,
		Role:         RoleUser,
		Status:       UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, contracts.NewError(contracts.ErrInternal, "failed to persist user")
	}

	return user, nil
}

// Login authenticates a user and issues a session.
func (s *Service) Login(ctx context.Context, usernameOrEmail, password, userAgent, ip string) (*User, *Session, error) {
	lookup := strings.ToLower(strings.TrimSpace(usernameOrEmail))

	user, err := s.repo.GetUserByUsername(ctx, lookup)
	if errors.Is(err, ErrUserNotFound) {
		user, err = s.repo.GetUserByEmail(ctx, lookup)
	}
	if err != nil {
		// No account: never reveal that distinction from a bad-password failure.
		return nil, nil, contracts.NewError(contracts.ErrInvalidCredentials, "invalid credentials")
	}

	now := time.Now()
	if user.EffectiveStatus(now) == UserLocked {
		return nil, nil, contracts.NewError(contracts.ErrLocked, "account is locked")
	}
	if user.Status == UserInactive || user.Status == UserSuspended {
		return nil, nil, contracts.NewError(contracts.ErrInactive, "account is not active")
	}

	if !verifyPassword(password, user.Salt, user.PasswordHash) {
		user.FailedAttempts++
		if user.FailedAttempts >= s.config.MaxLoginTries {
			lockedUntil := now.Add(s.config.LockoutPeriod)
			user.LockedUntil = &lockedUntil
			user.Status = UserLocked
		}
		_ = s.repo.UpdateUser(ctx, user)
		return nil, nil, contracts.NewError(contracts.ErrInvalidCredentials, "invalid credentials")
	}

	user.FailedAttempts = 0
	user.LockedUntil = nil
	if user.Status == UserLocked {
		user.Status = UserActive
	}
	user.LastLoginAt = &now
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, nil, contracts.NewError(contracts.ErrInternal, "failed to persist login")
	}

	session := &Session{
		ID:         uuid.New(),
		UserID:     user.ID,
		Username:   user.Username,
		Status:     SessionActive,
		UserAgent:  userAgent,
		IPAddress:  ip,
		CreatedAt:  now,
		AccessedAt: now,
		ExpiresAt:  now.Add(s.config.SessionExpiry),
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, nil, contracts.NewError(contracts.ErrInternal, "failed to persist session")
	}

	return user, session, nil
}

// ValidateSession checks a session's validity, touching AccessedAt on success.
func (s *Service) ValidateSession(ctx context.Context, sessionID uuid.UUID) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, contracts.NewError(contracts.ErrSessionNotFound, "session not found")
		}
		return nil, contracts.AsError(err)
	}

	now := time.Now()
	if session.Status == SessionRevoked {
		return nil, contracts.NewError(contracts.ErrSessionRevoked, "session revoked")
	}
	if now.After(session.ExpiresAt) {
		session.Status = SessionExpired
		_ = s.repo.UpdateSession(ctx, session)
		return nil, contracts.NewError(contracts.ErrSessionExpired, "session expired")
	}

	session.AccessedAt = now
	_ = s.repo.UpdateSession(ctx, session) // best-effort per spec

	return session, nil
}

// ExtendSession sets a session's expiry to now plus the given duration.
func (s *Service) ExtendSession(ctx context.Context, sessionID uuid.UUID, extend time.Duration) (*Session, error) {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, contracts.NewError(contracts.ErrSessionNotFound, "session not found")
		}
		return nil, contracts.AsError(err)
	}
	if session.Status != SessionActive {
		return nil, contracts.NewError(contracts.ErrSessionExpired, "session is not active")
	}

	session.ExpiresAt = time.Now().Add(extend)
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return nil, contracts.NewError(contracts.ErrInternal, "failed to extend session")
	}
	return session, nil
}

// RevokeSession transitions a session to REVOKED (terminal).
func (s *Service) RevokeSession(ctx context.Context, sessionID uuid.UUID) error {
	session, err := s.repo.GetSession(ctx, sessionID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return contracts.NewError(contracts.ErrSessionNotFound, "session not found")
		}
		return contracts.AsError(err)
	}
	session.Status = SessionRevoked
	if err := s.repo.UpdateSession(ctx, session); err != nil {
		return contracts.NewError(contracts.ErrInternal, "failed to revoke session")
	}
	return nil
}

// ChangePassword replaces a user's password after verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return contracts.NewError(contracts.ErrNotFound, "user not found")
		}
		return contracts.AsError(err)
	}

	if !verifyPassword(current, user.Salt, user.PasswordHash) {
		return contracts.NewError(contracts.ErrInvalidCredentials, "current password is incorrect")
	}
	if err := validatePasswordPolicy(next); err != nil {
		return err
	}

	salt, err := generateRandomToken(16)
	if err != nil {
		return contracts.NewError(contracts.ErrInternal, "failed to generate salt")
	}
	hash, err := hashPassword(next, salt, s.config.BcryptCost)
	if err != nil {
		return contracts.NewError(contracts.ErrInternal, "failed to hash password")
	}

	user.Salt = salt
	user.PasswordHash = hash
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return contracts.NewError(contracts.ErrInternal, "failed to persist password change")
	}
	return nil
}

// ValidateAccess reports whether a user's role satisfies requiredRole.
func (s *Service) ValidateAccess(ctx context.Context, userID uuid.UUID, requiredRole Role) (bool, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return false, contracts.NewError(contracts.ErrNotFound, "user not found")
		}
		return false, contracts.AsError(err)
	}
	return roleRank(user.Role) >= roleRank(requiredRole), nil
}

func roleRank(r Role) int {
	switch r {
	case RoleAdmin:
		return 2
	case RoleUser:
		return 1
	default:
		return 0
	}
}

// Bootstrap creates a default ADMIN user if none exists. Idempotent: safe
// to call on every startup.
func (s *Service) Bootstrap(ctx context.Context, username, email, password string) error {
	count, err := s.repo.CountUsersByRole(ctx, RoleAdmin)
	if err != nil {
		return fmt.Errorf("failed to count admin users: %v", err)
	}
	if count > 0 {
		return nil
	}

	salt, err := generateRandomToken(16)
	if err != nil {
		return fmt.Errorf("failed to generate salt: %v", err)
	}
	hash, err := hashPassword(password, salt, s.config.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %v", err)
	}

	now := time.Now()
	admin := &User{
		ID:           uuid.New(),
		Username:     strings.ToLower(username),
		Email:        strings.ToLower(email),
		PasswordHash: hash,
		Salt:         salt,
		Role:         RoleAdmin,
		Status:       UserActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.CreateUser(ctx, admin); err != nil {
		return fmt.Errorf("failed to persist bootstrap admin: %v", err)
	}
	return nil
}

// SweepExpiredSessions deletes sessions whose expiry is in the past,
// invoked periodically by Manager's expiry ticker.
func (s *Service) SweepExpiredSessions(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredSessions(ctx, time.Now())
}

// GenerateJWT issues an HS256 token carrying the user's identity claims.
func (s *Service) GenerateJWT(user *User) (string, error) {
	claims := jwt.MapClaims{
		"sub":  user.ID.String(),
		"name": user.Username,
		"role": string(user.Role),
		"exp":  time.Now().Add(s.config.TokenExpiry).Unix(),
		"iat":  time.Now().Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

// VerifyJWT validates a token and returns the carried user id.
func (s *Service) VerifyJWT(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.JWTSecret), nil
	})
	if err != nil {
		return uuid.Nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token")
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return uuid.Nil, fmt.Errorf("invalid token subject")
	}
	return uuid.Parse(sub)
}

func validatePasswordPolicy(password string) error {
	if len(password) < 8 {
		return contracts.NewError(contracts.ErrValidation, "password must be at least 8 characters")
	}

	var hasUpper, hasLower, hasDigit, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit || !hasSpecial {
		return contracts.NewError(contracts.ErrValidation, "password must contain upper, lower, digit and special characters")
	}
	return nil
}

func hashPassword(password, salt string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password+salt), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

func verifyPassword(password, salt, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password+salt))
	return err == nil
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
