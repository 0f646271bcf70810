package auth

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// sessionCacheClient is the subset of internal/redis.Client the session
// cache needs. Matching it structurally keeps this package independent of
// the concrete Redis client type for tests.
type sessionCacheClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
}

// cachedRepository decorates a Repository with a Redis-backed read-through
// cache for GetSession, so a hot session skips the control-plane store on
// every request. Writes always go to the underlying Repository first;
// an ACTIVE session is then written into the cache, and any other status
// removes its cache entry.
type cachedRepository struct {
	Repository
	cache sessionCacheClient
	ttl   time.Duration
}

// newCachedRepository wraps repo with a session cache. A nil cache (or one
// backed by a disabled Redis client) makes every call fall through to repo.
func newCachedRepository(repo Repository, cache sessionCacheClient, ttl time.Duration) Repository {
	if cache == nil {
		return repo
	}
	return &cachedRepository{Repository: repo, cache: cache, ttl: ttl}
}

func sessionCacheKey(id uuid.UUID) string {
	return "session:" + id.String()
}

type cachedSession struct {
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

func (c *cachedRepository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	raw, err := c.cache.Get(ctx, sessionCacheKey(id))
	if err == nil && raw != "" {
		var cs cachedSession
		if jsonErr := json.Unmarshal([]byte(raw), &cs); jsonErr == nil {
			return &Session{
				ID: id, UserID: cs.UserID, Username: cs.Username, Status: cs.Status,
				UserAgent: cs.UserAgent, IPAddress: cs.IPAddress, RefreshToken: cs.RefreshToken,
				CreatedAt: cs.CreatedAt, AccessedAt: cs.AccessedAt, ExpiresAt: cs.ExpiresAt,
			}, nil
		}
	}

	session, err := c.Repository.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}

	c.store(ctx, session)
	return session, nil
}

func (c *cachedRepository) UpdateSession(ctx context.Context, session *Session) error {
	if err := c.Repository.UpdateSession(ctx, session); err != nil {
		return err
	}
	if session.Status != SessionActive {
		_ = c.cache.Del(ctx, sessionCacheKey(session.ID))
		return nil
	}
	c.store(ctx, session)
	return nil
}

func (c *cachedRepository) CreateSession(ctx context.Context, session *Session) error {
	if err := c.Repository.CreateSession(ctx, session); err != nil {
		return err
	}
	c.store(ctx, session)
	return nil
}

func (c *cachedRepository) store(ctx context.Context, session *Session) {
	cs := cachedSession{
		UserID: session.UserID, Username: session.Username, Status: session.Status,
		UserAgent: session.UserAgent, IPAddress: session.IPAddress, RefreshToken: session.RefreshToken,
		CreatedAt: session.CreatedAt, AccessedAt: session.AccessedAt, ExpiresAt: session.ExpiresAt,
	}
	if raw, err := json.Marshal(cs); err == nil {
		_ = c.cache.Set(ctx, sessionCacheKey(session.ID), raw, c.ttl)
	}
}
