package auth

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeCacheClient is a minimal in-memory sessionCacheClient for tests.
type fakeCacheClient struct {
	mu    sync.Mutex
	store map[string]string
	gets  int
	sets  int
	dels  int
}

func newFakeCacheClient() *fakeCacheClient {
	return &fakeCacheClient{store: make(map[string]string)}
}

func (f *fakeCacheClient) Get(ctx context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gets++
	v, ok := f.store[key]
	if !ok {
		return "", nil
	}
	return v, nil
}

func (f *fakeCacheClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sets++
	switch v := value.(type) {
	case []byte:
		f.store[key] = string(v)
	case string:
		f.store[key] = v
	}
	return nil
}

func (f *fakeCacheClient) Del(ctx context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dels++
	for _, k := range keys {
		delete(f.store, k)
	}
	return nil
}

func TestCachedRepository_CacheMissFallsThroughAndPopulates(t *testing.T) {
	repo := newFakeRepository()
	cache := newFakeCacheClient()
	cached := newCachedRepository(repo, cache, time.Minute)

	ctx := context.Background()
	session := &Session{
		ID: uuid.New(), UserID: uuid.New(), Username: "hank",
		Status: SessionActive, CreatedAt: time.Now(), AccessedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.CreateSession(ctx, session))

	cache.store = map[string]string{}

	got, err := cached.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.Username, got.Username)
	assert.Equal(t, 1, cache.sets, "cache miss should populate the cache")
}

func TestCachedRepository_CacheHitSkipsRepository(t *testing.T) {
	repo := newFakeRepository()
	cache := newFakeCacheClient()
	cached := newCachedRepository(repo, cache, time.Minute)

	ctx := context.Background()
	sessionID := uuid.New()
	session := &Session{
		ID: sessionID, UserID: uuid.New(), Username: "iris",
		Status: SessionActive, CreatedAt: time.Now(), AccessedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, cached.CreateSession(ctx, session))

	delete(repo.sessions, sessionID)

	got, err := cached.GetSession(ctx, sessionID)
	require.NoError(t, err)
	assert.Equal(t, "iris", got.Username)
}

func TestCachedRepository_RevokeInvalidatesCache(t *testing.T) {
	repo := newFakeRepository()
	cache := newFakeCacheClient()
	cached := newCachedRepository(repo, cache, time.Minute)

	ctx := context.Background()
	sessionID := uuid.New()
	session := &Session{
		ID: sessionID, UserID: uuid.New(), Username: "jack",
		Status: SessionActive, CreatedAt: time.Now(), AccessedAt: time.Now(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, cached.CreateSession(ctx, session))
	assert.Contains(t, cache.store, sessionCacheKey(sessionID))

	session.Status = SessionRevoked
	require.NoError(t, cached.UpdateSession(ctx, session))
	assert.NotContains(t, cache.store, sessionCacheKey(sessionID))
}

func TestNewCachedRepository_NilCacheReturnsRepoUnchanged(t *testing.T) {
	repo := newFakeRepository()
	cached := newCachedRepository(repo, nil, time.Minute)
	assert.Same(t, Repository(repo), cached)
}
