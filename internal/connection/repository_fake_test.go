package connection

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// fakeRepository is an in-memory Repository used by this package's tests.
type fakeRepository struct {
	mu    sync.Mutex
	conns map[uuid.UUID]*SavedConnection
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{conns: make(map[uuid.UUID]*SavedConnection)}
}

func copyConn(c *SavedConnection) *SavedConnection {
	cp := *c
	props := make(map[string]string, len(c.AdditionalProperties))
	for k, v := range c.AdditionalProperties {
		props[k] = v
	}
	cp.AdditionalProperties = props
	return &cp
}

func (f *fakeRepository) Create(ctx context.Context, conn *SavedConnection) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.conns[conn.ID] = copyConn(conn)
	return nil
}

func (f *fakeRepository) Get(ctx context.Context, id uuid.UUID) (*SavedConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conns[id]
	if !ok {
		return nil, ErrConnectionNotFound
	}
	return copyConn(c), nil
}

func (f *fakeRepository) GetActiveByName(ctx context.Context, userID uuid.UUID, name string) (*SavedConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.conns {
		if c.UserID == userID && c.ConnectionName == name && c.IsActive {
			return copyConn(c), nil
		}
	}
	return nil, ErrConnectionNotFound
}

func (f *fakeRepository) ListActive(ctx context.Context, userID uuid.UUID) ([]*SavedConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*SavedConnection
	for _, c := range f.conns {
		if c.UserID == userID && c.IsActive {
			out = append(out, copyConn(c))
		}
	}
	return out, nil
}

func (f *fakeRepository) TouchLastUsed(ctx context.Context, id uuid.UUID, when time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conns[id]
	if !ok {
		return ErrConnectionNotFound
	}
	c.LastUsedAt = &when
	return nil
}

func (f *fakeRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.conns[id]
	if !ok {
		return ErrConnectionNotFound
	}
	c.IsActive = false
	return nil
}

func (f *fakeRepository) Delete(ctx context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.conns, id)
	return nil
}
