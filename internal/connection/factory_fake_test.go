package connection

import (
	"context"
	"fmt"
	"sync"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
)

// fakeHandle is an in-memory driverHandle used by this package's tests.
type fakeHandle struct {
	mu       sync.Mutex
	closed   bool
	pingErr  error
	closeErr error
}

func (h *fakeHandle) Ping(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return fmt.Errorf("handle closed")
	}
	return h.pingErr
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return h.closeErr
}

// fakeQueryableHandle is a driverHandle that can also answer Query, used to
// test ConnectionManager's query-dispatch path without a real driver.
type fakeQueryableHandle struct {
	fakeHandle
	rows contracts.Rows
	err  error
}

func (h *fakeQueryableHandle) Query(ctx context.Context, query string, maxRows int) (contracts.Rows, error) {
	if h.err != nil {
		return contracts.Rows{}, h.err
	}
	return h.rows, nil
}

var _ queryableHandle = (*fakeQueryableHandle)(nil)

// fakeFactory is a LiveConnectionFactory that never dials a real database.
type fakeFactory struct {
	mu          sync.Mutex
	unreachable map[DatabaseKind]bool
	opened      []dialTarget
	closeErr    error
	queryable   *fakeQueryableHandle
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{unreachable: make(map[DatabaseKind]bool)}
}

func (f *fakeFactory) Open(ctx context.Context, target dialTarget) (driverHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, target)
	if f.unreachable[target.kind] {
		return nil, fmt.Errorf("connection refused")
	}
	if f.queryable != nil {
		return f.queryable, nil
	}
	return &fakeHandle{closeErr: f.closeErr}, nil
}

// fakePurger is an IndexPurger that records every purged connectionID.
type fakePurger struct {
	mu     sync.Mutex
	purged []uuid.UUID
	err    error
}

func (p *fakePurger) PurgeConnection(ctx context.Context, connectionID uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.purged = append(p.purged, connectionID)
	return p.err
}
