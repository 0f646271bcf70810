package vectorindex

import (
	"context"
	"sort"
	"sync"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

// fakeStore is an in-memory contracts.VectorStore used by this package's
// tests; it preserves upsert order so ranking ties have a deterministic
// tiebreaker to assert against.
type fakeStore struct {
	mu     sync.Mutex
	order  []string
	points map[string]contracts.VectorPoint
}

func newFakeStore() *fakeStore {
	return &fakeStore{points: make(map[string]contracts.VectorPoint)}
}

func (f *fakeStore) Upsert(ctx context.Context, points []contracts.VectorPoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range points {
		if _, exists := f.points[p.ID]; !exists {
			f.order = append(f.order, p.ID)
		}
		f.points[p.ID] = p
	}
	return nil
}

// Search scores every point by dot product with query and returns the top
// k, ties broken by upsert order.
func (f *fakeStore) Search(ctx context.Context, query []float32, k int, filter contracts.VectorFilter) ([]contracts.VectorScored, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var candidates []contracts.VectorScored
	for _, id := range f.order {
		p, ok := f.points[id]
		if !ok {
			continue
		}
		if filter.UserID != "" && p.Payload["userId"] != filter.UserID {
			continue
		}
		if filter.ConnectionID != "" && p.Payload["connectionId"] != filter.ConnectionID {
			continue
		}
		candidates = append(candidates, contracts.VectorScored{
			Payload: p.Payload,
			Score:   dot(query, p.Vector),
		})
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})
	if len(candidates) > k {
		candidates = candidates[:k]
	}
	return candidates, nil
}

func (f *fakeStore) DeleteByPayloadField(ctx context.Context, field, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var kept []string
	for _, id := range f.order {
		if f.points[id].Payload[field] == value {
			delete(f.points, id)
			continue
		}
		kept = append(kept, id)
	}
	f.order = kept
	return nil
}

func dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		if i >= len(b) {
			break
		}
		sum += a[i] * b[i]
	}
	return sum
}
