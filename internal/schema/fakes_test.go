package schema

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/graphindex"
	"github.com/google/uuid"
)

// fakeQueryRunner answers Execute by exact query-string match, the way a
// real QueryExecutor would answer a fixed introspection query or Mongo
// command string.
type fakeQueryRunner struct {
	responses map[string]contracts.Rows
	errors    map[string]error
}

func newFakeQueryRunner() *fakeQueryRunner {
	return &fakeQueryRunner{responses: map[string]contracts.Rows{}, errors: map[string]error{}}
}

func (f *fakeQueryRunner) on(query string, rows contracts.Rows) {
	f.responses[query] = rows
}

func (f *fakeQueryRunner) failOn(query string, err error) {
	f.errors[query] = err
}

func (f *fakeQueryRunner) Execute(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.Rows, error) {
	if err, ok := f.errors[query]; ok {
		return contracts.Rows{}, err
	}
	rows, ok := f.responses[query]
	if !ok {
		return contracts.Rows{}, fmt.Errorf("fakeQueryRunner: unexpected query %q", query)
	}
	return rows, nil
}

// fakeEmbedder returns a deterministic vector per text, optionally failing
// for a configured set of inputs.
type fakeEmbedder struct {
	dim  int
	fail map[string]bool
}

func newFakeEmbedder(dim int) *fakeEmbedder {
	return &fakeEmbedder{dim: dim, fail: map[string]bool{}}
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if f.fail[text] {
		return nil, errors.New("embedding provider unavailable")
	}
	vector := make([]float32, f.dim)
	for i := range vector {
		vector[i] = float32(len(text) + i)
	}
	return vector, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

// fakeVectorUpserter records every point it is asked to index.
type fakeVectorUpserter struct {
	mu      sync.Mutex
	points  []contracts.VectorPoint
	failIDs map[string]bool
}

func newFakeVectorUpserter() *fakeVectorUpserter {
	return &fakeVectorUpserter{failIDs: map[string]bool{}}
}

func (f *fakeVectorUpserter) Upsert(ctx context.Context, point contracts.VectorPoint) error {
	if f.failIDs[point.ID] {
		return errors.New("vector store unavailable")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.points = append(f.points, point)
	return nil
}

// storeCall is one recorded RelationshipStorer.StoreRelationships invocation.
type storeCall struct {
	connectionID uuid.UUID
	userID       uuid.UUID
	kind         contracts.RelationshipKind
	edges        []graphindex.EdgeInput
}

type fakeRelationshipStorer struct {
	mu    sync.Mutex
	calls []storeCall
	err   error
}

func newFakeRelationshipStorer() *fakeRelationshipStorer {
	return &fakeRelationshipStorer{}
}

func (f *fakeRelationshipStorer) StoreRelationships(ctx context.Context, connectionID, userID uuid.UUID, kind contracts.RelationshipKind, edges []graphindex.EdgeInput) error {
	if f.err != nil {
		return f.err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, storeCall{connectionID: connectionID, userID: userID, kind: kind, edges: edges})
	return nil
}
