package orchestrator

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
)

type fakeClassifier struct {
	requiresQuery bool
	generalReply  string
	generalErr    error
	generalCalls  int
}

func (f *fakeClassifier) RequiresQueryGeneration(ctx context.Context, text string) bool {
	return f.requiresQuery
}

func (f *fakeClassifier) RespondGeneral(ctx context.Context, text, userID, sessionID string) (string, error) {
	f.generalCalls++
	return f.generalReply, f.generalErr
}

type fakeVectorSearcher struct {
	hits  []contracts.VectorScored
	err   error
	calls int
}

func (f *fakeVectorSearcher) Search(ctx context.Context, query []float32, k int, filter contracts.VectorFilter) ([]contracts.VectorScored, error) {
	f.calls++
	return f.hits, f.err
}

type fakeGraphNeighbors struct {
	related map[string][]contracts.TableDistance
	calls   int
}

func (f *fakeGraphNeighbors) RelatedTables(ctx context.Context, connectionID uuid.UUID, table string, maxDepth int) ([]contracts.TableDistance, error) {
	f.calls++
	return f.related[table], nil
}

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vector, f.err
}

func (f *fakeEmbedder) Dimension() int {
	return len(f.vector)
}

type fakeSynthesizer struct {
	query       string
	explanation string
	err         error
	calls       int
	lastTables  []contracts.ContextTable
}

func (f *fakeSynthesizer) Synthesize(ctx context.Context, userText string, kind contracts.DatabaseKind, contextTables []contracts.ContextTable, userID, sessionID string) (string, string, error) {
	f.calls++
	f.lastTables = contextTables
	return f.query, f.explanation, f.err
}

type fakeExecutor struct {
	result contracts.QueryResult
	err    error
	calls  int
}

func (f *fakeExecutor) Execute(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.QueryResult, error) {
	f.calls++
	return f.result, f.err
}

type fakeConnectionKind struct {
	kind connection.DatabaseKind
	err  error
}

func (f *fakeConnectionKind) Kind(ctx context.Context, connectionID, userID uuid.UUID) (connection.DatabaseKind, error) {
	return f.kind, f.err
}

// testCollaborators bundles a default-wired set of fakes and the Service
// built over them, so each test only overrides what it cares about.
type testCollaborators struct {
	classifier  *fakeClassifier
	vectors     *fakeVectorSearcher
	graph       *fakeGraphNeighbors
	embedder    *fakeEmbedder
	synthesizer *fakeSynthesizer
	executor    *fakeExecutor
	connections *fakeConnectionKind
}

func newTestCollaborators() *testCollaborators {
	return &testCollaborators{
		classifier:  &fakeClassifier{requiresQuery: true},
		vectors:     &fakeVectorSearcher{},
		graph:       &fakeGraphNeighbors{related: map[string][]contracts.TableDistance{}},
		embedder:    &fakeEmbedder{vector: []float32{0.1, 0.2}},
		synthesizer: &fakeSynthesizer{query: "SELECT 1", explanation: "test query"},
		executor:    &fakeExecutor{result: contracts.QueryResult{Columns: []string{"id"}, RowCount: 1}},
		connections: &fakeConnectionKind{kind: connection.KindPostgreSQL},
	}
}

func (c *testCollaborators) service() *Service {
	return NewService(c.classifier, c.vectors, c.graph, c.embedder, c.synthesizer, c.executor, c.connections, nil)
}
