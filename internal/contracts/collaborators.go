package contracts

import "context"

// EmbeddingModel turns text into a fixed-dimension vector. The dimension
// D is fixed per deployment; callers never vary it at runtime.
type EmbeddingModel interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimension() int
}

// LanguageModel is the completion collaborator behind Classifier and
// QuerySynthesizer.
type LanguageModel interface {
	Complete(ctx context.Context, prompt string, params CompletionParams) (CompletionResult, error)
}

// CompletionParams bounds a single completion call.
type CompletionParams struct {
	MaxTokens   int
	Temperature float64
}

// CompletionResult is what a LanguageModel call returns.
type CompletionResult struct {
	Text       string
	TokensUsed int
	LatencyMs  int64
}

// VectorPoint is one upserted unit of the VectorIndex.
type VectorPoint struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// VectorFilter restricts a VectorStore.Search call to exact-match payload fields.
type VectorFilter struct {
	UserID       string
	ConnectionID string
}

// VectorScored is one ranked VectorStore.Search result.
type VectorScored struct {
	Payload map[string]string
	Score   float32
}

// VectorStore is the external vector database the VectorIndex component
// delegates to (e.g. Pinecone).
type VectorStore interface {
	Upsert(ctx context.Context, points []VectorPoint) error
	Search(ctx context.Context, query []float32, k int, filter VectorFilter) ([]VectorScored, error)
	DeleteByPayloadField(ctx context.Context, field, value string) error
}

// GraphEdge is one directed edge as stored by a GraphStore.
type GraphEdge struct {
	ConnectionID string
	FromTable    string
	FromColumn   string
	ToTable      string
	ToColumn     string
	Kind         RelationshipKind
}

// GraphPath is an ordered sequence of edges returned by a traversal.
type GraphPath []GraphEdge

// GraphStore is the external graph database the GraphIndex component
// delegates to.
type GraphStore interface {
	UpsertEdges(ctx context.Context, connectionID string, edges []GraphEdge) error
	ShortestPaths(ctx context.Context, connectionID, source, target string, maxDepth int) ([]GraphPath, error)
	Neighbors(ctx context.Context, connectionID, table string, maxDepth int) ([]TableDistance, error)
	// AnalyzeDependencies reports, for each requested table, the tables it
	// directly depends on (outgoing edges) and that table's in-degree
	// across the whole connection graph.
	AnalyzeDependencies(ctx context.Context, connectionID string, tables []string) (dependencies map[string][]string, counts map[string]int, err error)
	DeleteByKey(ctx context.Context, connectionID string) error
}

// TableDistance is one result of a bounded graph traversal.
type TableDistance struct {
	Table    string
	Distance int
}

// Row is one driver-returned row, a tuple aligned with a result's columns.
type Row []interface{}

// Rows is what a SqlDriver or DocumentDriver execution yields before bounding.
type Rows struct {
	Columns []string
	Data    []Row
}

// Handle is an opaque driver-specific live connection handle.
type Handle interface {
	Close() error
	Ping(ctx context.Context) error
}

// SqlDriver opens and drives a relational database connection.
type SqlDriver interface {
	Open(ctx context.Context, url string) (Handle, error)
	Execute(ctx context.Context, h Handle, query string, maxRows int) (Rows, error)
}

// DocumentDriver opens and drives a document database connection (e.g. MongoDB).
type DocumentDriver interface {
	Open(ctx context.Context, url string) (Handle, error)
	Execute(ctx context.Context, h Handle, query string, maxRows int) (Rows, error)
}
