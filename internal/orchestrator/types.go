// Package orchestrator implements the Orchestrator component: it drives a
// single conversation turn end to end, fanning out to Classifier,
// VectorIndex, GraphIndex, QuerySynthesizer and QueryExecutor, and never
// holding state of its own beyond the turn it is currently handling.
package orchestrator

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
)

// Classifier is the narrow slice of the Classifier component this
// package depends on, satisfied structurally by classifier.Manager.
type Classifier interface {
	RequiresQueryGeneration(ctx context.Context, text string) bool
	RespondGeneral(ctx context.Context, text, userID, sessionID string) (string, error)
}

// Synthesizer is the narrow slice of QuerySynthesizer this package
// depends on, satisfied structurally by synthesizer.Manager.
type Synthesizer interface {
	Synthesize(ctx context.Context, userText string, kind contracts.DatabaseKind, contextTables []contracts.ContextTable, userID, sessionID string) (string, string, error)
}

// Executor is the narrow slice of QueryExecutor this package depends on,
// satisfied structurally by executor.Manager.
type Executor interface {
	Execute(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.QueryResult, error)
}

// VectorSearcher is the narrow slice of VectorIndex this package depends
// on, satisfied structurally by vectorindex.Manager.
type VectorSearcher interface {
	Search(ctx context.Context, query []float32, k int, filter contracts.VectorFilter) ([]contracts.VectorScored, error)
}

// GraphNeighbors is the narrow slice of GraphIndex this package depends
// on, satisfied structurally by graphindex.Manager.
type GraphNeighbors interface {
	RelatedTables(ctx context.Context, connectionID uuid.UUID, table string, maxDepth int) ([]contracts.TableDistance, error)
}

// ConnectionKind is the narrow slice of ConnectionManager this package
// depends on, satisfied structurally by connection.Manager.
type ConnectionKind interface {
	Kind(ctx context.Context, connectionID, userID uuid.UUID) (connection.DatabaseKind, error)
}

// toDialectKind converts ConnectionManager's DatabaseKind into the
// contracts.DatabaseKind QuerySynthesizer expects. The two types share
// identical underlying string values by construction; this is the single
// place that bridges them.
func toDialectKind(kind connection.DatabaseKind) contracts.DatabaseKind {
	return contracts.DatabaseKind(kind)
}

const (
	defaultContextK   = 10
	defaultGraphDepth = 1
	defaultExecuteMax = 1000
)
