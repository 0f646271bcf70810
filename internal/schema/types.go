// Package schema implements the SchemaIngestor component: on every
// successful connect, it walks a live connection's schema and populates
// VectorIndex and GraphIndex with the result.
package schema

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

// TableInfo is one introspected table or MongoDB collection, before a
// description has been generated and embedded.
type TableInfo struct {
	Name             string
	Columns          []contracts.Column
	RowCountEstimate *int64
}

// QueryRunner is the narrow slice of QueryExecutor this component depends
// on: running an introspection query against a specific live connection.
// SchemaIngestor never holds a driver handle itself — it always asks
// through this interface, satisfied structurally by QueryExecutor's Manager
// without either package importing the other.
type QueryRunner interface {
	Execute(ctx context.Context, query string, connectionID, userID string, maxRows int) (contracts.Rows, error)
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	TablesAnalyzed      int
	EmbeddingsGenerated int
	ProcessingMs        int64
	SkippedTables       []string
	Error               string
}
