// Package executor implements the QueryExecutor component: validate a
// synthesized query against a safety policy, then run it on a specific
// live connection and return a bounded result.
package executor

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
)

// ConnectionRunner is the narrow slice of ConnectionManager this component
// depends on, satisfied structurally by connection.Manager's Query method
// without either package importing the other.
type ConnectionRunner interface {
	Query(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.Rows, error)
}

// defaultDenylist matches the mutating-operation keywords blocked unless a
// deployment overrides the list or opts into warn-only mode.
var defaultDenylist = []string{"drop", "delete", "truncate", "alter", "create", "insert", "update"}
