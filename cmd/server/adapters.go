package main

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/executor"
	"github.com/google/uuid"
)

// connectionRunnerAdapter satisfies executor.ConnectionRunner over
// connection.Manager, whose Query method takes parsed uuid.UUIDs in a
// different argument order.
type connectionRunnerAdapter struct {
	conn *connection.Manager
}

func (a connectionRunnerAdapter) Query(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.Rows, error) {
	connUUID, err := uuid.Parse(connectionID)
	if err != nil {
		return contracts.Rows{}, contracts.NewError(contracts.ErrValidation, "connectionId is not a valid identifier")
	}
	userUUID, err := uuid.Parse(userID)
	if err != nil {
		return contracts.Rows{}, contracts.NewError(contracts.ErrValidation, "userId is not a valid identifier")
	}
	return a.conn.Query(ctx, connUUID, userUUID, query, maxRows)
}

var _ executor.ConnectionRunner = connectionRunnerAdapter{}

// queryRunnerAdapter satisfies schema.QueryRunner over executor.Manager,
// whose Execute method returns a bounded contracts.QueryResult rather than
// the raw contracts.Rows SchemaIngestor's introspection queries expect.
type queryRunnerAdapter struct {
	exec *executor.Manager
}

func (a queryRunnerAdapter) Execute(ctx context.Context, query, connectionID, userID string, maxRows int) (contracts.Rows, error) {
	result, err := a.exec.Execute(ctx, query, connectionID, userID, maxRows)
	if err != nil {
		return contracts.Rows{}, err
	}
	rows := make([]contracts.Row, len(result.Rows))
	for i, r := range result.Rows {
		rows[i] = contracts.Row(r)
	}
	return contracts.Rows{Columns: result.Columns, Data: rows}, nil
}
