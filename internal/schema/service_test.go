package schema

import (
	"context"
	"errors"
	"testing"

	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func postgresColumnsRows() contracts.Rows {
	return contracts.Rows{
		Columns: []string{"table_name", "column_name", "data_type", "is_nullable", "is_primary_key", "foreign_table", "foreign_column"},
		Data: []contracts.Row{
			{"orders", "id", "integer", "NO", true, "", ""},
			{"orders", "customer_id", "integer", "NO", false, "customers", "id"},
			{"customers", "id", "integer", "NO", true, "", ""},
		},
	}
}

func postgresRowCountRows() contracts.Rows {
	return contracts.Rows{
		Columns: []string{"relname", "reltuples"},
		Data: []contracts.Row{
			{"orders", int64(10)},
			{"customers", int64(3)},
		},
	}
}

func newPostgresRunner(t *testing.T) *fakeQueryRunner {
	t.Helper()
	runner := newFakeQueryRunner()
	query, err := columnsQuery(connection.KindPostgreSQL)
	require.NoError(t, err)
	runner.on(query, postgresColumnsRows())

	countQuery, err := rowCountQuery(connection.KindPostgreSQL)
	require.NoError(t, err)
	runner.on(countQuery, postgresRowCountRows())
	return runner
}

func TestIngest_PostgresSchema_IndexesTablesAndEdges(t *testing.T) {
	runner := newPostgresRunner(t)
	embedder := newFakeEmbedder(4)
	vectors := newFakeVectorUpserter()
	graph := newFakeRelationshipStorer()
	svc := NewService(runner, embedder, vectors, graph, nil)

	connectionID, userID := uuid.New(), uuid.New()
	result, err := svc.Ingest(context.Background(), connectionID, userID, connection.KindPostgreSQL)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TablesAnalyzed)
	assert.Equal(t, 2, result.EmbeddingsGenerated)
	assert.Empty(t, result.SkippedTables)
	assert.Empty(t, result.Error)

	require.Len(t, vectors.points, 2)
	assert.Equal(t, connectionID.String()+":orders", vectors.points[0].ID)
	assert.Equal(t, userID.String(), vectors.points[0].Payload["userId"])
	assert.Contains(t, vectors.points[0].Payload["description"], "Relationships: customer_id -> customers.id.")

	require.Len(t, graph.calls, 1)
	assert.Equal(t, contracts.ForeignKey, graph.calls[0].kind)
	require.Len(t, graph.calls[0].edges, 1)
	assert.Equal(t, "orders", graph.calls[0].edges[0].FromTable)
	assert.Equal(t, "customers", graph.calls[0].edges[0].ToTable)
}

func TestIngest_SkipsTableWhenEmbeddingFails(t *testing.T) {
	runner := newPostgresRunner(t)
	embedder := newFakeEmbedder(4)
	embedder.fail[describeTable(&TableInfo{
		Name: "orders",
		Columns: []contracts.Column{
			{Name: "id", Type: "integer", IsPrimaryKey: true},
			{Name: "customer_id", Type: "integer", IsForeignKey: true, ReferencedTable: "customers", ReferencedColumn: "id"},
		},
	})] = true
	vectors := newFakeVectorUpserter()
	graph := newFakeRelationshipStorer()
	svc := NewService(runner, embedder, vectors, graph, nil)

	result, err := svc.Ingest(context.Background(), uuid.New(), uuid.New(), connection.KindPostgreSQL)
	require.NoError(t, err)

	assert.Equal(t, 1, result.TablesAnalyzed)
	assert.Equal(t, []string{"orders"}, result.SkippedTables)
}

func TestIngest_DiscoveryFailureReturnsError(t *testing.T) {
	runner := newFakeQueryRunner()
	query, err := columnsQuery(connection.KindPostgreSQL)
	require.NoError(t, err)
	runner.failOn(query, errors.New("connection reset"))

	svc := NewService(runner, newFakeEmbedder(4), newFakeVectorUpserter(), newFakeRelationshipStorer(), nil)
	result, err := svc.Ingest(context.Background(), uuid.New(), uuid.New(), connection.KindPostgreSQL)
	require.Error(t, err)
	assert.NotEmpty(t, result.Error)
}

func TestIngest_MongoCollections_InfersReferencesByNamingConvention(t *testing.T) {
	runner := newFakeQueryRunner()
	runner.on(mongoListCollectionsCommand, contracts.Rows{
		Columns: []string{"name"},
		Data: []contracts.Row{
			{"orders"},
			{"customers"},
		},
	})
	runner.on(mongoSampleCommand("orders", defaultMongoSampleSize), contracts.Rows{
		Columns: []string{"_id", "customer_id", "total"},
		Data: []contracts.Row{
			{"o1", "c1", 42.0},
		},
	})
	runner.on(mongoSampleCommand("customers", defaultMongoSampleSize), contracts.Rows{
		Columns: []string{"_id", "name"},
		Data: []contracts.Row{
			{"c1", "Acme"},
		},
	})

	embedder := newFakeEmbedder(4)
	vectors := newFakeVectorUpserter()
	graph := newFakeRelationshipStorer()
	svc := NewService(runner, embedder, vectors, graph, nil)

	result, err := svc.Ingest(context.Background(), uuid.New(), uuid.New(), connection.KindMongoDB)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TablesAnalyzed)

	require.Len(t, graph.calls, 1)
	assert.Equal(t, contracts.Inferred, graph.calls[0].kind)
	require.Len(t, graph.calls[0].edges, 1)
	assert.Equal(t, "orders", graph.calls[0].edges[0].FromTable)
	assert.Equal(t, "customer_id", graph.calls[0].edges[0].FromColumn)
	assert.Equal(t, "customers", graph.calls[0].edges[0].ToTable)
	assert.Equal(t, "_id", graph.calls[0].edges[0].ToColumn)
}
