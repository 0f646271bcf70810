package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/HelixDevelopment/nldbexplorer/internal/connection"
	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/HelixDevelopment/nldbexplorer/internal/graphindex"
	"github.com/HelixDevelopment/nldbexplorer/internal/logging"
	"github.com/google/uuid"
)

const defaultMongoSampleSize = 50

// introspectionMaxRows bounds the catalog/count queries discoverSQL issues
// against information_schema-style views. QueryExecutor's own maxRows==0
// means "zero data rows, probe only" rather than "use a sensible default",
// so introspection carries an explicit, generously-sized budget of its own
// instead of relying on that convention.
const introspectionMaxRows = 10000

// VectorUpserter is the narrow slice of VectorIndex this component depends
// on, satisfied structurally by vectorindex.Manager without either package
// importing the other.
type VectorUpserter interface {
	Upsert(ctx context.Context, point contracts.VectorPoint) error
}

// RelationshipStorer is the narrow slice of GraphIndex this component
// depends on, satisfied structurally by graphindex.Manager.
type RelationshipStorer interface {
	StoreRelationships(ctx context.Context, connectionID, userID uuid.UUID, kind contracts.RelationshipKind, edges []graphindex.EdgeInput) error
}

// Service implements the SchemaIngestor procedure: introspect, describe,
// embed, index.
type Service struct {
	queryRunner QueryRunner
	embedder    contracts.EmbeddingModel
	vectors     VectorUpserter
	graph       RelationshipStorer
	logger      *logging.Logger
	sampleSize  int
}

// NewService binds the component's collaborators.
func NewService(queryRunner QueryRunner, embedder contracts.EmbeddingModel, vectors VectorUpserter, graph RelationshipStorer, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.NewLoggerWithName("schema-ingestor")
	}
	return &Service{
		queryRunner: queryRunner,
		embedder:    embedder,
		vectors:     vectors,
		graph:       graph,
		logger:      logger,
		sampleSize:  defaultMongoSampleSize,
	}
}

// Ingest walks connectionID's live schema and populates VectorIndex and
// GraphIndex with the result. A table that fails to embed or index is
// logged and skipped rather than failing the whole run; only a failure to
// enumerate the schema at all is returned as an error.
func (s *Service) Ingest(ctx context.Context, connectionID, userID uuid.UUID, kind connection.DatabaseKind) (IngestResult, error) {
	start := time.Now()

	tables, err := s.discover(ctx, connectionID, userID, kind)
	if err != nil {
		return IngestResult{Error: err.Error()}, contracts.NewErrorf(contracts.ErrInternal, "schema discovery: %v", err)
	}

	result := IngestResult{}
	var edges []graphindex.EdgeInput

	for _, table := range tables {
		description := describeTable(table)

		vector, err := s.embedder.Embed(ctx, description)
		if err != nil {
			s.logger.Warn("embedding table %s failed, skipping: %v", table.Name, err)
			result.SkippedTables = append(result.SkippedTables, table.Name)
			continue
		}

		columnsJSON, err := json.Marshal(table.Columns)
		if err != nil {
			s.logger.Warn("encoding columns for table %s failed, skipping: %v", table.Name, err)
			result.SkippedTables = append(result.SkippedTables, table.Name)
			continue
		}

		point := contracts.VectorPoint{
			ID:     connectionID.String() + ":" + table.Name,
			Vector: vector,
			Payload: map[string]string{
				"userId":       userID.String(),
				"connectionId": connectionID.String(),
				"tableName":    table.Name,
				"description":  description,
				"columns":      string(columnsJSON),
			},
		}
		if err := s.vectors.Upsert(ctx, point); err != nil {
			s.logger.Warn("indexing table %s failed, skipping: %v", table.Name, err)
			result.SkippedTables = append(result.SkippedTables, table.Name)
			continue
		}

		result.TablesAnalyzed++
		result.EmbeddingsGenerated++

		for _, col := range table.Columns {
			if col.IsForeignKey {
				edges = append(edges, graphindex.EdgeInput{
					FromTable:  table.Name,
					FromColumn: col.Name,
					ToTable:    col.ReferencedTable,
					ToColumn:   col.ReferencedColumn,
				})
			}
		}
	}

	if len(edges) > 0 {
		relKind := contracts.ForeignKey
		if kind == connection.KindMongoDB {
			relKind = contracts.Inferred
		}
		if err := s.graph.StoreRelationships(ctx, connectionID, userID, relKind, edges); err != nil {
			s.logger.Warn("storing relationships for connection %s failed: %v", connectionID, err)
			result.Error = err.Error()
		}
	}

	result.ProcessingMs = time.Since(start).Milliseconds()
	return result, nil
}

func (s *Service) discover(ctx context.Context, connectionID, userID uuid.UUID, kind connection.DatabaseKind) ([]*TableInfo, error) {
	switch kind {
	case connection.KindPostgreSQL, connection.KindMySQL:
		return s.discoverSQL(ctx, connectionID, userID, kind)
	case connection.KindMongoDB:
		return s.discoverMongo(ctx, connectionID, userID)
	default:
		return nil, fmt.Errorf("unsupported database kind %q", kind)
	}
}

func (s *Service) discoverSQL(ctx context.Context, connectionID, userID uuid.UUID, kind connection.DatabaseKind) ([]*TableInfo, error) {
	query, err := columnsQuery(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.queryRunner.Execute(ctx, query, connectionID.String(), userID.String(), introspectionMaxRows)
	if err != nil {
		return nil, fmt.Errorf("introspecting columns: %w", err)
	}
	tables, err := parseColumnsRows(rows)
	if err != nil {
		return nil, err
	}

	countQuery, err := rowCountQuery(kind)
	if err != nil {
		return tables, nil
	}
	countRows, err := s.queryRunner.Execute(ctx, countQuery, connectionID.String(), userID.String(), introspectionMaxRows)
	if err != nil {
		s.logger.Warn("row count estimate unavailable for connection %s: %v", connectionID, err)
		return tables, nil
	}
	applyRowCounts(tables, countRows)
	return tables, nil
}

func (s *Service) discoverMongo(ctx context.Context, connectionID, userID uuid.UUID) ([]*TableInfo, error) {
	rows, err := s.queryRunner.Execute(ctx, mongoListCollectionsCommand, connectionID.String(), userID.String(), introspectionMaxRows)
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	names := parseMongoCollections(rows)

	tables := make([]*TableInfo, 0, len(names))
	for _, name := range names {
		sampleRows, err := s.queryRunner.Execute(ctx, mongoSampleCommand(name, s.sampleSize), connectionID.String(), userID.String(), s.sampleSize)
		if err != nil {
			s.logger.Warn("sampling collection %s failed, skipping: %v", name, err)
			continue
		}
		tables = append(tables, parseMongoSample(name, sampleRows))
	}
	return tables, nil
}

// describeTable renders a stable natural-language description of table,
// used both as the embedded text and as the payload handed back to the
// QuerySynthesizer when a search hit needs showing to a user.
func describeTable(table *TableInfo) string {
	cols := make([]string, 0, len(table.Columns))
	var rels []string
	for _, c := range table.Columns {
		cols = append(cols, fmt.Sprintf("%s (%s)", c.Name, c.Type))
		if c.IsForeignKey {
			rels = append(rels, fmt.Sprintf("%s -> %s.%s", c.Name, c.ReferencedTable, c.ReferencedColumn))
		}
	}

	description := fmt.Sprintf("Table: %s. Columns: %s.", table.Name, strings.Join(cols, ", "))
	if len(rels) > 0 {
		description += fmt.Sprintf(" Relationships: %s.", strings.Join(rels, ", "))
	}
	return description
}
