package graphindex

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
)

// EdgeInput is one caller-supplied edge, as SchemaIngestor discovers it.
// Kind is supplied once per StoreRelationships call, not per edge, since a
// single ingestion pass emits one kind of edge at a time (declared
// foreign keys, then inferred ones).
type EdgeInput struct {
	FromTable  string
	FromColumn string
	ToTable    string
	ToColumn   string
}

// Service implements the GraphIndex operations over a contracts.GraphStore.
type Service struct {
	store contracts.GraphStore
}

// NewService binds a GraphStore.
func NewService(store contracts.GraphStore) *Service {
	return &Service{store: store}
}

// StoreRelationships replaces connectionID's edge set atomically. userID is
// accepted for call-shape parity with the rest of this component's
// operations; ownership of connectionID is already enforced by the caller
// via ConnectionManager, so this component does not itself check it.
func (s *Service) StoreRelationships(ctx context.Context, connectionID, userID uuid.UUID, kind contracts.RelationshipKind, edges []EdgeInput) error {
	_ = userID
	out := make([]contracts.GraphEdge, len(edges))
	for i, e := range edges {
		out[i] = contracts.GraphEdge{
			ConnectionID: connectionID.String(),
			FromTable:    e.FromTable,
			FromColumn:   e.FromColumn,
			ToTable:      e.ToTable,
			ToColumn:     e.ToColumn,
			Kind:         kind,
		}
	}
	if err := s.store.UpsertEdges(ctx, connectionID.String(), out); err != nil {
		return contracts.NewErrorf(contracts.ErrInternal, "graph store upsert: %v", err)
	}
	return nil
}

// FindPaths returns every shortest path between source and target, bounded
// by maxDepth (inclusive).
func (s *Service) FindPaths(ctx context.Context, connectionID uuid.UUID, source, target string, maxDepth int) ([]contracts.GraphPath, error) {
	if maxDepth < 0 {
		return nil, contracts.NewError(contracts.ErrValidation, "maxDepth must not be negative")
	}
	paths, err := s.store.ShortestPaths(ctx, connectionID.String(), source, target, maxDepth)
	if err != nil {
		return nil, contracts.NewErrorf(contracts.ErrInternal, "graph store shortest paths: %v", err)
	}
	return paths, nil
}

// RelatedTables returns every table reachable from table within maxDepth
// hops, paired with its distance.
func (s *Service) RelatedTables(ctx context.Context, connectionID uuid.UUID, table string, maxDepth int) ([]contracts.TableDistance, error) {
	if maxDepth < 0 {
		return nil, contracts.NewError(contracts.ErrValidation, "maxDepth must not be negative")
	}
	related, err := s.store.Neighbors(ctx, connectionID.String(), table, maxDepth)
	if err != nil {
		return nil, contracts.NewErrorf(contracts.ErrInternal, "graph store neighbors: %v", err)
	}
	return related, nil
}

// AnalyzeDependencies reports, for each requested table, the tables it
// directly depends on and its in-degree within the connection's graph.
func (s *Service) AnalyzeDependencies(ctx context.Context, connectionID uuid.UUID, tables []string) (map[string][]string, map[string]int, error) {
	deps, counts, err := s.store.AnalyzeDependencies(ctx, connectionID.String(), tables)
	if err != nil {
		return nil, nil, contracts.NewErrorf(contracts.ErrInternal, "graph store analyze dependencies: %v", err)
	}
	return deps, counts, nil
}

// DeleteByConnection removes every edge keyed by connectionID.
func (s *Service) DeleteByConnection(ctx context.Context, connectionID uuid.UUID) error {
	if err := s.store.DeleteByKey(ctx, connectionID.String()); err != nil {
		return contracts.NewErrorf(contracts.ErrInternal, "graph store delete: %v", err)
	}
	return nil
}

// PurgeConnection satisfies connection.IndexPurger by structural typing, so
// ConnectionManager can cascade-delete into this component without either
// package importing the other.
func (s *Service) PurgeConnection(ctx context.Context, connectionID uuid.UUID) error {
	return s.DeleteByConnection(ctx, connectionID)
}
