package vectorindex

import (
	"context"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
)

// Service implements the VectorIndex operations over a contracts.VectorStore.
// Dimension is fixed at deployment; every upserted vector must match it.
type Service struct {
	store     contracts.VectorStore
	dimension int
}

// NewService binds a VectorStore and the deployment's fixed vector dimension.
func NewService(store contracts.VectorStore, dimension int) *Service {
	return &Service{store: store, dimension: dimension}
}

// Upsert stores one point, keyed by its ID.
func (s *Service) Upsert(ctx context.Context, point contracts.VectorPoint) error {
	if point.ID == "" {
		return contracts.NewError(contracts.ErrValidation, "vector point id is required")
	}
	if len(point.Vector) != s.dimension {
		return contracts.NewErrorf(contracts.ErrValidation, "vector has dimension %d, expected %d", len(point.Vector), s.dimension)
	}
	if err := s.store.Upsert(ctx, []contracts.VectorPoint{point}); err != nil {
		return contracts.NewErrorf(contracts.ErrUpstreamUnavail, "vector store upsert: %v", err)
	}
	return nil
}

// Search returns the top-k points matching filter, ranked by similarity.
// Although the underlying store is asked to apply filter server-side, the
// per-user boundary is re-checked here: a result whose payload disagrees
// with a supplied filter field is dropped rather than trusted to the store.
func (s *Service) Search(ctx context.Context, query []float32, k int, filter contracts.VectorFilter) ([]contracts.VectorScored, error) {
	if len(query) != s.dimension {
		return nil, contracts.NewErrorf(contracts.ErrValidation, "query has dimension %d, expected %d", len(query), s.dimension)
	}
	if k <= 0 {
		return nil, contracts.NewError(contracts.ErrValidation, "k must be positive")
	}

	results, err := s.store.Search(ctx, query, k, filter)
	if err != nil {
		return nil, contracts.NewErrorf(contracts.ErrUpstreamUnavail, "vector store search: %v", err)
	}

	out := make([]contracts.VectorScored, 0, len(results))
	for _, r := range results {
		if filter.UserID != "" && r.Payload["userId"] != filter.UserID {
			continue
		}
		if filter.ConnectionID != "" && r.Payload["connectionId"] != filter.ConnectionID {
			continue
		}
		out = append(out, r)
	}
	if len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// DeleteByConnection removes every point payload-tagged with connectionID.
func (s *Service) DeleteByConnection(ctx context.Context, connectionID string) error {
	if err := s.store.DeleteByPayloadField(ctx, "connectionId", connectionID); err != nil {
		return contracts.NewErrorf(contracts.ErrUpstreamUnavail, "vector store delete: %v", err)
	}
	return nil
}

// PurgeConnection satisfies connection.IndexPurger by structural typing, so
// ConnectionManager can cascade-delete into this component without either
// package importing the other.
func (s *Service) PurgeConnection(ctx context.Context, connectionID uuid.UUID) error {
	return s.DeleteByConnection(ctx, connectionID.String())
}
