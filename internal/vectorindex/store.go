// Package vectorindex implements the VectorIndex component: one embedding
// per SchemaUnit, searchable by top-K similarity, deletable by connection.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"
)

// PineconeConfig configures the default Pinecone-backed VectorStore adapter.
type PineconeConfig struct {
	APIKey    string
	IndexName string
	Namespace string
}

// PineconeStore is the default contracts.VectorStore adapter, backed by a
// single Pinecone index namespace.
type PineconeStore struct {
	conn *pinecone.IndexConnection
}

// NewPineconeStore resolves cfg.IndexName's host and opens a namespaced
// connection to it.
func NewPineconeStore(ctx context.Context, cfg PineconeConfig) (*PineconeStore, error) {
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("pinecone client: %w", err)
	}

	idx, err := client.DescribeIndex(ctx, cfg.IndexName)
	if err != nil {
		return nil, fmt.Errorf("describe index %q: %w", cfg.IndexName, err)
	}

	conn, err := client.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("open index connection: %w", err)
	}

	return &PineconeStore{conn: conn}, nil
}

// Upsert implements contracts.VectorStore.
func (s *PineconeStore) Upsert(ctx context.Context, points []contracts.VectorPoint) error {
	if len(points) == 0 {
		return nil
	}

	vectors := make([]*pinecone.Vector, 0, len(points))
	for _, p := range points {
		meta, err := payloadToStruct(p.Payload)
		if err != nil {
			return fmt.Errorf("encode payload for %s: %w", p.ID, err)
		}
		vectors = append(vectors, &pinecone.Vector{
			Id:       p.ID,
			Values:   p.Vector,
			Metadata: meta,
		})
	}

	_, err := s.conn.UpsertVectors(ctx, vectors)
	if err != nil {
		return fmt.Errorf("pinecone upsert: %w", err)
	}
	return nil
}

// Search implements contracts.VectorStore. Results come back in the order
// Pinecone ranks them (descending score); that order is also this store's
// tiebreaker for equal scores.
func (s *PineconeStore) Search(ctx context.Context, query []float32, k int, filter contracts.VectorFilter) ([]contracts.VectorScored, error) {
	f, err := filterToStruct(filter)
	if err != nil {
		return nil, fmt.Errorf("encode filter: %w", err)
	}

	resp, err := s.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          query,
		TopK:            uint32(k),
		Filter:          f,
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("pinecone query: %w", err)
	}

	out := make([]contracts.VectorScored, 0, len(resp.Matches))
	for _, m := range resp.Matches {
		out = append(out, contracts.VectorScored{
			Payload: structToPayload(m.Vector.Metadata),
			Score:   m.Score,
		})
	}
	return out, nil
}

// DeleteByPayloadField implements contracts.VectorStore.
func (s *PineconeStore) DeleteByPayloadField(ctx context.Context, field, value string) error {
	f, err := structpb.NewStruct(map[string]interface{}{
		field: map[string]interface{}{"$eq": value},
	})
	if err != nil {
		return fmt.Errorf("encode delete filter: %w", err)
	}
	if err := s.conn.DeleteVectorsByFilter(ctx, f); err != nil {
		return fmt.Errorf("pinecone delete: %w", err)
	}
	return nil
}

func payloadToStruct(payload map[string]string) (*structpb.Struct, error) {
	if len(payload) == 0 {
		return nil, nil
	}
	fields := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		fields[k] = v
	}
	return structpb.NewStruct(fields)
}

func structToPayload(s *structpb.Struct) map[string]string {
	if s == nil {
		return nil
	}
	out := make(map[string]string, len(s.Fields))
	for k, v := range s.Fields {
		out[k] = v.GetStringValue()
	}
	return out
}

func filterToStruct(filter contracts.VectorFilter) (*structpb.Struct, error) {
	fields := make(map[string]interface{})
	if filter.UserID != "" {
		fields["userId"] = map[string]interface{}{"$eq": filter.UserID}
	}
	if filter.ConnectionID != "" {
		fields["connectionId"] = map[string]interface{}{"$eq": filter.ConnectionID}
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return structpb.NewStruct(fields)
}

var _ contracts.VectorStore = (*PineconeStore)(nil)
