package vectorindex

import (
	"context"
	"testing"

	"github.com/HelixDevelopment/nldbexplorer/internal/contracts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testDimension = 3

func point(id, userID, connectionID string, vector []float32) contracts.VectorPoint {
	return contracts.VectorPoint{
		ID:     id,
		Vector: vector,
		Payload: map[string]string{
			"userId":       userID,
			"connectionId": connectionID,
			"tableName":    id,
		},
	}
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	svc := NewService(newFakeStore(), testDimension)
	err := svc.Upsert(context.Background(), point("p1", "u1", "c1", []float32{1, 2}))
	require.Error(t, err)
	var ce *contracts.Error
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, contracts.ErrValidation, ce.Kind)
}

func TestUpsert_RejectsEmptyID(t *testing.T) {
	svc := NewService(newFakeStore(), testDimension)
	p := point("", "u1", "c1", []float32{1, 0, 0})
	err := svc.Upsert(context.Background(), p)
	require.Error(t, err)
}

func TestSearch_RanksBySimilarityAndCapsAtK(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDimension)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, point("low", "u1", "c1", []float32{0, 0, 1})))
	require.NoError(t, svc.Upsert(ctx, point("high", "u1", "c1", []float32{1, 0, 0})))
	require.NoError(t, svc.Upsert(ctx, point("mid", "u1", "c1", []float32{0.5, 0, 0.5})))

	results, err := svc.Search(ctx, []float32{1, 0, 0}, 2, contracts.VectorFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "high", results[0].Payload["tableName"])
	assert.Equal(t, "mid", results[1].Payload["tableName"])
}

func TestSearch_EnforcesUserIDFilterEvenIfStoreDoesNot(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDimension)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, point("mine", "u1", "c1", []float32{1, 0, 0})))
	require.NoError(t, svc.Upsert(ctx, point("theirs", "u2", "c1", []float32{1, 0, 0})))

	results, err := svc.Search(ctx, []float32{1, 0, 0}, 10, contracts.VectorFilter{UserID: "u1"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "mine", results[0].Payload["tableName"])
}

func TestSearch_RejectsWrongDimensionQuery(t *testing.T) {
	svc := NewService(newFakeStore(), testDimension)
	_, err := svc.Search(context.Background(), []float32{1, 0}, 5, contracts.VectorFilter{})
	require.Error(t, err)
}

func TestDeleteByConnection_RemovesOnlyMatchingPoints(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDimension)
	ctx := context.Background()

	require.NoError(t, svc.Upsert(ctx, point("a", "u1", "c1", []float32{1, 0, 0})))
	require.NoError(t, svc.Upsert(ctx, point("b", "u1", "c2", []float32{1, 0, 0})))

	require.NoError(t, svc.DeleteByConnection(ctx, "c1"))

	results, err := svc.Search(ctx, []float32{1, 0, 0}, 10, contracts.VectorFilter{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b", results[0].Payload["tableName"])
}

func TestPurgeConnection_DelegatesToDeleteByConnection(t *testing.T) {
	store := newFakeStore()
	svc := NewService(store, testDimension)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, svc.Upsert(ctx, point("a", "u1", id.String(), []float32{1, 0, 0})))
	require.NoError(t, svc.PurgeConnection(ctx, id))

	results, err := svc.Search(ctx, []float32{1, 0, 0}, 10, contracts.VectorFilter{})
	require.NoError(t, err)
	assert.Empty(t, results)
}
