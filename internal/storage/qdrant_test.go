//go:build integration

package storage

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestIndex connects to a local Qdrant with a throwaway collection.
// Skips test if Qdrant is not running.
func setupTestIndex(t *testing.T, dim int) *QdrantIndex {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	idx, err := NewQdrantIndex(ctx, "localhost", 6334, "test-"+uuid.NewString(), dim)
	if err != nil {
		t.Skipf("Qdrant not available: %v", err)
	}
	require.NoError(t, idx.EnsureCollection(context.Background()), "Failed to ensure collection")

	t.Cleanup(func() {
		_ = idx.client.DeleteCollection(context.Background(), idx.collection)
		_ = idx.Close()
	})
	return idx
}

func TestQdrantIndex_SearchOrder(t *testing.T) {
	idx := setupTestIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.UpsertBatch(ctx, []IndexPoint{
		{ID: 1, Vector: []float32{3, 4}},
		{ID: 2, Vector: []float32{0, 1}},
		{ID: 3, Vector: []float32{10, 10}},
	}))

	hits, err := idx.Search(ctx, []float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, uint64(2), hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Distance, 1e-4)
	assert.Equal(t, uint64(1), hits[1].ID)
	assert.InDelta(t, 5.0, hits[1].Distance, 1e-4)
}

func TestQdrantIndex_DeleteAndCount(t *testing.T) {
	idx := setupTestIndex(t, 2)
	ctx := context.Background()

	require.NoError(t, idx.Upsert(ctx, 7, []float32{1, 1}))
	n, err := idx.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), n)

	require.NoError(t, idx.Delete(ctx, 7))
	require.NoError(t, idx.Delete(ctx, 7), "deleting a missing point is not an error")

	n, err = idx.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestQdrantIndex_DimensionMismatch(t *testing.T) {
	idx := setupTestIndex(t, 2)

	err := idx.Upsert(context.Background(), 1, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}
