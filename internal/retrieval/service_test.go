package retrieval

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/voice-agent/internal/config"
	"github.com/bull/voice-agent/internal/embedding"
	"github.com/bull/voice-agent/internal/storage"
)

type staticEmbedder struct {
	vec []float32
}

func (e staticEmbedder) Embed(context.Context, string) ([]float32, error) { return e.vec, nil }
func (e staticEmbedder) Model() string                                    { return "static" }
func (e staticEmbedder) Dimension() int                                   { return len(e.vec) }

func seed(t *testing.T, store *storage.MemoryStore, n int) []uint64 {
	t.Helper()
	ids := make([]uint64, n)
	for i := range n {
		id, err := store.Insert(context.Background(), storage.NewDocument{
			Title:     fmt.Sprintf("doc %d", i),
			Embedding: []float32{float32(i), 0},
		})
		require.NoError(t, err)
		ids[i] = id
	}
	return ids
}

func TestSearch_Ranked(t *testing.T) {
	store := storage.NewMemoryStore(2)
	ids := seed(t, store, 4)

	svc := NewService(staticEmbedder{vec: []float32{2.2, 0}}, store, nil)
	res := svc.Search(context.Background(), "quarterly report", 2)

	assert.False(t, res.Fallback)
	assert.Empty(t, res.Error)
	require.Len(t, res.Matches, 2)
	assert.Equal(t, ids[2], res.Matches[0].ID)
	assert.Equal(t, ids[3], res.Matches[1].ID)
}

func TestSearch_FallbackWhenUnconfigured(t *testing.T) {
	store := storage.NewMemoryStore(2)
	ids := seed(t, store, 7)

	_, cause := embedding.NewClient(embedding.Config{})
	svc := NewService(embedding.NewUnavailable(cause, "none", 2), store, nil)

	res := svc.Search(context.Background(), "anything", 5)
	assert.True(t, res.Fallback)
	assert.Empty(t, res.Matches)
	require.Len(t, res.Recent, 5)
	assert.Equal(t, ids[6], res.Recent[0].ID, "newest first")
	assert.ErrorIs(t, res.Err, embedding.ErrUnavailable)
	assert.ErrorIs(t, res.Err, config.ErrConfiguration)
	assert.Contains(t, res.Error, "OPENAI_API_KEY")
}

func TestSearch_FallbackFewerThanK(t *testing.T) {
	store := storage.NewMemoryStore(2)
	seed(t, store, 2)

	svc := NewService(embedding.NewUnavailable(nil, "none", 2), store, nil)
	res := svc.Search(context.Background(), "q", 5)
	assert.True(t, res.Fallback)
	assert.Len(t, res.Recent, 2)
}

func TestSearch_FallbackOnStoreError(t *testing.T) {
	store := storage.NewMemoryStore(3)
	_, err := store.Insert(context.Background(), storage.NewDocument{Title: "x"})
	require.NoError(t, err)

	// A query vector of the wrong dimension makes Nearest fail.
	svc := NewService(staticEmbedder{vec: []float32{1, 2}}, store, nil)
	res := svc.Search(context.Background(), "q", 3)
	assert.True(t, res.Fallback)
	assert.ErrorIs(t, res.Err, storage.ErrDimensionMismatch)
	assert.Len(t, res.Recent, 1)
}

type brokenStore struct {
	*storage.MemoryStore
}

func (brokenStore) List(context.Context, int) ([]storage.Document, error) {
	return nil, fmt.Errorf("%w: connection refused", storage.ErrStore)
}

func TestSearch_FallbackListingFails(t *testing.T) {
	svc := NewService(embedding.NewUnavailable(nil, "none", 2), brokenStore{storage.NewMemoryStore(2)}, nil)

	res := svc.Search(context.Background(), "q", 0)
	assert.True(t, res.Fallback)
	assert.Empty(t, res.Recent)
	assert.ErrorIs(t, res.Err, embedding.ErrUnavailable)
	assert.ErrorIs(t, res.Err, storage.ErrStore)
}

func TestSearch_DefaultK(t *testing.T) {
	store := storage.NewMemoryStore(2)
	seed(t, store, 8)

	svc := NewService(staticEmbedder{vec: []float32{0, 0}}, store, nil)
	res := svc.Search(context.Background(), "q", 0)
	assert.Len(t, res.Matches, DefaultK)
}
