package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/voice-agent/internal/config"
	"github.com/bull/voice-agent/internal/embedding"
	"github.com/bull/voice-agent/internal/ingest"
)

func memoryConfig() *config.Config {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendMemory
	cfg.Store.Dimension = 4
	cfg.Chunker.Size = 20
	cfg.Chunker.Overlap = 5
	return cfg
}

func TestNew_MemoryWithoutCredentials(t *testing.T) {
	ctx := context.Background()
	a, err := New(ctx, memoryConfig(), nil, Options{Migrate: true, StartWorker: true})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.Postgres)
	assert.Nil(t, a.Publisher, "queue is disabled without RABBITMQ_URL")

	_, ok := a.Embedder.(*embedding.Unavailable)
	assert.True(t, ok, "embedder degrades without an API key")
	assert.Equal(t, 4, a.Embedder.Dimension())
	assert.Zero(t, a.Transcriber.Len())

	res, err := a.Pipeline.Ingest(ctx, ingest.Request{Title: "Doc", Text: "a short document that spans more than one chunk"})
	require.NoError(t, err)
	assert.Greater(t, res.Chunks, 1)
	assert.Zero(t, res.Embedded)

	sr := a.Retrieval.Search(ctx, "anything", 2)
	assert.True(t, sr.Fallback)
	assert.ErrorIs(t, sr.Err, embedding.ErrUnavailable)
	assert.Len(t, sr.Recent, 2)
}

func TestNew_LocalTranscriber(t *testing.T) {
	cfg := memoryConfig()
	cfg.Transcribe.LocalCommand = "echo"

	a, err := New(context.Background(), cfg, nil, Options{})
	require.NoError(t, err)
	defer a.Close()

	assert.Equal(t, 1, a.Transcriber.Len())
	text, err := a.Transcriber.Transcribe(context.Background(), "clip.wav")
	require.NoError(t, err)
	assert.Equal(t, "clip.wav", text)
}

func TestNew_InvalidChunker(t *testing.T) {
	cfg := memoryConfig()
	cfg.Chunker.Strategy = "sentences"

	_, err := New(context.Background(), cfg, nil, Options{})
	assert.ErrorIs(t, err, config.ErrConfiguration)
}

func TestNew_PostgresRequiresDSN(t *testing.T) {
	cfg := memoryConfig()
	cfg.Store.Backend = config.BackendPostgres

	_, err := New(context.Background(), cfg, nil, Options{})
	assert.ErrorIs(t, err, config.ErrConfiguration)
}
