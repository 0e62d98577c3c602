// Package ingest turns documents into stored, embedded chunks.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/bull/voice-agent/internal/chunker"
	"github.com/bull/voice-agent/internal/embedding"
	"github.com/bull/voice-agent/internal/storage"
)

// MetadataChunkIndex is the metadata key holding a chunk's position in its document.
const MetadataChunkIndex = "chunk_index"

// Request is one document to ingest.
type Request struct {
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Result describes a completed ingestion.
type Result struct {
	RunID    string         `json:"run_id"`
	Title    string         `json:"title"`
	ChunkIDs []uint64       `json:"chunk_ids"`
	Chunks   int            `json:"chunks"`
	Embedded int            `json:"embedded"`
	Failures []ChunkFailure `json:"failures,omitempty"`
	Duration time.Duration  `json:"duration"`
}

// ChunkFailure records a chunk that was stored without an embedding.
type ChunkFailure struct {
	Index  int    `json:"index"`
	Reason string `json:"reason"`
}

// Pipeline chunks, embeds and stores documents. It keeps no state between calls.
type Pipeline struct {
	chunker  chunker.Strategy
	embedder embedding.Embedder
	store    storage.DocumentStore
	logger   *slog.Logger
}

// NewPipeline creates a new ingestion pipeline with the given components.
func NewPipeline(
	chunker chunker.Strategy,
	embedder embedding.Embedder,
	store storage.DocumentStore,
	logger *slog.Logger,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Ingest stores every chunk of req.Text in order. A chunk whose embedding
// fails is stored without one and listed in Result.Failures. A store error
// aborts the run; chunks inserted before it remain stored and their ids are
// returned with the error.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	result := &Result{
		RunID:    uuid.NewString(),
		Title:    req.Title,
		ChunkIDs: []uint64{},
	}
	logger := p.logger.With("run_id", result.RunID, "title", req.Title)

	i := 0
	for chunk := range p.chunker.Chunks(req.Text) {
		doc := storage.NewDocument{
			Title:    fmt.Sprintf("%s - chunk %d", req.Title, i),
			Content:  chunk,
			Metadata: chunkMetadata(req.Metadata, i),
		}

		vec, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			logger.Warn("Embedding failed, storing chunk without vector", "chunk", i, "error", err)
			result.Failures = append(result.Failures, ChunkFailure{Index: i, Reason: err.Error()})
		} else {
			doc.Embedding = vec
			result.Embedded++
		}

		id, err := p.store.Insert(ctx, doc)
		if err != nil {
			result.Duration = time.Since(start)
			return result, fmt.Errorf("store chunk %d: %w", i, err)
		}
		result.ChunkIDs = append(result.ChunkIDs, id)
		result.Chunks++
		i++
	}

	result.Duration = time.Since(start)
	logger.Info("Ingestion complete",
		"chunks", result.Chunks,
		"embedded", result.Embedded,
		"failed_embeddings", len(result.Failures),
		"duration", result.Duration,
	)
	return result, nil
}

// chunkMetadata copies base and sets the chunk index, which wins over any
// caller-supplied value.
func chunkMetadata(base map[string]any, index int) map[string]any {
	md := make(map[string]any, len(base)+1)
	maps.Copy(md, base)
	md[MetadataChunkIndex] = index
	return md
}
