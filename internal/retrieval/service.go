// Package retrieval answers semantic queries over the document store.
//
// Search never fails outright: when the query cannot be embedded or the
// store cannot rank, it returns the most recent documents instead and marks
// the result as a fallback carrying the cause.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bull/voice-agent/internal/embedding"
	"github.com/bull/voice-agent/internal/storage"
)

// DefaultK is the number of results returned when the caller asks for none.
const DefaultK = 5

// Result is the outcome of a search. Exactly one of Matches or Recent is
// populated: Matches on success, Recent when Fallback is set.
type Result struct {
	Query    string                   `json:"query"`
	Matches  []storage.ScoredDocument `json:"matches,omitempty"`
	Fallback bool                     `json:"fallback"`
	Recent   []storage.Document       `json:"recent,omitempty"`
	Error    string                   `json:"error,omitempty"`

	// Err is the cause of the fallback.
	Err error `json:"-"`
}

// Service embeds queries and ranks stored documents by distance.
type Service struct {
	embedder embedding.Embedder
	store    storage.DocumentStore
	logger   *slog.Logger
}

// NewService creates a retrieval service.
func NewService(embedder embedding.Embedder, store storage.DocumentStore, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{embedder: embedder, store: store, logger: logger}
}

// Search returns the k documents nearest to query. On any failure it
// returns the k most recent documents flagged as a fallback.
func (s *Service) Search(ctx context.Context, query string, k int) *Result {
	if k <= 0 {
		k = DefaultK
	}

	matches, err := s.nearest(ctx, query, k)
	if err == nil {
		return &Result{Query: query, Matches: matches}
	}

	s.logger.Warn("Search degraded to recent documents", "error", err)
	res := &Result{Query: query, Fallback: true, Err: err}

	recent, listErr := s.store.List(ctx, k)
	if listErr != nil {
		s.logger.Error("Fallback listing failed", "error", listErr)
		res.Err = errors.Join(err, fmt.Errorf("fallback: %w", listErr))
		recent = []storage.Document{}
	}
	res.Recent = recent
	res.Error = res.Err.Error()
	return res
}

func (s *Service) nearest(ctx context.Context, query string, k int) ([]storage.ScoredDocument, error) {
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	matches, err := s.store.Nearest(ctx, vec, k)
	if err != nil {
		return nil, fmt.Errorf("nearest: %w", err)
	}
	return matches, nil
}
