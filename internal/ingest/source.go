package ingest

import (
	"context"
	"fmt"
	"maps"
	"time"
)

// SourceDocument is a document read from an external source.
type SourceDocument struct {
	Path     string
	Content  string
	URL      string
	Metadata map[string]any
}

// Source lists and reads documents from an external location.
type Source interface {
	// Revision identifies the current state of the source, such as a commit SHA.
	Revision(ctx context.Context) (string, error)
	List(ctx context.Context) ([]string, error)
	Fetch(ctx context.Context, path string) (*SourceDocument, error)
}

// SourceResult contains statistics about a source ingestion.
type SourceResult struct {
	Revision       string        `json:"revision"`
	TotalDocs      int           `json:"total_docs"`
	SuccessfulDocs int           `json:"successful_docs"`
	TotalChunks    int           `json:"total_chunks"`
	EmbeddedChunks int           `json:"embedded_chunks"`
	FailedDocs     []FailedDoc   `json:"failed_docs,omitempty"`
	Duration       time.Duration `json:"duration"`
}

// FailedDoc represents a document that failed to ingest.
type FailedDoc struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// IngestSource ingests every document of src. Documents that cannot be
// fetched or stored are recorded in FailedDocs and skipped.
func (p *Pipeline) IngestSource(ctx context.Context, src Source) (*SourceResult, error) {
	start := time.Now()
	result := &SourceResult{}

	revision, err := src.Revision(ctx)
	if err != nil {
		return nil, fmt.Errorf("get revision: %w", err)
	}
	result.Revision = revision
	p.logger.Info("Starting source ingestion", "revision", revision)

	paths, err := src.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	result.TotalDocs = len(paths)
	p.logger.Info("Found documents", "count", len(paths))

	for _, path := range paths {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := p.ingestOne(ctx, src, path, revision)
		if err != nil {
			p.logger.Warn("Failed to ingest document", "path", path, "error", err)
			result.FailedDocs = append(result.FailedDocs, FailedDoc{Path: path, Reason: err.Error()})
			continue
		}
		result.SuccessfulDocs++
		result.TotalChunks += res.Chunks
		result.EmbeddedChunks += res.Embedded
	}

	result.Duration = time.Since(start)
	p.logger.Info("Source ingestion complete",
		"successful", result.SuccessfulDocs,
		"failed", len(result.FailedDocs),
		"chunks", result.TotalChunks,
		"duration", result.Duration,
	)
	return result, nil
}

func (p *Pipeline) ingestOne(ctx context.Context, src Source, path, revision string) (*Result, error) {
	doc, err := src.Fetch(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	md := make(map[string]any, len(doc.Metadata)+3)
	maps.Copy(md, doc.Metadata)
	md["path"] = doc.Path
	if doc.URL != "" {
		md["url"] = doc.URL
	}
	if revision != "" {
		md["revision"] = revision
	}

	return p.Ingest(ctx, Request{Title: doc.Path, Text: doc.Content, Metadata: md})
}
