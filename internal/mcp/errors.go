package mcp

import "errors"

var (
	ErrMissingStore    = errors.New("mcp: document store is required")
	ErrMissingSearch   = errors.New("mcp: search service is required")
	ErrMissingIngester = errors.New("mcp: ingestion pipeline is required")
	ErrNoQueue         = errors.New("asynchronous ingestion is not configured")
)
