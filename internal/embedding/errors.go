package embedding

import "errors"

var (
	// ErrUnavailable means embeddings are not configured (no credentials).
	ErrUnavailable = errors.New("embedding provider unavailable")

	// ErrFailure means the provider was reached but did not return a usable vector.
	ErrFailure = errors.New("embedding failed")
)
