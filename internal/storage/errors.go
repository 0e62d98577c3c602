package storage

import "errors"

var (
	// ErrNotFound is returned by Get when no document has the requested id.
	ErrNotFound = errors.New("document not found")

	// ErrDimensionMismatch is returned when a vector does not have the
	// dimension the store was created with.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrStore wraps failures of the persistence layer.
	ErrStore = errors.New("document store error")

	// ErrIndexUnreachable means the side-car vector index could not be reached.
	ErrIndexUnreachable = errors.New("vector index unreachable")
)
