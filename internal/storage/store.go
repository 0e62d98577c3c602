// Package storage persists documents and groups.
//
// DocumentStore is implemented by PostgresStore (pgvector) and MemoryStore.
// Every mutating call commits on its own; there are no multi-call
// transactions. QdrantIndex is an optional side-car index that PostgresStore
// can serve Nearest from.
package storage

import "context"

// DocumentStore persists chunks and answers nearest-neighbour queries.
type DocumentStore interface {
	// Insert stores a document and returns its id. Ids increase with every insert.
	Insert(ctx context.Context, doc NewDocument) (uint64, error)

	// Get returns the document with the given id or ErrNotFound.
	Get(ctx context.Context, id uint64) (*Document, error)

	// Update applies the non-nil fields of upd. It returns false without
	// touching storage when upd is empty or no document has the id.
	Update(ctx context.Context, id uint64, upd DocumentUpdate) (bool, error)

	// Delete removes a document and reports whether it existed.
	Delete(ctx context.Context, id uint64) (bool, error)

	// List returns up to limit documents, most recently created first.
	List(ctx context.Context, limit int) ([]Document, error)

	// Nearest returns up to k embedded documents ordered by ascending
	// distance to vec, ties broken by ascending id.
	Nearest(ctx context.Context, vec []float32, k int) ([]ScoredDocument, error)

	Ping(ctx context.Context) error
	Close() error
}

// GroupStore manages the group administrative entity.
type GroupStore interface {
	AddGroup(ctx context.Context, g NewGroup) (uint64, error)
	ListGroups(ctx context.Context, limit int) ([]Group, error)
	DeleteGroup(ctx context.Context, id uint64) (bool, error)
}

// Store is the full persistence surface used by the binaries.
type Store interface {
	DocumentStore
	GroupStore
}
