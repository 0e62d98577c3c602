package storage

import (
	"maps"
	"time"
)

// Document is a stored chunk of text. Embedding is nil when the chunk was
// stored without a vector; such documents never appear in Nearest results.
type Document struct {
	ID        uint64         `json:"id"`
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"-"`
	CreatedAt time.Time      `json:"created_at"`
}

// HasEmbedding reports whether the document takes part in nearest-neighbour search.
func (d *Document) HasEmbedding() bool {
	return len(d.Embedding) > 0
}

// NewDocument holds the fields supplied on insert. ID and CreatedAt are
// assigned by the store.
type NewDocument struct {
	Title     string
	Content   string
	Metadata  map[string]any
	Embedding []float32
}

// DocumentUpdate lists the fields to change. Nil fields are left untouched.
type DocumentUpdate struct {
	Title    *string        `json:"title,omitempty"`
	Content  *string        `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u DocumentUpdate) IsEmpty() bool {
	return u.Title == nil && u.Content == nil && u.Metadata == nil
}

// ScoredDocument is a Nearest result. Distance is the Euclidean (L2)
// distance between the query and the document embedding.
type ScoredDocument struct {
	Document
	Distance float64 `json:"distance"`
}

// Group is a named chat group managed through the administrative surface.
// ExternalID is the group's numeric id on the messaging platform.
type Group struct {
	ID          uint64         `json:"id"`
	ExternalID  int64          `json:"external_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
	CreatedAt   time.Time      `json:"created_at"`
}

// NewGroup holds the fields supplied when adding a group.
type NewGroup struct {
	ExternalID  int64          `json:"external_id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata"`
}

// cloneMetadata returns a shallow copy that is never nil.
func cloneMetadata(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return maps.Clone(m)
}
