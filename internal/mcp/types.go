// Package mcp exposes the voice agent's tools over the Model Context Protocol.
package mcp

import (
	"time"

	"github.com/bull/voice-agent/internal/ingest"
	"github.com/bull/voice-agent/internal/storage"
)

// DocumentOutput is a stored document as returned by the tools.
type DocumentOutput struct {
	ID           uint64         `json:"id"`
	Title        string         `json:"title"`
	Content      string         `json:"content"`
	Metadata     map[string]any `json:"metadata"`
	HasEmbedding bool           `json:"has_embedding"`
	CreatedAt    time.Time      `json:"created_at"`
	// Distance is set for search matches only.
	Distance *float64 `json:"distance,omitempty"`
}

func toOutput(d storage.Document) DocumentOutput {
	return DocumentOutput{
		ID:           d.ID,
		Title:        d.Title,
		Content:      d.Content,
		Metadata:     d.Metadata,
		HasEmbedding: d.HasEmbedding(),
		CreatedAt:    d.CreatedAt,
	}
}

func toOutputs(docs []storage.Document) []DocumentOutput {
	out := make([]DocumentOutput, len(docs))
	for i := range docs {
		out[i] = toOutput(docs[i])
	}
	return out
}

// RouteInput defines the input parameters for the route_text tool.
type RouteInput struct {
	Text string `json:"text" jsonschema:"transcribed or typed text to route to a tool"`
}

// RouteOutput is the routing decision and the output of the chosen tool.
type RouteOutput struct {
	Tool       string            `json:"tool"`
	Keyword    string            `json:"keyword,omitempty"`
	Params     map[string]any    `json:"params"`
	Structured *StructuredOutput `json:"structured,omitempty"`
	Groups     *GroupsOutput     `json:"groups,omitempty"`
	Search     *SearchOutput     `json:"search,omitempty"`
}

// SearchInput defines the input parameters for the search_documents tool.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the semantic search query"`
	K     int    `json:"k,omitempty" jsonschema:"maximum number of documents to return (default 5)"`
}

// SearchOutput contains the search results. When Fallback is set the
// documents are the most recent ones, not ranked matches.
type SearchOutput struct {
	Query     string           `json:"query"`
	Documents []DocumentOutput `json:"documents"`
	Fallback  bool             `json:"fallback"`
	Error     string           `json:"error,omitempty"`
	Message   string           `json:"message,omitempty"`
}

// IngestInput defines the input parameters for the ingest_document tool.
type IngestInput struct {
	Title    string         `json:"title" jsonschema:"title of the document; chunks are titled after it"`
	Text     string         `json:"text" jsonschema:"full text to chunk and embed"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"metadata copied onto every chunk"`
	Async    bool           `json:"async,omitempty" jsonschema:"queue the document instead of ingesting it now"`
}

// IngestOutput reports an ingestion run, or the queued job when Async was set.
type IngestOutput struct {
	Queued   bool                  `json:"queued"`
	JobID    string                `json:"job_id,omitempty"`
	RunID    string                `json:"run_id,omitempty"`
	ChunkIDs []uint64              `json:"chunk_ids"`
	Chunks   int                   `json:"chunks"`
	Embedded int                   `json:"embedded"`
	Failures []ingest.ChunkFailure `json:"failures,omitempty"`
}

// DocumentIDInput identifies one document.
type DocumentIDInput struct {
	ID uint64 `json:"id" jsonschema:"document id"`
}

// GetDocumentOutput contains the requested document when Found is set.
type GetDocumentOutput struct {
	Found    bool            `json:"found"`
	Document *DocumentOutput `json:"document,omitempty"`
}

// ListInput defines the input parameters for the list_documents tool.
type ListInput struct {
	Limit int `json:"limit,omitempty" jsonschema:"maximum number of documents to return (default 20)"`
}

// ListOutput contains the most recent documents.
type ListOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// UpdateInput defines the input parameters for the update_document tool.
type UpdateInput struct {
	ID       uint64         `json:"id" jsonschema:"document id"`
	Title    *string        `json:"title,omitempty" jsonschema:"new title"`
	Content  *string        `json:"content,omitempty" jsonschema:"new content"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"replacement metadata"`
}

// ChangeOutput reports whether an update or delete touched a document.
type ChangeOutput struct {
	Changed bool `json:"changed"`
}

// StructuredInput defines the input parameters for the structured_action tool.
type StructuredInput struct {
	Action  string         `json:"action" jsonschema:"query or insert_document"`
	Payload map[string]any `json:"payload,omitempty" jsonschema:"action payload; insert_document reads title, content, metadata and embedding"`
}

// StructuredOutput is the result of a structured action.
type StructuredOutput struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
	DocID   uint64         `json:"doc_id,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// GroupsInput defines the input parameters for the manage_groups tool.
type GroupsInput struct {
	Command     string `json:"command" jsonschema:"list, add or delete"`
	GroupID     *int64 `json:"group_id,omitempty" jsonschema:"platform group id for add, stored group id for delete"`
	Name        string `json:"name,omitempty" jsonschema:"group name, required for add"`
	Description string `json:"description,omitempty" jsonschema:"group description"`
}

// GroupOutput is a stored group.
type GroupOutput struct {
	ID          uint64    `json:"id"`
	ExternalID  int64     `json:"external_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// GroupsOutput is the result of a group command.
type GroupsOutput struct {
	OK        bool          `json:"ok"`
	Groups    []GroupOutput `json:"groups,omitempty"`
	GroupDBID uint64        `json:"group_db_id,omitempty"`
	Error     string        `json:"error,omitempty"`
}
