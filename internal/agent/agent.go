// Package agent routes free-form text to the tool that should handle it.
//
// Route is a keyword heuristic; Agent executes the chosen tool. Tool
// failures are reported inside the response payload so that callers can
// render them, never as Go errors.
package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/bull/voice-agent/internal/retrieval"
	"github.com/bull/voice-agent/internal/storage"
)

// SearchK is the number of results the search tool asks for.
const SearchK = 5

// Structured tool actions.
const (
	ActionQuery          = "query"
	ActionInsertDocument = "insert_document"
)

// Group tool commands.
const (
	CommandList   = "list"
	CommandAdd    = "add"
	CommandDelete = "delete"
)

// DefaultGroupLimit caps the group listing.
const DefaultGroupLimit = 50

// Searcher runs a semantic search.
type Searcher interface {
	Search(ctx context.Context, query string, k int) *retrieval.Result
}

// Response is the result of handling one text.
type Response struct {
	Text       string            `json:"text"`
	Decision   Decision          `json:"decision"`
	Structured *StructuredResult `json:"structured,omitempty"`
	Groups     *GroupsResult     `json:"groups,omitempty"`
	Search     *retrieval.Result `json:"search,omitempty"`
}

// StructuredResult is the payload of the structured tool.
type StructuredResult struct {
	Action  string         `json:"action"`
	Payload map[string]any `json:"payload,omitempty"`
	DocID   uint64         `json:"doc_id,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// GroupCommand is a request to the groups tool. For add, GroupID is the
// platform's group id; for delete it is the stored group's id.
type GroupCommand struct {
	Command     string `json:"command"`
	GroupID     *int64 `json:"group_id,omitempty"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
}

// GroupsResult is the payload of the groups tool.
type GroupsResult struct {
	OK        bool            `json:"ok"`
	Groups    []storage.Group `json:"groups,omitempty"`
	GroupDBID uint64          `json:"group_db_id,omitempty"`
	Error     string          `json:"error,omitempty"`
}

// Agent dispatches routed text to the structured, groups or search tool.
type Agent struct {
	store    storage.Store
	searcher Searcher
	logger   *slog.Logger
}

// New creates an Agent.
func New(store storage.Store, searcher Searcher, logger *slog.Logger) *Agent {
	if logger == nil {
		logger = slog.Default()
	}
	return &Agent{store: store, searcher: searcher, logger: logger}
}

// Handle routes text and runs the selected tool with its default parameters.
func (a *Agent) Handle(ctx context.Context, text string) Response {
	d := Route(text)
	a.logger.Info("Routed text", "tool", d.Tool, "keyword", d.Keyword)

	resp := Response{Text: text, Decision: d}
	switch d.Tool {
	case ToolStructured:
		resp.Structured = a.Structured(ctx, ActionQuery, map[string]any{"text": text})
	case ToolGroups:
		resp.Groups = a.Groups(ctx, GroupCommand{Command: CommandList})
	default:
		resp.Search = a.searcher.Search(ctx, text, SearchK)
	}
	return resp
}

type insertPayload struct {
	Title     string         `json:"title"`
	Content   string         `json:"content"`
	Metadata  map[string]any `json:"metadata"`
	Embedding []float32      `json:"embedding"`
}

// Structured runs a structured-data action. The query action echoes its
// payload; insert_document stores a document from it.
func (a *Agent) Structured(ctx context.Context, action string, payload map[string]any) *StructuredResult {
	res := &StructuredResult{Action: action}
	if action != ActionInsertDocument {
		res.Payload = payload
		return res
	}

	var in insertPayload
	if err := decodePayload(payload, &in); err != nil {
		res.Error = err.Error()
		return res
	}
	if in.Title == "" && in.Content == "" {
		res.Error = "title or content required to insert a document"
		return res
	}

	id, err := a.store.Insert(ctx, storage.NewDocument{
		Title:     in.Title,
		Content:   in.Content,
		Metadata:  in.Metadata,
		Embedding: in.Embedding,
	})
	if err != nil {
		a.logger.Warn("Structured insert failed", "error", err)
		res.Error = err.Error()
		return res
	}
	res.DocID = id
	return res
}

// Groups runs a group management command.
func (a *Agent) Groups(ctx context.Context, cmd GroupCommand) *GroupsResult {
	switch cmd.Command {
	case CommandList:
		groups, err := a.store.ListGroups(ctx, DefaultGroupLimit)
		if err != nil {
			return &GroupsResult{Error: err.Error()}
		}
		return &GroupsResult{OK: true, Groups: groups}

	case CommandAdd:
		if cmd.GroupID == nil || cmd.Name == "" {
			return &GroupsResult{Error: "group_id and name required to add"}
		}
		id, err := a.store.AddGroup(ctx, storage.NewGroup{
			ExternalID:  *cmd.GroupID,
			Name:        cmd.Name,
			Description: cmd.Description,
		})
		if err != nil {
			return &GroupsResult{Error: err.Error()}
		}
		return &GroupsResult{OK: true, GroupDBID: id}

	case CommandDelete:
		if cmd.GroupID == nil || *cmd.GroupID <= 0 {
			return &GroupsResult{Error: "group_id required to delete"}
		}
		deleted, err := a.store.DeleteGroup(ctx, uint64(*cmd.GroupID))
		if err != nil {
			return &GroupsResult{Error: err.Error()}
		}
		return &GroupsResult{OK: deleted}

	default:
		return &GroupsResult{Error: fmt.Sprintf("unknown command %q", cmd.Command)}
	}
}

func decodePayload(payload map[string]any, v any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
