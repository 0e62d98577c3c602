package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/voice-agent/internal/agent"
	"github.com/bull/voice-agent/internal/ingest"
	"github.com/bull/voice-agent/internal/retrieval"
	"github.com/bull/voice-agent/internal/storage"
)

// DefaultListLimit is used by list_documents when no limit is given.
const DefaultListLimit = 20

func (s *Server) handleRoute(ctx context.Context, _ *mcp.CallToolRequest, input RouteInput) (
	*mcp.CallToolResult, RouteOutput, error,
) {
	resp := s.agent.Handle(ctx, input.Text)

	out := RouteOutput{
		Tool:    string(resp.Decision.Tool),
		Keyword: resp.Decision.Keyword,
		Params:  resp.Decision.Params,
	}
	if resp.Structured != nil {
		so := structuredOutput(resp.Structured)
		out.Structured = &so
	}
	if resp.Groups != nil {
		g := groupsOutput(resp.Groups)
		out.Groups = &g
	}
	if resp.Search != nil {
		so := searchOutput(resp.Search)
		out.Search = &so
	}
	return nil, out, nil
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (
	*mcp.CallToolResult, SearchOutput, error,
) {
	if input.Query == "" {
		return nil, SearchOutput{}, errors.New("query is required")
	}
	return nil, searchOutput(s.search.Search(ctx, input.Query, input.K)), nil
}

func searchOutput(res *retrieval.Result) SearchOutput {
	out := SearchOutput{
		Query:    res.Query,
		Fallback: res.Fallback,
		Error:    res.Error,
	}

	if res.Fallback {
		out.Documents = toOutputs(res.Recent)
		out.Message = "Search is unavailable; showing the most recent documents instead."
		return out
	}

	out.Documents = make([]DocumentOutput, len(res.Matches))
	for i, m := range res.Matches {
		d := toOutput(m.Document)
		dist := m.Distance
		d.Distance = &dist
		out.Documents[i] = d
	}
	if len(out.Documents) == 0 {
		out.Message = "No matching documents found."
	}
	return out
}

func (s *Server) handleIngest(ctx context.Context, _ *mcp.CallToolRequest, input IngestInput) (
	*mcp.CallToolResult, IngestOutput, error,
) {
	req := ingest.Request{Title: input.Title, Text: input.Text, Metadata: input.Metadata}

	if input.Async {
		if s.queue == nil {
			return nil, IngestOutput{}, ErrNoQueue
		}
		jobID, err := s.queue.Publish(ctx, req)
		if err != nil {
			return nil, IngestOutput{}, fmt.Errorf("queue ingestion: %w", err)
		}
		return nil, IngestOutput{Queued: true, JobID: jobID, ChunkIDs: []uint64{}}, nil
	}

	res, err := s.ingester.Ingest(ctx, req)
	if err != nil {
		return nil, IngestOutput{}, fmt.Errorf("ingest failed: %w", err)
	}
	return nil, IngestOutput{
		RunID:    res.RunID,
		ChunkIDs: res.ChunkIDs,
		Chunks:   res.Chunks,
		Embedded: res.Embedded,
		Failures: res.Failures,
	}, nil
}

func (s *Server) handleGet(ctx context.Context, _ *mcp.CallToolRequest, input DocumentIDInput) (
	*mcp.CallToolResult, GetDocumentOutput, error,
) {
	doc, err := s.store.Get(ctx, input.ID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, GetDocumentOutput{Found: false}, nil
		}
		return nil, GetDocumentOutput{}, fmt.Errorf("failed to fetch document: %w", err)
	}
	out := toOutput(*doc)
	return nil, GetDocumentOutput{Found: true, Document: &out}, nil
}

func (s *Server) handleList(ctx context.Context, _ *mcp.CallToolRequest, input ListInput) (
	*mcp.CallToolResult, ListOutput, error,
) {
	limit := input.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}
	docs, err := s.store.List(ctx, limit)
	if err != nil {
		return nil, ListOutput{}, fmt.Errorf("failed to list documents: %w", err)
	}
	return nil, ListOutput{Documents: toOutputs(docs), Count: len(docs)}, nil
}

func (s *Server) handleUpdate(ctx context.Context, _ *mcp.CallToolRequest, input UpdateInput) (
	*mcp.CallToolResult, ChangeOutput, error,
) {
	changed, err := s.store.Update(ctx, input.ID, storage.DocumentUpdate{
		Title:    input.Title,
		Content:  input.Content,
		Metadata: input.Metadata,
	})
	if err != nil {
		return nil, ChangeOutput{}, fmt.Errorf("failed to update document: %w", err)
	}
	return nil, ChangeOutput{Changed: changed}, nil
}

func (s *Server) handleDelete(ctx context.Context, _ *mcp.CallToolRequest, input DocumentIDInput) (
	*mcp.CallToolResult, ChangeOutput, error,
) {
	existed, err := s.store.Delete(ctx, input.ID)
	if err != nil {
		return nil, ChangeOutput{}, fmt.Errorf("failed to delete document: %w", err)
	}
	return nil, ChangeOutput{Changed: existed}, nil
}

func (s *Server) handleStructured(ctx context.Context, _ *mcp.CallToolRequest, input StructuredInput) (
	*mcp.CallToolResult, StructuredOutput, error,
) {
	return nil, structuredOutput(s.agent.Structured(ctx, input.Action, input.Payload)), nil
}

func structuredOutput(r *agent.StructuredResult) StructuredOutput {
	return StructuredOutput{
		Action:  r.Action,
		Payload: r.Payload,
		DocID:   r.DocID,
		Error:   r.Error,
	}
}

func (s *Server) handleGroups(ctx context.Context, _ *mcp.CallToolRequest, input GroupsInput) (
	*mcp.CallToolResult, GroupsOutput, error,
) {
	res := s.agent.Groups(ctx, agent.GroupCommand{
		Command:     input.Command,
		GroupID:     input.GroupID,
		Name:        input.Name,
		Description: input.Description,
	})
	return nil, groupsOutput(res), nil
}

func groupsOutput(r *agent.GroupsResult) GroupsOutput {
	out := GroupsOutput{OK: r.OK, GroupDBID: r.GroupDBID, Error: r.Error}
	for _, g := range r.Groups {
		out.Groups = append(out.Groups, GroupOutput{
			ID:          g.ID,
			ExternalID:  g.ExternalID,
			Name:        g.Name,
			Description: g.Description,
			CreatedAt:   g.CreatedAt,
		})
	}
	return out
}
