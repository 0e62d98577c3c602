package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/bull/voice-agent/internal/agent"
	"github.com/bull/voice-agent/internal/ingest"
	"github.com/bull/voice-agent/internal/storage"
)

// Ingester runs an ingestion synchronously.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// Enqueuer hands an ingestion to the background worker and returns the job id.
type Enqueuer interface {
	Publish(ctx context.Context, req ingest.Request) (string, error)
}

// Config holds server dependencies. Queue is optional.
type Config struct {
	Store    storage.Store
	Search   agent.Searcher
	Ingester Ingester
	Queue    Enqueuer
	Version  string
	Logger   *slog.Logger
}

// Validate reports the first missing required dependency.
func (c *Config) Validate() error {
	switch {
	case c.Store == nil:
		return ErrMissingStore
	case c.Search == nil:
		return ErrMissingSearch
	case c.Ingester == nil:
		return ErrMissingIngester
	}
	return nil
}

// Server wraps the MCP server with dependencies.
type Server struct {
	server   *mcp.Server
	store    storage.Store
	agent    *agent.Agent
	search   agent.Searcher
	ingester Ingester
	queue    Enqueuer
	logger   *slog.Logger
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	version := cfg.Version
	if version == "" {
		version = "v0.1.0"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		server:   mcp.NewServer(&mcp.Implementation{Name: "voice-agent", Version: version}, nil),
		store:    cfg.Store,
		agent:    agent.New(cfg.Store, cfg.Search, logger),
		search:   cfg.Search,
		ingester: cfg.Ingester,
		queue:    cfg.Queue,
		logger:   logger,
	}
	s.registerTools()
	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "route_text",
		Description: "Route a transcribed request to the structured, groups or search tool by keyword and run it.",
	}, s.handleRoute)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_documents",
		Description: "Semantic search over ingested documents. Falls back to the most recent documents when search is unavailable.",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ingest_document",
		Description: "Chunk, embed and store a document. Chunks whose embedding fails are stored without one.",
	}, s.handleIngest)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Retrieve a stored document by id.",
	}, s.handleGet)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List the most recently stored documents.",
	}, s.handleList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "update_document",
		Description: "Change the title, content or metadata of a stored document.",
	}, s.handleUpdate)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "delete_document",
		Description: "Delete a stored document by id.",
	}, s.handleDelete)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "structured_action",
		Description: "Run a structured data action: query echoes its payload, insert_document stores one.",
	}, s.handleStructured)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "manage_groups",
		Description: "List, add or delete the chat groups the agent manages.",
	}, s.handleGroups)
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	if err := s.server.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
