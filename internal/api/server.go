// Package api serves the voice agent over a JSON HTTP API.
package api

import (
	"context"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/bull/voice-agent/internal/agent"
	"github.com/bull/voice-agent/internal/ingest"
	"github.com/bull/voice-agent/internal/storage"
	"github.com/bull/voice-agent/internal/transcribe"
)

// Ingester runs an ingestion synchronously.
type Ingester interface {
	Ingest(ctx context.Context, req ingest.Request) (*ingest.Result, error)
}

// Enqueuer hands an ingestion to the background worker.
type Enqueuer interface {
	Publish(ctx context.Context, req ingest.Request) (string, error)
}

// Deps are the services behind the routes. Queue and Transcriber are
// optional; the routes needing them answer 503 when they are nil.
type Deps struct {
	Store       storage.Store
	Search      agent.Searcher
	Ingester    Ingester
	Queue       Enqueuer
	Transcriber transcribe.Transcriber
	GinMode     string
	Logger      *slog.Logger
}

// NewRouter builds the gin engine with every /api/v1 route registered.
func NewRouter(deps Deps) *gin.Engine {
	if deps.GinMode != "" {
		gin.SetMode(deps.GinMode)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(requestLogger(logger), gin.Recovery())

	h := &handler{
		store:       deps.Store,
		agent:       agent.New(deps.Store, deps.Search, logger),
		search:      deps.Search,
		ingester:    deps.Ingester,
		queue:       deps.Queue,
		transcriber: deps.Transcriber,
		logger:      logger,
	}

	v1 := router.Group("/api/v1")
	v1.POST("/route", h.Route)
	v1.POST("/voice", h.Voice)
	v1.POST("/search", h.Search)
	v1.POST("/ingest", h.Ingest)
	v1.POST("/structured", h.Structured)

	docs := v1.Group("/documents")
	docs.GET("", h.ListDocuments)
	docs.GET("/:id", h.GetDocument)
	docs.PATCH("/:id", h.UpdateDocument)
	docs.DELETE("/:id", h.DeleteDocument)

	groups := v1.Group("/groups")
	groups.GET("", h.ListGroups)
	groups.POST("", h.AddGroup)
	groups.DELETE("/:id", h.DeleteGroup)

	return router
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		logger.Info("HTTP request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
		)
	}
}
