package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/bull/voice-agent/internal/agent"
	"github.com/bull/voice-agent/internal/ingest"
	"github.com/bull/voice-agent/internal/storage"
	"github.com/bull/voice-agent/internal/transcribe"
)

// DefaultListLimit is the page size of the document listing.
const DefaultListLimit = 20

type handler struct {
	store       storage.Store
	agent       *agent.Agent
	search      agent.Searcher
	ingester    Ingester
	queue       Enqueuer
	transcriber transcribe.Transcriber
	logger      *slog.Logger
}

type RouteRequest struct {
	Text string `json:"text" binding:"required"`
}

type SearchRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

type IngestRequest struct {
	Title    string         `json:"title"`
	Text     string         `json:"text"`
	Metadata map[string]any `json:"metadata"`
	Async    bool           `json:"async"`
}

type StructuredRequest struct {
	Action  string         `json:"action" binding:"required"`
	Payload map[string]any `json:"payload"`
}

type AddGroupRequest struct {
	GroupID     *int64 `json:"group_id" binding:"required"`
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *handler) Route(c *gin.Context) {
	var req RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}
	OK(c, h.agent.Handle(c.Request.Context(), req.Text))
}

func (h *handler) Search(c *gin.Context) {
	var req SearchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}
	OK(c, h.search.Search(c.Request.Context(), req.Query, req.K))
}

func (h *handler) Ingest(c *gin.Context) {
	var req IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}
	in := ingest.Request{Title: req.Title, Text: req.Text, Metadata: req.Metadata}

	if req.Async {
		if h.queue == nil {
			Error(c, http.StatusServiceUnavailable, CodeUnavailable, "asynchronous ingestion is not configured")
			return
		}
		jobID, err := h.queue.Publish(c.Request.Context(), in)
		if err != nil {
			h.logger.Error("Queue ingestion failed", "error", err)
			Error(c, http.StatusServiceUnavailable, CodeUnavailable, "queue ingestion failed")
			return
		}
		c.JSON(http.StatusAccepted, Response{Code: CodeOK, Message: "queued", Data: gin.H{"job_id": jobID}})
		return
	}

	res, err := h.ingester.Ingest(c.Request.Context(), in)
	if err != nil {
		h.logger.Error("Ingestion failed", "error", err)
		c.JSON(http.StatusInternalServerError, Response{Code: CodeInternalServer, Message: "ingestion failed", Data: res})
		return
	}
	OK(c, res)
}

func (h *handler) Structured(c *gin.Context) {
	var req StructuredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}
	OK(c, h.agent.Structured(c.Request.Context(), req.Action, req.Payload))
}

func (h *handler) ListDocuments(c *gin.Context) {
	limit := DefaultListLimit
	if s := c.Query("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			Error(c, http.StatusBadRequest, CodeBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	docs, err := h.store.List(c.Request.Context(), limit)
	if err != nil {
		h.logger.Error("List documents failed", "error", err)
		Error(c, http.StatusInternalServerError, CodeInternalServer, "list documents failed")
		return
	}
	OK(c, docs)
}

func (h *handler) GetDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	doc, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			Error(c, http.StatusNotFound, CodeNotFound, "document not found")
			return
		}
		h.logger.Error("Get document failed", "id", id, "error", err)
		Error(c, http.StatusInternalServerError, CodeInternalServer, "get document failed")
		return
	}
	OK(c, doc)
}

func (h *handler) UpdateDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var upd storage.DocumentUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}
	updated, err := h.store.Update(c.Request.Context(), id, upd)
	if err != nil {
		h.logger.Error("Update document failed", "id", id, "error", err)
		Error(c, http.StatusInternalServerError, CodeInternalServer, "update document failed")
		return
	}
	OK(c, gin.H{"id": id, "updated": updated})
}

func (h *handler) DeleteDocument(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := h.store.Delete(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Delete document failed", "id", id, "error", err)
		Error(c, http.StatusInternalServerError, CodeInternalServer, "delete document failed")
		return
	}
	OK(c, gin.H{"id": id, "deleted": deleted})
}

func (h *handler) ListGroups(c *gin.Context) {
	res := h.agent.Groups(c.Request.Context(), agent.GroupCommand{Command: agent.CommandList})
	if !res.OK {
		Error(c, http.StatusInternalServerError, CodeInternalServer, res.Error)
		return
	}
	OK(c, res.Groups)
}

func (h *handler) AddGroup(c *gin.Context) {
	var req AddGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid request payload")
		return
	}
	res := h.agent.Groups(c.Request.Context(), agent.GroupCommand{
		Command:     agent.CommandAdd,
		GroupID:     req.GroupID,
		Name:        req.Name,
		Description: req.Description,
	})
	if !res.OK {
		Error(c, http.StatusInternalServerError, CodeInternalServer, res.Error)
		return
	}
	OK(c, gin.H{"group_db_id": res.GroupDBID})
}

func (h *handler) DeleteGroup(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	deleted, err := h.store.DeleteGroup(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Delete group failed", "id", id, "error", err)
		Error(c, http.StatusInternalServerError, CodeInternalServer, "delete group failed")
		return
	}
	OK(c, gin.H{"id": id, "deleted": deleted})
}

func parseID(c *gin.Context) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		Error(c, http.StatusBadRequest, CodeBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}
