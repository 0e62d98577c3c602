package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bull/voice-agent/internal/retrieval"
	"github.com/bull/voice-agent/internal/storage"
)

type recordingSearcher struct {
	query string
	k     int
}

func (r *recordingSearcher) Search(_ context.Context, query string, k int) *retrieval.Result {
	r.query, r.k = query, k
	return &retrieval.Result{Query: query}
}

func int64Ptr(v int64) *int64 { return &v }

func TestHandle_Search(t *testing.T) {
	s := &recordingSearcher{}
	a := New(storage.NewMemoryStore(2), s, nil)

	resp := a.Handle(context.Background(), "explain the quarterly report")
	assert.Equal(t, ToolSearch, resp.Decision.Tool)
	require.NotNil(t, resp.Search)
	assert.Nil(t, resp.Structured)
	assert.Nil(t, resp.Groups)
	assert.Equal(t, "explain the quarterly report", s.query)
	assert.Equal(t, SearchK, s.k)
}

func TestHandle_Structured(t *testing.T) {
	a := New(storage.NewMemoryStore(2), &recordingSearcher{}, nil)

	resp := a.Handle(context.Background(), "please update customer account")
	require.NotNil(t, resp.Structured)
	assert.Equal(t, ActionQuery, resp.Structured.Action)
	assert.Equal(t, "please update customer account", resp.Structured.Payload["text"])
}

func TestHandle_Groups(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(2)
	_, err := store.AddGroup(ctx, storage.NewGroup{ExternalID: -42, Name: "Ops"})
	require.NoError(t, err)

	a := New(store, &recordingSearcher{}, nil)
	resp := a.Handle(ctx, "what's in the telegram group")
	require.NotNil(t, resp.Groups)
	assert.True(t, resp.Groups.OK)
	require.Len(t, resp.Groups.Groups, 1)
	assert.Equal(t, "Ops", resp.Groups.Groups[0].Name)
}

func TestStructured_InsertDocument(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore(2)
	a := New(store, &recordingSearcher{}, nil)

	res := a.Structured(ctx, ActionInsertDocument, map[string]any{
		"title":     "Customer note",
		"content":   "Prefers email.",
		"metadata":  map[string]any{"customer": "acme"},
		"embedding": []any{0.5, 0.25},
	})
	require.Empty(t, res.Error)
	require.NotZero(t, res.DocID)

	doc, err := store.Get(ctx, res.DocID)
	require.NoError(t, err)
	assert.Equal(t, "Customer note", doc.Title)
	assert.Equal(t, "acme", doc.Metadata["customer"])
	assert.Equal(t, []float32{0.5, 0.25}, doc.Embedding)
}

func TestStructured_ErrorsInPayload(t *testing.T) {
	a := New(storage.NewMemoryStore(2), &recordingSearcher{}, nil)

	res := a.Structured(context.Background(), ActionInsertDocument, map[string]any{})
	assert.NotEmpty(t, res.Error)

	res = a.Structured(context.Background(), ActionInsertDocument, map[string]any{"title": 7})
	assert.Contains(t, res.Error, "invalid payload")

	res = a.Structured(context.Background(), ActionInsertDocument, map[string]any{
		"title":     "bad vector",
		"embedding": []any{1.0, 2.0, 3.0},
	})
	assert.Contains(t, res.Error, storage.ErrDimensionMismatch.Error())
}

func TestGroups_Commands(t *testing.T) {
	ctx := context.Background()
	a := New(storage.NewMemoryStore(2), &recordingSearcher{}, nil)

	res := a.Groups(ctx, GroupCommand{Command: CommandAdd, Name: "Ops"})
	assert.False(t, res.OK)
	assert.Equal(t, "group_id and name required to add", res.Error)

	res = a.Groups(ctx, GroupCommand{Command: CommandAdd, GroupID: int64Ptr(-1001), Name: "Ops", Description: "on-call"})
	require.True(t, res.OK)
	id := res.GroupDBID
	require.NotZero(t, id)

	res = a.Groups(ctx, GroupCommand{Command: CommandDelete})
	assert.Equal(t, "group_id required to delete", res.Error)

	res = a.Groups(ctx, GroupCommand{Command: CommandDelete, GroupID: int64Ptr(int64(id))})
	assert.True(t, res.OK)

	res = a.Groups(ctx, GroupCommand{Command: CommandDelete, GroupID: int64Ptr(int64(id))})
	assert.False(t, res.OK)
	assert.Empty(t, res.Error)

	res = a.Groups(ctx, GroupCommand{Command: "rename"})
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "unknown command")
}
