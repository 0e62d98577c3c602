package github

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/google/go-github/v81/github"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFetcher(t *testing.T, mux *http.ServeMux) *Fetcher {
	t.Helper()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	gh := github.NewClient(nil)
	base, err := url.Parse(srv.URL + "/")
	require.NoError(t, err)
	gh.BaseURL = base

	return NewFetcher(&Client{Client: gh}, "acme", "handbook", "/docs/", "main")
}

func fileJSON(name, content string) string {
	return fmt.Sprintf(`{"type":"file","name":%q,"encoding":"base64","content":%q,"sha":"blob-%s"}`,
		name, base64.StdEncoding.EncodeToString([]byte(content)), name)
}

func TestFetcher_List(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/contents/docs", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		fmt.Fprint(w, `[
			{"type":"file","name":"intro.md"},
			{"type":"file","name":"logo.png"},
			{"type":"file","name":"NOTES.TXT"},
			{"type":"dir","name":"guides"}
		]`)
	})
	mux.HandleFunc("/repos/acme/handbook/contents/docs/guides", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[{"type":"file","name":"setup.markdown"}]`)
	})

	docs, err := newTestFetcher(t, mux).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"intro.md", "NOTES.TXT", "guides/setup.markdown"}, docs)
}

func TestFetcher_Fetch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/contents/docs/guides/setup.md", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, fileJSON("setup.md", "# Setup\n\nRun it."))
	})

	doc, err := newTestFetcher(t, mux).Fetch(context.Background(), "guides/setup.md")
	require.NoError(t, err)
	assert.Equal(t, "guides/setup.md", doc.Path)
	assert.Equal(t, "# Setup\n\nRun it.", doc.Content)
	assert.Equal(t, "https://raw.githubusercontent.com/acme/handbook/main/docs/guides/setup.md", doc.URL)
	assert.Equal(t, "acme/handbook", doc.Metadata["repo"])
	assert.Equal(t, "blob-setup.md", doc.Metadata["sha"])
}

func TestFetcher_FetchMissing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/contents/docs/gone.md", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"message":"Not Found"}`, http.StatusNotFound)
	})

	_, err := newTestFetcher(t, mux).Fetch(context.Background(), "gone.md")
	assert.ErrorContains(t, err, "docs/gone.md")
}

func TestFetcher_Revision(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/commits", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "docs", q.Get("path"))
		assert.Equal(t, "main", q.Get("sha"))
		assert.Equal(t, "1", q.Get("per_page"))
		fmt.Fprint(w, `[{"sha":"c0ffee"}]`)
	})

	rev, err := newTestFetcher(t, mux).Revision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "c0ffee", rev)
}

func TestFetcher_RevisionNoCommits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/handbook/commits", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[]`)
	})

	_, err := newTestFetcher(t, mux).Revision(context.Background())
	assert.Error(t, err)
}
