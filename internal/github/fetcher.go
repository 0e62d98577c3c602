package github

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/google/go-github/v81/github"

	"github.com/bull/voice-agent/internal/ingest"
)

// Extensions lists the file suffixes treated as documents.
var Extensions = []string{".md", ".markdown", ".txt"}

// Fetcher reads the documents below basePath at ref. It implements ingest.Source.
type Fetcher struct {
	client   *Client
	owner    string
	repo     string
	basePath string
	ref      string
}

var _ ingest.Source = (*Fetcher)(nil)

// NewFetcher creates a document fetcher. An empty ref means the default branch.
func NewFetcher(client *Client, owner, repo, basePath, ref string) *Fetcher {
	return &Fetcher{
		client:   client,
		owner:    owner,
		repo:     repo,
		basePath: strings.Trim(basePath, "/"),
		ref:      ref,
	}
}

func (f *Fetcher) contentOptions() *github.RepositoryContentGetOptions {
	if f.ref == "" {
		return nil
	}
	return &github.RepositoryContentGetOptions{Ref: f.ref}
}

// List recursively lists the documents below the base path, relative to it.
func (f *Fetcher) List(ctx context.Context) ([]string, error) {
	return f.list(ctx, f.basePath, "")
}

func (f *Fetcher) list(ctx context.Context, fullPath, relativePath string) ([]string, error) {
	_, entries, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("get contents of %s: %w", fullPath, err)
	}

	var docs []string
	for _, item := range entries {
		name := item.GetName()
		if name == "" {
			continue
		}
		itemRelPath := path.Join(relativePath, name)

		switch item.GetType() {
		case "file":
			if isDocument(name) {
				docs = append(docs, itemRelPath)
			}
		case "dir":
			sub, err := f.list(ctx, path.Join(fullPath, name), itemRelPath)
			if err != nil {
				return nil, err
			}
			docs = append(docs, sub...)
		}
	}
	return docs, nil
}

func isDocument(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range Extensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

// Fetch reads one document by its path relative to the base path.
func (f *Fetcher) Fetch(ctx context.Context, relativePath string) (*ingest.SourceDocument, error) {
	fullPath := path.Join(f.basePath, relativePath)

	file, _, _, err := f.client.Repositories.GetContents(ctx, f.owner, f.repo, fullPath, f.contentOptions())
	if err != nil {
		return nil, fmt.Errorf("get content of %s: %w", fullPath, err)
	}
	if file == nil {
		return nil, fmt.Errorf("%s is not a file", fullPath)
	}

	content, err := file.GetContent()
	if err != nil {
		return nil, fmt.Errorf("decode content of %s: %w", fullPath, err)
	}

	ref := f.ref
	if ref == "" {
		ref = "HEAD"
	}

	return &ingest.SourceDocument{
		Path:    relativePath,
		Content: content,
		URL:     fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", f.owner, f.repo, ref, fullPath),
		Metadata: map[string]any{
			"source": "github",
			"repo":   f.owner + "/" + f.repo,
			"sha":    file.GetSHA(),
		},
	}, nil
}

// Revision returns the SHA of the latest commit touching the base path.
func (f *Fetcher) Revision(ctx context.Context) (string, error) {
	commits, _, err := f.client.Repositories.ListCommits(ctx, f.owner, f.repo, &github.CommitsListOptions{
		SHA:         f.ref,
		Path:        f.basePath,
		ListOptions: github.ListOptions{PerPage: 1},
	})
	if err != nil {
		return "", fmt.Errorf("get latest commit: %w", err)
	}
	if len(commits) == 0 {
		return "", fmt.Errorf("no commits found for path %s", f.basePath)
	}
	sha := commits[0].GetSHA()
	if sha == "" {
		return "", errors.New("commit SHA is empty")
	}
	return sha, nil
}
