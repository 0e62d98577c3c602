// Package github reads documents from a directory of a GitHub repository so
// that they can be ingested as a source.
package github

import (
	"context"
	"fmt"

	"github.com/gofri/go-github-ratelimit/github_ratelimit"
	"github.com/google/go-github/v81/github"
)

// Client wraps the GitHub API client with rate limiting support.
type Client struct {
	*github.Client
}

// NewClient creates a rate limited GitHub client. An empty token gives an
// unauthenticated client with the lower public rate limit.
func NewClient(ctx context.Context, token string) (*Client, error) {
	// Waits out primary and secondary rate limits instead of failing.
	rateLimiter, err := github_ratelimit.NewRateLimitWaiterClient(nil)
	if err != nil {
		return nil, fmt.Errorf("create rate limiter: %w", err)
	}

	ghClient := github.NewClient(rateLimiter)
	if token != "" {
		ghClient = ghClient.WithAuthToken(token)
	}

	return &Client{Client: ghClient}, nil
}
