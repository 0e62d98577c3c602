package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/bull/voice-agent/internal/config"
)

const (
	// DefaultModel is the embedding model used when none is configured.
	DefaultModel = "text-embedding-3-small"

	// DefaultDimension is the vector dimension of DefaultModel.
	DefaultDimension = 1536

	// DefaultBatchSize keeps request bodies well under the API limit of 2048 inputs.
	DefaultBatchSize = 100
)

// Config pins the model and dimension for the lifetime of a Client.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Dimension int
	BatchSize int
}

// ConfigFrom builds a Config from the application configuration.
func ConfigFrom(cfg *config.Config) Config {
	return Config{
		APIKey:    cfg.OpenAI.APIKey,
		BaseURL:   cfg.OpenAI.BaseURL,
		Model:     cfg.OpenAI.EmbeddingModel,
		Dimension: cfg.Store.Dimension,
		BatchSize: cfg.OpenAI.BatchSize,
	}
}

// Client generates embeddings with an OpenAI-compatible API.
// Requests are not retried; a failed call is reported to the caller.
type Client struct {
	client    openai.Client
	model     string
	dimension int
	batchSize int
}

// NewClient creates a Client. It fails with an error wrapping both
// ErrUnavailable and config.ErrConfiguration when no API key is set.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %w: OPENAI_API_KEY not set", ErrUnavailable, config.ErrConfiguration)
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	return &Client{
		client:    openai.NewClient(opts...),
		model:     cfg.Model,
		dimension: cfg.Dimension,
		batchSize: cfg.BatchSize,
	}, nil
}

// supportsDimensions reports whether model accepts a requested output size.
func supportsDimensions(model string) bool {
	return strings.HasPrefix(model, "text-embedding-3")
}

// Model returns the pinned model identifier.
func (c *Client) Model() string { return c.model }

// Dimension returns the pinned vector dimension.
func (c *Client) Dimension() int { return c.dimension }

// Embed returns the embedding of text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.embed(ctx, openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)}, 1)
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch returns one embedding per text, in input order. Texts are sent
// in batches of the configured size; the first failing batch aborts the call.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += c.batchSize {
		end := min(i+c.batchSize, len(texts))
		batch := texts[i:end]

		vecs, err := c.embed(ctx, openai.EmbeddingNewParamsInputUnion{OfArrayOfStrings: batch}, len(batch))
		if err != nil {
			return nil, fmt.Errorf("batch %d-%d: %w", i, end, err)
		}
		all = append(all, vecs...)
	}
	return all, nil
}

func (c *Client) embed(ctx context.Context, input openai.EmbeddingNewParamsInputUnion, n int) ([][]float32, error) {
	params := openai.EmbeddingNewParams{
		Input: input,
		Model: openai.EmbeddingModel(c.model),
	}
	if supportsDimensions(c.model) {
		params.Dimensions = openai.Int(int64(c.dimension))
	}
	resp, err := c.client.Embeddings.New(ctx, params)
	if err != nil {
		var apiErr *openai.Error
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: %s returned status %d: %w", ErrFailure, c.model, apiErr.StatusCode, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrFailure, err)
	}
	if len(resp.Data) != n {
		return nil, fmt.Errorf("%w: got %d embeddings for %d inputs", ErrFailure, len(resp.Data), n)
	}

	vecs := make([][]float32, n)
	for i, data := range resp.Data {
		idx := int(data.Index)
		if idx < 0 || idx >= n || vecs[idx] != nil {
			idx = i
		}
		vec := toFloat32(data.Embedding)
		if err := checkDimension(vec, c.dimension); err != nil {
			return nil, err
		}
		vecs[idx] = vec
	}
	return vecs, nil
}
