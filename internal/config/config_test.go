package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendPostgres, cfg.Store.Backend)
	assert.Equal(t, 1536, cfg.Store.Dimension)
	assert.Equal(t, "text-embedding-3-small", cfg.OpenAI.EmbeddingModel)
	assert.Equal(t, "recursive", cfg.Chunker.Strategy)
	assert.Equal(t, 1000, cfg.Chunker.Size)
	assert.Equal(t, 200, cfg.Chunker.Overlap)
	assert.Equal(t, "voice-agent.ingest", cfg.RabbitMQ.IngestQueue)
	assert.Equal(t, "main", cfg.GitHub.Ref)
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[store]
backend = "memory"
dimension = 8

[chunker]
strategy = "fixed"
size = 50
overlap = 10
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("CHUNK_OVERLAP", "5")
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, BackendMemory, cfg.Store.Backend)
	assert.Equal(t, 8, cfg.Store.Dimension)
	assert.Equal(t, "fixed", cfg.Chunker.Strategy)
	assert.Equal(t, 50, cfg.Chunker.Size)
	assert.Equal(t, 5, cfg.Chunker.Overlap, "environment overrides the file")
	assert.Equal(t, "sk-test", cfg.OpenAI.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown backend", func(c *Config) { c.Store.Backend = "sqlite" }},
		{"zero dimension", func(c *Config) { c.Store.Dimension = 0 }},
		{"zero chunk size", func(c *Config) { c.Chunker.Size = 0 }},
		{"overlap equals size", func(c *Config) { c.Chunker.Overlap = c.Chunker.Size }},
		{"negative overlap", func(c *Config) { c.Chunker.Overlap = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrConfiguration)
		})
	}

	assert.NoError(t, Default().Validate())
}
