// Package config loads the runtime configuration shared by the server and the CLI.
//
// Values are resolved in three layers: built-in defaults, an optional TOML
// file (CONFIG_FILE, default configs/config.toml) and environment variables.
// Components receive the sections they need through their constructors; a
// missing credential is reported by the component that needs it, as an error
// wrapping ErrConfiguration.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

// Config is the root configuration.
type Config struct {
	App        AppConfig        `toml:"app"`
	Store      StoreConfig      `toml:"store"`
	OpenAI     OpenAIConfig     `toml:"openai"`
	Chunker    ChunkerConfig    `toml:"chunker"`
	Qdrant     QdrantConfig     `toml:"qdrant"`
	Redis      RedisConfig      `toml:"redis"`
	RabbitMQ   RabbitMQConfig   `toml:"rabbitmq"`
	Transcribe TranscribeConfig `toml:"transcribe"`
	GitHub     GitHubConfig     `toml:"github"`
}

type AppConfig struct {
	Port       string `toml:"port"`
	ServerMode bool   `toml:"server_mode"`
	GinMode    string `toml:"gin_mode"`
	LogLevel   string `toml:"log_level"`
	LogFormat  string `toml:"log_format"`
}

// StoreConfig selects the document store. Dimension pins the embedding
// size for the lifetime of the store and must match the embedding model.
type StoreConfig struct {
	Backend     string `toml:"backend"`
	DatabaseURL string `toml:"database_url"`
	Dimension   int    `toml:"dimension"`
}

type OpenAIConfig struct {
	APIKey          string `toml:"api_key"`
	BaseURL         string `toml:"base_url"`
	EmbeddingModel  string `toml:"embedding_model"`
	TranscribeModel string `toml:"transcribe_model"`
	BatchSize       int    `toml:"batch_size"`
}

// ChunkerConfig selects one of the named chunking strategies.
type ChunkerConfig struct {
	Strategy string `toml:"strategy"`
	Size     int    `toml:"size"`
	Overlap  int    `toml:"overlap"`
}

// QdrantConfig configures the optional side-car vector index. An empty Host
// disables it.
type QdrantConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	Collection string `toml:"collection"`
}

// RedisConfig configures the optional query-embedding cache. An empty Addr
// disables it.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// RabbitMQConfig configures asynchronous ingestion. An empty URL disables it.
type RabbitMQConfig struct {
	URL         string `toml:"url"`
	IngestQueue string `toml:"ingest_queue"`
}

type TranscribeConfig struct {
	// LocalCommand is a local speech-to-text command used when the remote
	// service fails. The audio path is appended as the last argument.
	LocalCommand string `toml:"local_command"`
}

// GitHubConfig names a repository directory to ingest documents from.
type GitHubConfig struct {
	Token    string `toml:"token"`
	Owner    string `toml:"owner"`
	Repo     string `toml:"repo"`
	BasePath string `toml:"base_path"`
	Ref      string `toml:"ref"`
}

// Load builds a Config from defaults, the optional TOML file and the environment.
func Load() (*Config, error) {
	cfg := Default()

	path := getEnv("CONFIG_FILE", "configs/config.toml")
	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("decode config file %s: %w", path, err)
		}
	}

	overrideByEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		App: AppConfig{
			Port:      "8080",
			GinMode:   "release",
			LogLevel:  "info",
			LogFormat: "text",
		},
		Store: StoreConfig{
			Backend:   BackendPostgres,
			Dimension: 1536,
		},
		OpenAI: OpenAIConfig{
			EmbeddingModel:  "text-embedding-3-small",
			TranscribeModel: "whisper-1",
			BatchSize:       100,
		},
		Chunker: ChunkerConfig{
			Strategy: "recursive",
			Size:     1000,
			Overlap:  200,
		},
		Qdrant: QdrantConfig{
			Port:       6334,
			Collection: "documents",
		},
		Redis: RedisConfig{
			TTLSeconds: 3600,
		},
		RabbitMQ: RabbitMQConfig{
			IngestQueue: "voice-agent.ingest",
		},
		GitHub: GitHubConfig{
			Ref: "main",
		},
	}
}

// Validate checks structural consistency. Credentials are checked later by
// the components that use them.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendPostgres, BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store backend %q", ErrConfiguration, c.Store.Backend)
	}
	if c.Store.Dimension <= 0 {
		return fmt.Errorf("%w: embedding dimension must be positive, got %d", ErrConfiguration, c.Store.Dimension)
	}
	if c.Chunker.Size <= 0 {
		return fmt.Errorf("%w: chunk size must be positive, got %d", ErrConfiguration, c.Chunker.Size)
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.Size {
		return fmt.Errorf("%w: chunk overlap %d must be in [0, %d)", ErrConfiguration, c.Chunker.Overlap, c.Chunker.Size)
	}
	return nil
}

func overrideByEnv(cfg *Config) {
	cfg.App.Port = getEnv("PORT", cfg.App.Port)
	cfg.App.ServerMode = getEnvBool("SERVER_MODE", cfg.App.ServerMode)
	cfg.App.GinMode = getEnv("GIN_MODE", cfg.App.GinMode)
	cfg.App.LogLevel = getEnv("LOG_LEVEL", cfg.App.LogLevel)
	cfg.App.LogFormat = getEnv("LOG_FORMAT", cfg.App.LogFormat)

	cfg.Store.Backend = getEnv("STORE_BACKEND", cfg.Store.Backend)
	cfg.Store.DatabaseURL = getEnv("DATABASE_URL", cfg.Store.DatabaseURL)
	cfg.Store.Dimension = getEnvInt("EMBEDDING_DIM", cfg.Store.Dimension)

	cfg.OpenAI.APIKey = getEnv("OPENAI_API_KEY", cfg.OpenAI.APIKey)
	cfg.OpenAI.BaseURL = getEnv("OPENAI_BASE_URL", cfg.OpenAI.BaseURL)
	cfg.OpenAI.EmbeddingModel = getEnv("OPENAI_EMBEDDING_MODEL", cfg.OpenAI.EmbeddingModel)
	cfg.OpenAI.TranscribeModel = getEnv("OPENAI_TRANSCRIBE_MODEL", cfg.OpenAI.TranscribeModel)
	cfg.OpenAI.BatchSize = getEnvInt("OPENAI_BATCH_SIZE", cfg.OpenAI.BatchSize)

	cfg.Chunker.Strategy = getEnv("CHUNK_STRATEGY", cfg.Chunker.Strategy)
	cfg.Chunker.Size = getEnvInt("CHUNK_SIZE", cfg.Chunker.Size)
	cfg.Chunker.Overlap = getEnvInt("CHUNK_OVERLAP", cfg.Chunker.Overlap)

	cfg.Qdrant.Host = getEnv("QDRANT_HOST", cfg.Qdrant.Host)
	cfg.Qdrant.Port = getEnvInt("QDRANT_PORT", cfg.Qdrant.Port)
	cfg.Qdrant.Collection = getEnv("QDRANT_COLLECTION", cfg.Qdrant.Collection)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.TTLSeconds = getEnvInt("EMBED_CACHE_TTL_SECONDS", cfg.Redis.TTLSeconds)

	cfg.RabbitMQ.URL = getEnv("RABBITMQ_URL", cfg.RabbitMQ.URL)
	cfg.RabbitMQ.IngestQueue = getEnv("RABBITMQ_INGEST_QUEUE", cfg.RabbitMQ.IngestQueue)

	cfg.Transcribe.LocalCommand = getEnv("TRANSCRIBE_LOCAL_CMD", cfg.Transcribe.LocalCommand)
	cfg.GitHub.Token = getEnv("GITHUB_TOKEN", cfg.GitHub.Token)
	cfg.GitHub.Owner = getEnv("GITHUB_OWNER", cfg.GitHub.Owner)
	cfg.GitHub.Repo = getEnv("GITHUB_REPO", cfg.GitHub.Repo)
	cfg.GitHub.BasePath = getEnv("GITHUB_PATH", cfg.GitHub.BasePath)
	cfg.GitHub.Ref = getEnv("GITHUB_REF", cfg.GitHub.Ref)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	switch os.Getenv(key) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	}
	return defaultValue
}
