// Package app wires the configured components into the services shared by
// the server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"

	"github.com/bull/voice-agent/internal/chunker"
	"github.com/bull/voice-agent/internal/config"
	"github.com/bull/voice-agent/internal/embedding"
	"github.com/bull/voice-agent/internal/ingest"
	"github.com/bull/voice-agent/internal/queue"
	"github.com/bull/voice-agent/internal/retrieval"
	"github.com/bull/voice-agent/internal/storage"
	"github.com/bull/voice-agent/internal/transcribe"
)

// Options select the optional startup work.
type Options struct {
	// Migrate creates the schema on start.
	Migrate bool
	// StartWorker consumes queued ingestion jobs when RabbitMQ is configured.
	StartWorker bool
}

type App struct {
	Config *config.Config
	Logger *slog.Logger

	Store    storage.Store
	Postgres *storage.PostgresStore
	Index    *storage.QdrantIndex

	Embedder    embedding.Embedder
	Pipeline    *ingest.Pipeline
	Retrieval   *retrieval.Service
	Transcriber *transcribe.Chain

	Redis     *redis.Client
	MQConn    *amqp.Connection
	Publisher *queue.Publisher
	Worker    *queue.Worker

	StartedAt time.Time
}

// New builds the application. Missing optional services (OpenAI, Redis,
// Qdrant, RabbitMQ, local transcription) degrade the features that use
// them; an unreachable store fails startup.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	a := &App{Config: cfg, Logger: logger, StartedAt: time.Now()}

	strategy, err := chunker.New(chunker.Config{
		Strategy: cfg.Chunker.Strategy,
		Size:     cfg.Chunker.Size,
		Overlap:  cfg.Chunker.Overlap,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", config.ErrConfiguration, err)
	}

	if err := a.openStore(ctx, opts.Migrate); err != nil {
		a.Close()
		return nil, err
	}

	a.Embedder = a.newEmbedder(ctx)
	a.Pipeline = ingest.NewPipeline(strategy, a.Embedder, a.Store, logger)
	a.Retrieval = retrieval.NewService(a.Embedder, a.Store, logger)
	a.Transcriber = a.newTranscriber()

	if cfg.RabbitMQ.URL != "" {
		if err := a.openQueue(ctx, opts.StartWorker); err != nil {
			a.Close()
			return nil, err
		}
	}

	return a, nil
}

func (a *App) openStore(ctx context.Context, migrate bool) error {
	cfg := a.Config
	if cfg.Store.Backend == config.BackendMemory {
		a.Logger.Warn("Using in-memory store; documents are lost on exit")
		a.Store = storage.NewMemoryStore(cfg.Store.Dimension)
		return nil
	}

	if cfg.Qdrant.Host != "" {
		index, err := storage.NewQdrantIndex(ctx, cfg.Qdrant.Host, cfg.Qdrant.Port, cfg.Qdrant.Collection, cfg.Store.Dimension)
		if err != nil {
			return fmt.Errorf("connect qdrant: %w", err)
		}
		a.Index = index
	}

	pg, err := storage.OpenPostgres(ctx, storage.PostgresOptions{
		DSN:       cfg.Store.DatabaseURL,
		Dimension: cfg.Store.Dimension,
		Logger:    a.Logger,
		Index:     a.Index,
	})
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	a.Postgres = pg
	a.Store = pg

	if migrate {
		if err := pg.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (a *App) newEmbedder(ctx context.Context) embedding.Embedder {
	cfg := a.Config
	ecfg := embedding.ConfigFrom(cfg)

	client, err := embedding.NewClient(ecfg)
	if err != nil {
		a.Logger.Warn("Embeddings disabled; chunks are stored without vectors and search falls back to recent documents", "error", err)
		return embedding.NewUnavailable(err, ecfg.Model, cfg.Store.Dimension)
	}

	if cfg.Redis.Addr == "" {
		return client
	}
	rdb, err := embedding.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		a.Logger.Warn("Embedding cache disabled", "addr", cfg.Redis.Addr, "error", err)
		return client
	}
	a.Redis = rdb
	return embedding.NewCache(client, rdb, time.Duration(cfg.Redis.TTLSeconds)*time.Second, a.Logger)
}

func (a *App) newTranscriber() *transcribe.Chain {
	var steps []transcribe.Transcriber

	remote, err := transcribe.NewOpenAI(a.Config.OpenAI)
	if err != nil {
		a.Logger.Warn("Remote transcription disabled", "error", err)
	} else {
		steps = append(steps, remote)
	}

	if local := transcribe.NewCommand(a.Config.Transcribe.LocalCommand); local != nil {
		steps = append(steps, local)
	}

	return transcribe.NewChain(a.Logger, steps...)
}

func (a *App) openQueue(ctx context.Context, startWorker bool) error {
	conn, err := queue.Dial(ctx, a.Config.RabbitMQ.URL)
	if err != nil {
		return err
	}
	a.MQConn = conn
	a.Publisher = queue.NewPublisher(conn, a.Config.RabbitMQ.IngestQueue)

	if startWorker {
		a.Worker = queue.NewWorker(conn, a.Pipeline, a.Config.RabbitMQ.IngestQueue, a.Logger)
		if err := a.Worker.Start(ctx); err != nil {
			return fmt.Errorf("start ingest worker: %w", err)
		}
	}
	return nil
}

// Close releases every open connection.
func (a *App) Close() error {
	var errs []error
	if a.Worker != nil {
		a.Worker.Close()
	}
	if a.MQConn != nil {
		errs = append(errs, a.MQConn.Close())
	}
	if a.Redis != nil {
		errs = append(errs, a.Redis.Close())
	}
	if a.Store != nil {
		errs = append(errs, a.Store.Close())
	} else if a.Index != nil {
		errs = append(errs, a.Index.Close())
	}
	return errors.Join(errs...)
}
