// Package main runs the voice agent server: the JSON API, the MCP endpoint
// and the background ingestion worker.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/bull/voice-agent/internal/api"
	"github.com/bull/voice-agent/internal/app"
	"github.com/bull/voice-agent/internal/config"
	mcpserver "github.com/bull/voice-agent/internal/mcp"
)

const version = "v0.1.0"

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// stdout carries the MCP stream in stdio mode, so logs go to stderr.
	logger := cfg.App.NewLogger(os.Stderr)
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	a, err := app.New(ctx, cfg, logger, app.Options{Migrate: true, StartWorker: true})
	if err != nil {
		return err
	}
	defer a.Close()

	mcpCfg := &mcpserver.Config{
		Store:    a.Store,
		Search:   a.Retrieval,
		Ingester: a.Pipeline,
		Version:  version,
		Logger:   logger,
	}
	deps := api.Deps{
		Store:    a.Store,
		Search:   a.Retrieval,
		Ingester: a.Pipeline,
		GinMode:  cfg.App.GinMode,
		Logger:   logger,
	}
	if a.Publisher != nil {
		mcpCfg.Queue = a.Publisher
		deps.Queue = a.Publisher
	}
	if a.Transcriber.Len() > 0 {
		deps.Transcriber = a.Transcriber
	} else {
		logger.Warn("Voice uploads disabled: no transcriber configured")
	}

	server, err := mcpserver.NewServer(mcpCfg)
	if err != nil {
		return err
	}

	router := api.NewRouter(deps)
	router.GET("/", gin.WrapF(mcpserver.NewLandingHandler()))
	router.GET("/health", gin.WrapF(mcpserver.NewHealthHandler(a.Store)))
	router.Any("/mcp", gin.WrapH(mcpserver.NewHTTPHandler(server, nil)))

	httpServer := &http.Server{
		Addr:              "0.0.0.0:" + cfg.App.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if cfg.App.ServerMode {
		logger.Info("Starting HTTP server", "addr", httpServer.Addr, "mcp", "/mcp", "api", "/api/v1")
		return serve(ctx, httpServer, logger)
	}

	// Stdio mode: MCP over stdin/stdout, HTTP in the background for local use.
	go func() {
		if err := serve(ctx, httpServer, logger); err != nil {
			logger.Warn("HTTP server error", "error", err)
		}
	}()

	logger.Info("Starting MCP server (stdio mode)")
	return server.Run(ctx)
}

func serve(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
