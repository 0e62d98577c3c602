// Package main provides agentctl, the command line for the voice agent's
// store, ingestion and routing.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/bull/voice-agent/internal/app"
	"github.com/bull/voice-agent/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "agentctl",
	Short: "Voice agent administration tool",
	Long: `Command line for the voice agent: database setup, document ingestion,
semantic search, routing and administration of documents and groups.

Configuration is read from configs/config.toml (or --config) and the
environment; see DATABASE_URL, STORE_BACKEND, OPENAI_API_KEY, QDRANT_HOST,
REDIS_ADDR and RABBITMQ_URL.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if configFile != "" {
			return os.Setenv("CONFIG_FILE", configFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "path to a TOML config file")
	rootCmd.AddCommand(initDBCmd, ingestCmd, searchCmd, routeCmd, voiceCmd, docsCmd, groupsCmd, reindexCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// openApp loads the configuration and connects the services a command needs.
func openApp(ctx context.Context, opts app.Options) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := cfg.App.NewLogger(os.Stderr)
	return app.New(ctx, cfg, logger, opts)
}

func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	fmt.Println(string(out))
	return nil
}
