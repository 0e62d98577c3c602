package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/bull/voice-agent/internal/app"
	ghclient "github.com/bull/voice-agent/internal/github"
	"github.com/bull/voice-agent/internal/ingest"
)

var (
	ingestTitle string
	ingestMeta  map[string]string
	ingestAsync bool

	ghOwner string
	ghRepo  string
	ghPath  string
	ghRef   string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Chunk, embed and store documents",
}

var ingestTextCmd = &cobra.Command{
	Use:   "text <text>...",
	Short: "Ingest text given on the command line",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		title := ingestTitle
		if title == "" {
			title = "Text " + time.Now().Format("2006-01-02 15:04:05")
		}
		return runIngest(cmd, ingest.Request{Title: title, Text: strings.Join(args, " "), Metadata: metadata("cli")})
	},
}

var ingestFileCmd = &cobra.Command{
	Use:   "file <path>",
	Short: "Ingest the contents of a text or markdown file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read %s: %w", args[0], err)
		}
		title := ingestTitle
		if title == "" {
			title = filepath.Base(args[0])
		}
		md := metadata("file")
		md["path"] = args[0]
		return runIngest(cmd, ingest.Request{Title: title, Text: string(data), Metadata: md})
	},
}

var ingestGitHubCmd = &cobra.Command{
	Use:   "github",
	Short: "Ingest every markdown and text file below a repository path",
	Long: `Fetches the documents below --path at --ref and ingests each of them.
Documents that fail to fetch or store are reported and skipped.

Environment variables:
  GITHUB_TOKEN   GitHub token for higher rate limits (optional)
  GITHUB_OWNER, GITHUB_REPO, GITHUB_PATH, GITHUB_REF  flag defaults`,
	RunE: runIngestGitHub,
}

func init() {
	for _, c := range []*cobra.Command{ingestTextCmd, ingestFileCmd} {
		c.Flags().StringVar(&ingestTitle, "title", "", "document title; chunks are titled after it")
		c.Flags().StringToStringVar(&ingestMeta, "meta", nil, "metadata copied onto every chunk (key=value)")
		c.Flags().BoolVar(&ingestAsync, "async", false, "queue the document for the server's ingest worker")
	}

	ingestGitHubCmd.Flags().StringVar(&ghOwner, "owner", "", "repository owner")
	ingestGitHubCmd.Flags().StringVar(&ghRepo, "repo", "", "repository name")
	ingestGitHubCmd.Flags().StringVar(&ghPath, "path", "", "directory inside the repository")
	ingestGitHubCmd.Flags().StringVar(&ghRef, "ref", "", "branch, tag or commit")

	ingestCmd.AddCommand(ingestTextCmd, ingestFileCmd, ingestGitHubCmd)
}

func metadata(source string) map[string]any {
	md := map[string]any{"source": source}
	for k, v := range ingestMeta {
		md[k] = v
	}
	return md
}

func runIngest(cmd *cobra.Command, req ingest.Request) error {
	ctx := cmd.Context()
	a, err := openApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	if ingestAsync {
		if a.Publisher == nil {
			return fmt.Errorf("--async needs RABBITMQ_URL")
		}
		jobID, err := a.Publisher.Publish(ctx, req)
		if err != nil {
			return err
		}
		fmt.Printf("Queued job %s\n", jobID)
		return nil
	}

	res, err := a.Pipeline.Ingest(ctx, req)
	if res != nil {
		fmt.Printf("Ingested %q: %d chunks, %d embedded (run %s, %s)\n",
			res.Title, res.Chunks, res.Embedded, res.RunID, res.Duration.Round(time.Millisecond))
		for _, f := range res.Failures {
			fmt.Printf("  - chunk %d stored without embedding: %s\n", f.Index, f.Reason)
		}
	}
	return err
}

func runIngestGitHub(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	start := time.Now()

	a, err := openApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	gh := a.Config.GitHub
	owner, repo, path, ref := firstNonEmpty(ghOwner, gh.Owner), firstNonEmpty(ghRepo, gh.Repo),
		firstNonEmpty(ghPath, gh.BasePath), firstNonEmpty(ghRef, gh.Ref)
	if owner == "" || repo == "" {
		return fmt.Errorf("--owner and --repo are required")
	}

	client, err := ghclient.NewClient(ctx, gh.Token)
	if err != nil {
		return fmt.Errorf("create GitHub client: %w", err)
	}
	fetcher := ghclient.NewFetcher(client, owner, repo, path, ref)

	fmt.Printf("Ingesting %s/%s/%s...\n", owner, repo, path)
	result, err := a.Pipeline.IngestSource(ctx, fetcher)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Documents: %d/%d\n", result.SuccessfulDocs, result.TotalDocs)
	fmt.Printf("  Chunks: %d (%d embedded)\n", result.TotalChunks, result.EmbeddedChunks)
	fmt.Printf("  Commit: %s\n", result.Revision)

	if len(result.FailedDocs) > 0 {
		fmt.Println()
		fmt.Println("Failed documents:")
		for _, failed := range result.FailedDocs {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}

	fmt.Println()
	fmt.Printf("Total time: %s\n", time.Since(start).Round(time.Second))
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
