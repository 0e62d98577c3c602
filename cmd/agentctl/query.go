package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bull/voice-agent/internal/agent"
	"github.com/bull/voice-agent/internal/app"
	"github.com/bull/voice-agent/internal/retrieval"
)

var searchK int

var searchCmd = &cobra.Command{
	Use:   "search <query>...",
	Short: "Semantic search over stored documents",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		printSearch(a.Retrieval.Search(cmd.Context(), strings.Join(args, " "), searchK))
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route <text>...",
	Short: "Route text to a tool and print the tool output",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ag := agent.New(a.Store, a.Retrieval, a.Logger)
		return printJSON(ag.Handle(cmd.Context(), strings.Join(args, " ")))
	},
}

var voiceCmd = &cobra.Command{
	Use:   "voice <audio-file>",
	Short: "Transcribe an audio file and route the transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		text, err := a.Transcriber.Transcribe(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("transcribe: %w", err)
		}
		fmt.Printf("Transcript: %s\n\n", text)

		ag := agent.New(a.Store, a.Retrieval, a.Logger)
		return printJSON(ag.Handle(cmd.Context(), text))
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchK, "k", "k", retrieval.DefaultK, "number of results")
}

func printSearch(res *retrieval.Result) {
	if res.Fallback {
		fmt.Printf("Search unavailable (%s); most recent documents:\n", res.Error)
		for _, d := range res.Recent {
			fmt.Printf("  [%d] %s\n", d.ID, d.Title)
		}
		return
	}
	if len(res.Matches) == 0 {
		fmt.Println("No matching documents found.")
		return
	}
	for _, m := range res.Matches {
		fmt.Printf("  [%d] %.4f  %s\n", m.ID, m.Distance, m.Title)
	}
}
