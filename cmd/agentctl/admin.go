package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/bull/voice-agent/internal/app"
	"github.com/bull/voice-agent/internal/storage"
)

var (
	docsLimit    int
	groupsLimit  int
	updTitle     string
	updContent   string
	updMetaJSON  string
	groupDesc    string
	reindexBatch int
)

var initDBCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Create the database schema and the vector index",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), app.Options{Migrate: true})
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Postgres == nil {
			fmt.Println("Memory backend selected; nothing to initialise.")
			return nil
		}
		fmt.Printf("Database initialised (embedding dimension %d)\n", a.Config.Store.Dimension)
		return nil
	},
}

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the Qdrant side-car index from the documents table",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		if a.Postgres == nil {
			return errors.New("reindex needs the postgres backend")
		}
		n, err := a.Postgres.Reindex(cmd.Context(), reindexBatch)
		if err != nil {
			return err
		}
		fmt.Printf("Reindexed %d embeddings\n", n)
		return nil
	},
}

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List, view, update and delete stored documents",
}

var docsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the most recent documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		docs, err := a.Store.List(cmd.Context(), docsLimit)
		if err != nil {
			return err
		}
		for _, d := range docs {
			fmt.Printf("[%d] %s  %s  embedded=%t\n", d.ID, d.CreatedAt.Format("2006-01-02 15:04"), d.Title, d.HasEmbedding())
		}
		return nil
	},
}

var docsGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		doc, err := a.Store.Get(cmd.Context(), id)
		if err != nil {
			return err
		}
		return printJSON(doc)
	},
}

var docsUpdateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Change a document's title, content or metadata",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		var upd storage.DocumentUpdate
		if cmd.Flags().Changed("title") {
			upd.Title = &updTitle
		}
		if cmd.Flags().Changed("content") {
			upd.Content = &updContent
		}
		if updMetaJSON != "" {
			if err := json.Unmarshal([]byte(updMetaJSON), &upd.Metadata); err != nil {
				return fmt.Errorf("invalid --metadata: %w", err)
			}
		}

		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		ok, err := a.Store.Update(cmd.Context(), id, upd)
		if err != nil {
			return err
		}
		fmt.Printf("updated: %t\n", ok)
		return nil
	},
}

var docsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		existed, err := a.Store.Delete(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("deleted: %t\n", existed)
		return nil
	},
}

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Manage chat groups",
}

var groupsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List groups, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		groups, err := a.Store.ListGroups(cmd.Context(), groupsLimit)
		if err != nil {
			return err
		}
		for _, g := range groups {
			fmt.Printf("[%d] %d  %s  %s\n", g.ID, g.ExternalID, g.Name, g.Description)
		}
		return nil
	},
}

var groupsAddCmd = &cobra.Command{
	Use:   "add <group-id> <name>",
	Short: "Add a group by its platform id",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		extID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid group id %q: %w", args[0], err)
		}
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Store.AddGroup(cmd.Context(), storage.NewGroup{ExternalID: extID, Name: args[1], Description: groupDesc})
		if err != nil {
			return err
		}
		fmt.Printf("Added group %d\n", id)
		return nil
	},
}

var groupsDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a stored group",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		a, err := openApp(cmd.Context(), app.Options{})
		if err != nil {
			return err
		}
		defer a.Close()

		deleted, err := a.Store.DeleteGroup(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Printf("deleted: %t\n", deleted)
		return nil
	},
}

func init() {
	reindexCmd.Flags().IntVar(&reindexBatch, "batch", 100, "documents per upsert batch")

	docsListCmd.Flags().IntVar(&docsLimit, "limit", 20, "maximum number of documents")
	docsUpdateCmd.Flags().StringVar(&updTitle, "title", "", "new title")
	docsUpdateCmd.Flags().StringVar(&updContent, "content", "", "new content")
	docsUpdateCmd.Flags().StringVar(&updMetaJSON, "metadata", "", "replacement metadata as a JSON object")
	docsCmd.AddCommand(docsListCmd, docsGetCmd, docsUpdateCmd, docsDeleteCmd)

	groupsListCmd.Flags().IntVar(&groupsLimit, "limit", 50, "maximum number of groups")
	groupsAddCmd.Flags().StringVar(&groupDesc, "description", "", "group description")
	groupsCmd.AddCommand(groupsListCmd, groupsAddCmd, groupsDeleteCmd)
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}
