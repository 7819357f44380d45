package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/conduitworks/parley/internal/logger"
)

var (
	knowledgeSearchLimit int
)

var knowledgeCmd = &cobra.Command{
	Use:   "knowledge",
	Short: "Manage the retrieval knowledge base",
}

var knowledgeAddCmd = &cobra.Command{
	Use:   "add [title] [file]",
	Short: "Ingest a document",
	Long: `Reads the file, truncates long content, embeds it and stores it under
the title. Re-adding a title stores another copy; delete first to
replace.`,
	Args: cobra.ExactArgs(2),
	RunE: runKnowledgeAdd,
}

var knowledgeListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored documents",
	RunE:  runKnowledgeList,
}

var knowledgeDeleteCmd = &cobra.Command{
	Use:   "delete [title]",
	Short: "Delete all chunks of a title",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeDelete,
}

var knowledgeSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search stored documents by similarity",
	Args:  cobra.ExactArgs(1),
	RunE:  runKnowledgeSearch,
}

var knowledgeWatchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest files as they appear in a directory",
	Long: `Watches a directory and ingests every file written into it, using the
filename (without extension) as the title. Stops on Ctrl-C.`,
	Args: cobra.ExactArgs(1),
	RunE: runKnowledgeWatch,
}

func init() {
	knowledgeSearchCmd.Flags().IntVarP(&knowledgeSearchLimit, "limit", "n", 5, "maximum number of results")

	knowledgeCmd.AddCommand(knowledgeAddCmd)
	knowledgeCmd.AddCommand(knowledgeListCmd)
	knowledgeCmd.AddCommand(knowledgeDeleteCmd)
	knowledgeCmd.AddCommand(knowledgeSearchCmd)
	knowledgeCmd.AddCommand(knowledgeWatchCmd)
	rootCmd.AddCommand(knowledgeCmd)
}

func runKnowledgeAdd(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	title, path := args[0], args[1]
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	receipt, err := knowledgeService.AddDocument(context.Background(), title, string(content), map[string]any{
		"filename": filepath.Base(path),
	})
	if err != nil {
		return fmt.Errorf("add failed: %w", err)
	}

	cmd.Printf("Stored %q as %s\n", title, receipt.DocumentID)
	if receipt.Truncated {
		cmd.Println("Note: content was truncated before embedding.")
	}
	return nil
}

func runKnowledgeList(cmd *cobra.Command, _ []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	groups, err := knowledgeService.ListDocuments(context.Background())
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if len(groups) == 0 {
		cmd.Println("No documents stored.")
		return nil
	}

	for _, g := range groups {
		cmd.Printf("  %s (%d chunks, added %s)\n",
			g.Title, g.ChunkCount, g.CreatedAt.Format("2006-01-02 15:04"))
	}
	cmd.Printf("Total: %d titles\n", len(groups))
	return nil
}

func runKnowledgeDelete(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	n, err := knowledgeService.DeleteDocument(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	cmd.Printf("Deleted %d chunks of %q\n", n, args[0])
	return nil
}

func runKnowledgeSearch(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	results, err := knowledgeService.Search(context.Background(), args[0], knowledgeSearchLimit)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		cmd.Println("No results found.")
		return nil
	}

	for i, r := range results {
		cmd.Printf("  [%d] %s (%.3f)\n", i+1, r.Title, r.Similarity)
		snippet := r.Content
		if len(snippet) > 120 {
			snippet = snippet[:120] + "..."
		}
		cmd.Printf("      %s\n\n", snippet)
	}
	return nil
}

func runKnowledgeWatch(cmd *cobra.Command, args []string) error {
	if knowledgeService == nil {
		return errors.New("knowledge service not configured")
	}

	dir := args[0]
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		return fmt.Errorf("not a directory: %s", dir)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("starting watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	cmd.Printf("Watching %s (Ctrl-C to stop)\n", dir)
	ctx := context.Background()

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if info, err := os.Stat(event.Name); err != nil || info.IsDir() {
				continue
			}
			if err := ingestWatchedFile(ctx, cmd, event.Name); err != nil {
				logger.Warn("Skipping %s: %v", event.Name, err)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)

		case <-stop:
			cmd.Println("Stopped.")
			return nil
		}
	}
}

// ingestWatchedFile stores one file under its basename-derived title.
func ingestWatchedFile(ctx context.Context, cmd *cobra.Command, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	base := filepath.Base(path)
	title := strings.TrimSuffix(base, filepath.Ext(base))

	receipt, err := knowledgeService.AddDocument(ctx, title, string(content), map[string]any{
		"filename": base,
		"watched":  true,
	})
	if err != nil {
		return err
	}

	cmd.Printf("Ingested %q as %s\n", title, receipt.DocumentID)
	return nil
}
