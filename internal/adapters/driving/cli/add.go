package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbassist/internal/connectors/filesystem"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

var addTitle string

var addCmd = &cobra.Command{
	Use:   "add [path...]",
	Short: "Add documents to the knowledge base",
	Long: `Adds one or more files to the knowledge base. Each file is extracted,
chunked, embedded and indexed straight away. Adding a path that is already
known reprocesses it in place.

Paths may be relative, absolute, start with ~ or be file:// URIs.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var reindexCmd = &cobra.Command{
	Use:   "reindex [doc-id]",
	Short: "Re-extract and re-index a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runReindex,
}

func init() {
	addCmd.Flags().StringVarP(&addTitle, "title", "t", "", "document title (single path only)")
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(reindexCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	ctx := cmd.Context()

	if len(args) == 1 {
		doc, err := documentService.Add(ctx, driving.AddDocumentRequest{
			OwnerID: ownerID,
			Path:    localPath(args[0]),
			Title:   addTitle,
		})
		if err != nil {
			return fmt.Errorf("failed to add %s: %w", args[0], err)
		}
		printAdded(cmd, doc)
		return nil
	}

	if addTitle != "" {
		return errors.New("--title can only be used with a single path")
	}

	paths := make([]string, len(args))
	for i, arg := range args {
		paths[i] = localPath(arg)
	}

	docs, failures := documentService.AddBatch(ctx, ownerID, paths)
	for i := range docs {
		printAdded(cmd, &docs[i])
	}

	if len(failures) == 0 {
		return nil
	}

	failed := make([]string, 0, len(failures))
	for path := range failures {
		failed = append(failed, path)
	}
	sort.Strings(failed)
	for _, path := range failed {
		cmd.PrintErrf("  failed %s: %v\n", path, failures[path])
	}
	return fmt.Errorf("%d of %d documents failed", len(failures), len(paths))
}

func printAdded(cmd *cobra.Command, doc *domain.Document) {
	switch doc.Status {
	case domain.StatusCompleted:
		cmd.Printf("  [%d] %s (%d chunks indexed)\n", doc.ID, doc.Title, doc.VectorCount)
	case domain.StatusFailed:
		cmd.Printf("  [%d] %s (failed: %s)\n", doc.ID, doc.Title, doc.ErrorMessage)
	default:
		cmd.Printf("  [%d] %s (%s)\n", doc.ID, doc.Title, doc.Status)
	}
}

func runReindex(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	report, err := documentService.Reindex(cmd.Context(), ownerID, id)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	if !report.Success {
		return fmt.Errorf("reindex failed: %w", report.Err)
	}

	cmd.Printf("Document %d reindexed (%d chunks)\n", id, report.VectorCount)
	return nil
}

func parseDocumentID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid document id %q", s)
	}
	return id, nil
}

// localPath turns a command line argument into an absolute local path.
func localPath(arg string) string {
	p := filesystem.ResolvePath(arg)
	if p == "~" || strings.HasPrefix(p, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, strings.TrimPrefix(p, "~"))
		}
	}
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}
