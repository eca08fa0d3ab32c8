package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbassist/internal/connectors/filesystem"
)

var (
	watchOnce     bool
	watchDebounce time.Duration
)

var watchCmd = &cobra.Command{
	Use:   "watch [directory]",
	Short: "Ingest a directory and keep it in sync",
	Long: `Adds every supported file under the directory, then watches it and
re-indexes files as they are created, modified, or removed. Hidden files
and unsupported types are skipped.

Use --once to run the initial pass and exit.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().BoolVar(&watchOnce, "once", false, "ingest once and exit")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", filesystem.DefaultDebounce, "coalesce changes within this window")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	conn := filesystem.New(localPath(args[0]), acceptFileType)
	if err := conn.Validate(); err != nil {
		return err
	}
	defer conn.Close()

	syncer := filesystem.NewSyncer(conn, documentService, ownerID)
	syncer.SetDebounce(watchDebounce)
	syncer.OnChange = func(change filesystem.Change, err error) {
		if err != nil {
			cmd.PrintErrf("  %s %s: %v\n", change.Type, change.Path, err)
			return
		}
		cmd.Printf("  %s %s\n", change.Type, change.Path)
	}

	ctx := cmd.Context()

	cmd.Printf("Ingesting %s...\n", conn.Root())
	stats, err := syncer.Initial(ctx)
	if err != nil {
		return fmt.Errorf("initial sync failed: %w", err)
	}
	cmd.Printf("Added %d documents, %d failed.\n", stats.Added, stats.Failed)

	if watchOnce {
		return nil
	}

	cmd.Println("Watching for changes (Ctrl+C to stop)...")
	if err := syncer.Run(ctx); err != nil {
		return fmt.Errorf("watch failed: %w", err)
	}

	total := syncer.Stats()
	cmd.Printf("Stopped. %d added, %d updated, %d deleted, %d failed.\n",
		total.Added, total.Updated, total.Deleted, total.Failed)
	return nil
}
