package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui"
)

// tuiCmd represents the tui command.
var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive terminal UI",
	Long: `Launch the interactive terminal chat for kbassist.

Answers stream in as they are generated. Search and the document list
can pin documents so later questions use them as context.

Controls:
  Enter      - Send / Select
  Ctrl+D     - Toggle document context
  Ctrl+X     - Clear pinned documents
  Space/p    - Pin document (documents view)
  Esc        - Back / Cancel answer
  ?          - Help
  Ctrl+C     - Quit`,
	Args: cobra.NoArgs,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func newTUIPorts() *tui.Ports {
	return tui.NewPorts(chatService, retrievalService, documentService, ownerID)
}

func runTUI(cmd *cobra.Command, _ []string) error {
	app, err := tui.NewApp(newTUIPorts())
	if err != nil {
		return fmt.Errorf("failed to create TUI: %w", err)
	}

	app.WithContext(cmd.Context())

	if err := app.Run(); err != nil {
		return fmt.Errorf("TUI error: %w", err)
	}
	return nil
}
