package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

var documentCmd = &cobra.Command{
	Use:     "document",
	Aliases: []string{"doc"},
	Short:   "Manage indexed documents",
	Long:    `List, view, or delete documents in the knowledge base.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your documents",
	Args:  cobra.NoArgs,
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document info",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document and its vectors",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

var showContent bool

func init() {
	documentShowCmd.Flags().BoolVarP(&showContent, "content", "c", false, "print the extracted text")

	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	docs, err := documentService.Summaries(cmd.Context(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(docs) == 0 {
		cmd.Println("No documents found.")
		return nil
	}

	cmd.Println("Documents:")
	cmd.Println()
	for i := range docs {
		cmd.Printf("  [%d] %s\n", docs[i].ID, docs[i].Title)
		cmd.Printf("      Type: %s  Status: %s  Chunks: %d\n", docs[i].FileType, docs[i].Status, docs[i].VectorCount)
		cmd.Printf("      Added: %s\n", formatTime(docs[i].CreatedAt))
	}
	cmd.Println()
	cmd.Printf("Total: %d documents\n", len(docs))
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	doc, err := documentService.Get(cmd.Context(), ownerID, id)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("ID:         %d\n", doc.ID)
	cmd.Printf("Title:      %s\n", doc.Title)
	cmd.Printf("Path:       %s\n", doc.Path)
	cmd.Printf("Type:       %s\n", doc.FileType)
	cmd.Printf("Size:       %d bytes\n", doc.FileSize)
	cmd.Printf("Status:     %s\n", doc.Status)
	if doc.ErrorMessage != "" {
		cmd.Printf("Error:      %s\n", doc.ErrorMessage)
	}
	cmd.Printf("Vectorized: %t (%d chunks)\n", doc.IsVectorized, doc.VectorCount)
	cmd.Printf("Created:    %s\n", formatTime(doc.CreatedAt))
	cmd.Printf("Processed:  %s\n", formatTime(doc.ProcessedAt))

	if showContent {
		cmd.Println()
		cmd.Println(doc.Content)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errDocumentNotConfigured
	}

	id, err := parseDocumentID(args[0])
	if err != nil {
		return err
	}

	if err := documentService.Delete(cmd.Context(), ownerID, id); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	cmd.Printf("Document %d deleted.\n", id)
	return nil
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

// statusLabel is shared with stats output.
func statusLabel(s domain.DocumentStatus) string {
	if s == "" {
		return string(domain.StatusPending)
	}
	return string(s)
}
