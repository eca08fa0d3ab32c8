package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

var (
	searchLimit int
	searchJSON  bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search indexed documents",
	Long: `Finds the documents most similar to the query. Each result shows the
mean similarity of its matching chunks and an excerpt of the best one.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 10, "maximum number of results")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if retrievalService == nil {
		return errRetrievalNotConfigured
	}

	res := retrievalService.Query(cmd.Context(), ownerID, args[0], searchLimit)
	if !res.OK() {
		cmd.PrintErrf("Warning: search degraded (%v)\n", res.Err)
	}

	if searchJSON {
		return outputSearchJSON(cmd, res.Value)
	}
	outputSearchTable(cmd, res.Value)
	return nil
}

type searchResultJSON struct {
	DocumentID int64    `json:"document_id"`
	Title      string   `json:"title"`
	Content    string   `json:"content"`
	Score      float64  `json:"score"`
	Metadata   []string `json:"metadata,omitempty"`
	ChunkCount int      `json:"chunk_count"`
}

func outputSearchJSON(cmd *cobra.Command, results []domain.SearchResult) error {
	out := make([]searchResultJSON, len(results))
	for i, r := range results {
		out[i] = searchResultJSON{
			DocumentID: r.DocumentID,
			Title:      r.Title,
			Content:    r.Content,
			Score:      r.Score,
			Metadata:   r.Metadata,
			ChunkCount: r.ChunkCount,
		}
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputSearchTable(cmd *cobra.Command, results []domain.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}

	cmd.Println("Results:")
	cmd.Println()
	for i := range results {
		title := results[i].Title
		if title == "" {
			title = fmt.Sprintf("document %d", results[i].DocumentID)
		}

		cmd.Printf("  [%d] %s (%.2f, %d chunks)\n", i+1, title, results[i].Score, results[i].ChunkCount)
		cmd.Printf("      id: %d\n", results[i].DocumentID)
		if results[i].Content != "" {
			cmd.Printf("      %s\n", results[i].Content)
		}
		cmd.Println()
	}
}
