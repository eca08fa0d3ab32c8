package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

var (
	askStream  bool
	askDocs    []int64
	askNoDocs  bool
	askSources bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question about your documents",
	Long: `Answers a question using the passages most relevant to it. With --doc
the named documents are used as context instead of similarity search.
With --no-docs the question is sent without any reference material.

If the generation API is unreachable after retries a short fallback reply
is printed and a warning is written to stderr.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVarP(&askStream, "stream", "s", true, "print the answer as it is generated")
	askCmd.Flags().Int64SliceVarP(&askDocs, "doc", "d", nil, "document ids to use as context")
	askCmd.Flags().BoolVar(&askNoDocs, "no-docs", false, "answer without reference documents")
	askCmd.Flags().BoolVar(&askSources, "sources", true, "list the documents the answer drew on")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if chatService == nil {
		return errChatNotConfigured
	}
	if askNoDocs && len(askDocs) > 0 {
		return fmt.Errorf("--doc and --no-docs cannot be combined")
	}

	req := domain.ChatRequest{
		OwnerID:      ownerID,
		Message:      strings.Join(args, " "),
		UseDocuments: !askNoDocs,
		DocumentIDs:  askDocs,
	}

	var (
		resp *domain.ChatResponse
		err  error
	)
	if askStream {
		out := cmd.OutOrStdout()
		resp, err = chatService.Stream(cmd.Context(), req, func(delta string) error {
			_, werr := fmt.Fprint(out, delta)
			return werr
		})
		cmd.Println()
	} else {
		resp, err = chatService.Reply(cmd.Context(), req)
		if resp != nil {
			cmd.Println(resp.Message)
		}
	}
	if err != nil {
		return fmt.Errorf("ask failed: %w", err)
	}

	if resp.Degraded {
		cmd.PrintErrln("Warning: the generation service was unavailable; showing a fallback reply.")
	}
	if askSources {
		printSources(cmd, resp.Sources)
	}
	return nil
}

func printSources(cmd *cobra.Command, sources []domain.SearchResult) {
	if len(sources) == 0 {
		return
	}
	cmd.Println()
	cmd.Println("Sources:")
	for i := range sources {
		cmd.Printf("  [%d] %s (%.2f)\n", sources[i].DocumentID, sources[i].Title, sources[i].Score)
	}
}
