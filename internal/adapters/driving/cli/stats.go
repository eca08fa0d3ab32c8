package cli

import (
	"sort"

	"github.com/spf13/cobra"
)

var statsPing bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show model, index and document statistics",
	Args:  cobra.NoArgs,
	RunE:  runStats,
}

func init() {
	statsCmd.Flags().BoolVar(&statsPing, "ping", false, "check connectivity of each backend")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, _ []string) error {
	if retrievalService == nil {
		return errRetrievalNotConfigured
	}
	ctx := cmd.Context()

	info := retrievalService.ModelInfo()
	cmd.Println("[Models]")
	cmd.Printf("  Embedding: %s (dim %d, loaded: %t)\n", info.EmbeddingModel, info.Dimension, info.EmbeddingLoaded)
	if info.RerankModel != "" {
		cmd.Printf("  Rerank:    %s (loaded: %t)\n", info.RerankModel, info.RerankLoaded)
	} else {
		cmd.Println("  Rerank:    disabled")
	}
	cmd.Printf("  Chunking:  size %d, overlap %d\n", info.ChunkSize, info.ChunkOverlap)
	cmd.Println()

	cmd.Println("[Index]")
	stats, err := retrievalService.Stats(ctx)
	if err != nil {
		cmd.Printf("  unavailable: %v\n", err)
	} else {
		cmd.Printf("  Backend:    %s\n", stats.Backend)
		cmd.Printf("  Collection: %s\n", stats.Collection)
		cmd.Printf("  Dimension:  %d\n", stats.Dimension)
		cmd.Printf("  Vectors:    %d\n", stats.TotalVectors)
	}

	if documentService != nil {
		cmd.Println()
		cmd.Println("[Documents]")
		docs, err := documentService.Summaries(ctx, ownerID)
		if err != nil {
			cmd.Printf("  unavailable: %v\n", err)
		} else {
			counts := make(map[string]int)
			for i := range docs {
				counts[statusLabel(docs[i].Status)]++
			}
			cmd.Printf("  Total: %d\n", len(docs))
			for _, status := range sortedKeys(counts) {
				cmd.Printf("  %s: %d\n", status, counts[status])
			}
		}
	}

	if statsPing && healthChecker != nil {
		cmd.Println()
		cmd.Println("[Connectivity]")
		results := healthChecker.Ping(ctx)
		for _, name := range sortedKeys(results) {
			if results[name] != nil {
				cmd.Printf("  %s: FAILED (%v)\n", name, results[name])
			} else {
				cmd.Printf("  %s: OK\n", name)
			}
		}
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
