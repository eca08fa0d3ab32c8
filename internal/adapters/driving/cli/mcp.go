package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/mcp"
	"github.com/custodia-labs/kbassist/internal/logger"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can search
and question your knowledge base.

By default the server communicates over stdio using JSON-RPC. Use --port to
serve streamable HTTP instead; Prometheus metrics are then exposed on
/metrics of the same listener. In stdio mode metrics are served on
metrics.addr when it is configured.

Examples:
  # Stdio mode (default)
  kbassist mcp serve

  # HTTP mode
  kbassist mcp serve --port 8080

Desktop client configuration:
  {
    "mcpServers": {
      "kbassist": {
        "command": "/path/to/kbassist",
        "args": ["mcp", "serve"]
      }
    }
  }`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}

	server, err := mcp.NewServer(&mcp.Ports{
		Retrieval: retrievalService,
		Chat:      chatService,
		Documents: documentService,
		OwnerID:   ownerID,
	})
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	if port > 0 {
		extra := map[string]http.Handler{}
		if metricsHandler != nil {
			extra["/metrics"] = metricsHandler
		}
		addr := fmt.Sprintf(":%d", port)
		cmd.PrintErrf("MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(ctx, addr, extra)
	}

	if metricsHandler != nil && metricsAddr != "" {
		go serveMetrics(ctx, metricsAddr, metricsHandler)
	}
	return server.Run(ctx)
}

// serveMetrics exposes /metrics on addr until ctx is done.
func serveMetrics(ctx context.Context, addr string, h http.Handler) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", h)
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("metrics listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("metrics server: %v", err)
	}
}
