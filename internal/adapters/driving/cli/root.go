// Package cli implements the kbassist command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

// Services wired by main. Commands check for nil before use.
var (
	chatService      driving.ChatService
	retrievalService driving.RetrievalService
	documentService  driving.DocumentService
	configStore      driven.ConfigStore
	healthChecker    HealthChecker
	acceptFileType   func(fileType string) bool
	metricsHandler   http.Handler
	metricsAddr      string
	closeServices    func() error
)

// Global flags.
var (
	configPath string
	verbose    bool
	jsonLogs   bool
	ownerID    int64
)

// HealthChecker reports connectivity of the configured backends, keyed by
// component name. A nil error means healthy.
type HealthChecker interface {
	Ping(ctx context.Context) map[string]error
}

// Options carries the global flags into the bootstrap function.
type Options struct {
	ConfigPath string
	Verbose    bool
	JSONLogs   bool
}

// Services groups everything the commands call into.
type Services struct {
	Chat      driving.ChatService
	Retrieval driving.RetrievalService
	Documents driving.DocumentService
	Config    driven.ConfigStore
	Health    HealthChecker

	// Accept reports whether a file type can be ingested. Used by watch.
	Accept func(fileType string) bool

	// Metrics is mounted at /metrics by the HTTP MCP server and served on
	// MetricsAddr otherwise.
	Metrics     http.Handler
	MetricsAddr string

	// Close releases the services after the command finishes.
	Close func() error
}

// Bootstrap builds the services once global flags are parsed.
type Bootstrap func(ctx context.Context, opts Options) (*Services, error)

var bootstrap Bootstrap

var rootCmd = &cobra.Command{
	Use:   "kbassist",
	Short: "Knowledge base assistant",
	Long: `kbassist indexes your documents and answers questions about them.

Add files with "kbassist add", then search them or ask questions with
"kbassist search" and "kbassist ask". Answers are generated by a remote
chat completions API from the passages most relevant to your question.`,
	SilenceUsage:       true,
	SilenceErrors:      true,
	PersistentPreRunE:  setup,
	PersistentPostRunE: teardown,
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "config file (default ~/.kbassist/config.toml)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	flags.BoolVar(&jsonLogs, "log-json", false, "write logs as JSON")
	flags.Int64Var(&ownerID, "user", 1, "owner id documents are stored under")
}

// SetBootstrap registers the function that builds services before a
// command runs.
func SetBootstrap(b Bootstrap) {
	bootstrap = b
}

// SetServices installs services directly, bypassing bootstrap.
func SetServices(s *Services) {
	if s == nil {
		s = &Services{}
	}
	chatService = s.Chat
	retrievalService = s.Retrieval
	documentService = s.Documents
	configStore = s.Config
	healthChecker = s.Health
	acceptFileType = s.Accept
	metricsHandler = s.Metrics
	metricsAddr = s.MetricsAddr
	closeServices = s.Close
}

// SetVersion sets the version reported by "kbassist version".
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command. Services are closed even when the
// command fails.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	return errors.Join(err, teardown(rootCmd, nil))
}

func setup(cmd *cobra.Command, _ []string) error {
	logger.SetOutput(cmd.ErrOrStderr())
	logger.SetVerbose(verbose)
	logger.SetJSON(jsonLogs)

	if bootstrap == nil || skipBootstrap(cmd) {
		return nil
	}

	svc, err := bootstrap(cmd.Context(), Options{
		ConfigPath: configPath,
		Verbose:    verbose,
		JSONLogs:   jsonLogs,
	})
	if err != nil {
		return fmt.Errorf("initialising: %w", err)
	}
	SetServices(svc)
	return nil
}

func teardown(_ *cobra.Command, _ []string) error {
	if closeServices == nil {
		return nil
	}
	err := closeServices()
	closeServices = nil
	return err
}

func skipBootstrap(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations["bootstrap"] == "skip" {
			return true
		}
	}
	return false
}

var (
	errChatNotConfigured      = errors.New("chat service not configured")
	errRetrievalNotConfigured = errors.New("retrieval service not configured")
	errDocumentNotConfigured  = errors.New("document service not configured")
	errConfigNotConfigured    = errors.New("config store not configured")
)
