package cli

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command with args and returns stdout and stderr.
func execute(args ...string) (string, string, error) {
	out := new(bytes.Buffer)
	errOut := new(bytes.Buffer)
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return out.String(), errOut.String(), err
}

func TestRootCmd_Use(t *testing.T) {
	assert.Equal(t, "kbassist", rootCmd.Use)
}

func TestRootCmd_HasCommands(t *testing.T) {
	names := make([]string, 0)
	for _, c := range rootCmd.Commands() {
		names = append(names, c.Name())
	}

	for _, want := range []string{"add", "ask", "config", "document", "mcp", "reindex", "search", "stats", "tui", "version", "watch"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCmd_PersistentFlags(t *testing.T) {
	flags := rootCmd.PersistentFlags()
	for _, name := range []string{"config", "verbose", "log-json", "user"} {
		assert.NotNil(t, flags.Lookup(name), name)
	}
	assert.Equal(t, "1", flags.Lookup("user").DefValue)
}

func TestBootstrap_BuildsServicesAndCloses(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	SetServices(nil)

	var (
		gotOpts Options
		closed  bool
	)
	SetBootstrap(func(_ context.Context, opts Options) (*Services, error) {
		gotOpts = opts
		return &Services{
			Documents: ts.documents,
			Close: func() error {
				closed = true
				return nil
			},
		}, nil
	})
	defer SetBootstrap(nil)
	defer func() { configPath = "" }()

	out, _, err := execute("--config", "/etc/kbassist.toml", "document", "list")

	require.NoError(t, err)
	assert.Equal(t, "/etc/kbassist.toml", gotOpts.ConfigPath)
	assert.Contains(t, out, "Go Notes")
	assert.True(t, closed)
}

func TestBootstrap_ErrorStopsCommand(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	SetBootstrap(func(context.Context, Options) (*Services, error) {
		return nil, errMock
	})
	defer SetBootstrap(nil)

	_, _, err := execute("document", "list")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "initialising")
	assert.ErrorIs(t, err, errMock)
}

func TestBootstrap_SkippedForVersion(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	called := false
	SetBootstrap(func(context.Context, Options) (*Services, error) {
		called = true
		return &Services{}, nil
	})
	defer SetBootstrap(nil)

	_, _, err := execute("version")

	require.NoError(t, err)
	assert.False(t, called)
}

func TestSetVersion(t *testing.T) {
	original := version
	defer func() { version = original }()

	SetVersion("")
	assert.Equal(t, original, version)

	SetVersion("1.2.3")
	assert.Equal(t, "1.2.3", version)
}

func TestUserFlag_SetsOwner(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("--user", "42", "ask", "--stream=false", "hello")

	require.NoError(t, err)
	require.Len(t, ts.chat.requests, 1)
	assert.Equal(t, int64(42), ts.chat.requests[0].OwnerID)
}
