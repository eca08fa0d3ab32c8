package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchCmd_Once(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	for _, name := range []string{"a.txt", "b.md", "c.exe", ".hidden.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("hello"), 0600))
	}

	out, _, err := execute("watch", "--once", dir)

	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "b.md")}, ts.documents.added)
	assert.Contains(t, out, "Added 2 documents, 0 failed.")
	assert.NotContains(t, out, "Watching for changes")
}

func TestWatchCmd_CountsFailures(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.txt")
	require.NoError(t, os.WriteFile(bad, []byte("x"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "good.txt"), []byte("x"), 0600))
	ts.documents.failures = map[string]error{bad: errMock}

	out, _, err := execute("watch", "--once", dir)

	require.NoError(t, err)
	assert.Contains(t, out, "Added 1 documents, 1 failed.")
}

func TestWatchCmd_InvalidDirectory(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	file := filepath.Join(t.TempDir(), "file.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	tests := []struct {
		name string
		path string
	}{
		{name: "missing", path: filepath.Join(t.TempDir(), "nope")},
		{name: "not a directory", path: file},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute("watch", "--once", tt.path)

			require.Error(t, err)
			assert.Contains(t, err.Error(), "root path error")
		})
	}
}

func TestWatchCmd_Flags(t *testing.T) {
	assert.NotNil(t, watchCmd.Flags().Lookup("once"))
	assert.Equal(t, "500ms", watchCmd.Flags().Lookup("debounce").DefValue)
}
