package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConfigStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	return store
}

func TestNewConfigStore_DefaultPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".kbassist", "config.toml"), store.Path())
}

func TestNewConfigStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "config.toml")

	store, err := NewConfigStore(path)

	require.NoError(t, err)
	assert.Equal(t, path, store.Path())
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestNewConfigStore_MkdirError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/config.toml")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_CorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("not toml {{[["), 0600))

	store, err := NewConfigStore(path)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("vector.backend", "qdrant"))
	require.NoError(t, store.Set("vector.port", 6334))
	require.NoError(t, store.Set("retrieval.rerank", true))
	require.NoError(t, store.Set("extraction.allowed_types", []string{"pdf", "md"}))

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"string", store.GetString("vector.backend"), "qdrant"},
		{"int", store.GetInt("vector.port"), 6334},
		{"bool", store.GetBool("retrieval.rerank"), true},
		{"slice", store.GetStringSlice("extraction.allowed_types"), []string{"pdf", "md"}},
		{"missing string", store.GetString("missing"), ""},
		{"missing int", store.GetInt("missing"), 0},
		{"missing bool", store.GetBool("missing"), false},
		{"wrong type", store.GetInt("vector.backend"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestConfigStore_WritesNestedTables(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("vector.backend", "qdrant"))
	require.NoError(t, store.Set("data_dir", "/tmp/kb"))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)

	assert.Contains(t, string(raw), "[vector]")
	assert.Regexp(t, `backend = ['"]qdrant['"]`, string(raw))
	assert.NotContains(t, string(raw), "vector.backend")
}

func TestConfigStore_PersistsAcrossInstances(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("generation.model", "gpt-4o-mini"))
	require.NoError(t, store.Set("generation.max_retries", 5))
	require.NoError(t, store.Set("retrieval.rerank", true))

	reopened, err := NewConfigStore(store.Path())
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", reopened.GetString("generation.model"))
	assert.Equal(t, 5, reopened.GetInt("generation.max_retries"))
	assert.True(t, reopened.GetBool("retrieval.rerank"))
	assert.Equal(t, []string{"generation.max_retries", "generation.model", "retrieval.rerank"}, reopened.Keys())
}

func TestConfigStore_SetConflictRollsBack(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("vector", "flat"))

	err := store.Set("vector.backend", "qdrant")

	require.Error(t, err)
	_, ok := store.Get("vector.backend")
	assert.False(t, ok)
	assert.Equal(t, "flat", store.GetString("vector"))
}

func TestConfigStore_SetEmptyKey(t *testing.T) {
	store := newTestConfigStore(t)

	assert.Error(t, store.Set("", "x"))
}

func TestConfigStore_SetUnencodableValue(t *testing.T) {
	store := newTestConfigStore(t)

	err := store.Set("channel", make(chan int))

	assert.Error(t, err)
	_, ok := store.Get("channel")
	assert.False(t, ok)
}

func TestConfigStore_Unset(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("redis.url", "redis://localhost:6379"))

	require.NoError(t, store.Unset("redis.url"))
	require.NoError(t, store.Unset("redis.url"))

	reopened, err := NewConfigStore(store.Path())
	require.NoError(t, err)
	_, ok := reopened.Get("redis.url")
	assert.False(t, ok)
}

func TestConfigStore_LoadPicksUpExternalEdits(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("log.format", "text"))

	require.NoError(t, os.WriteFile(store.Path(), []byte("[log]\nformat = \"json\"\n"), 0600))
	require.NoError(t, store.Load())

	assert.Equal(t, "json", store.GetString("log.format"))
}

func TestConfigStore_LoadInvalidTOML(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, os.WriteFile(store.Path(), []byte("][}{"), 0600))

	assert.Error(t, store.Load())
}

func TestConfigStore_SaveWriteError(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("key", "value"))
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store := newTestConfigStore(t)
	require.NoError(t, store.Set("key", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_ConcurrentAccess(t *testing.T) {
	store := newTestConfigStore(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("retrieval.limit", 5)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("retrieval.limit")
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, store.GetInt("retrieval.limit"))
}

func TestNest(t *testing.T) {
	nested, err := nest(map[string]any{
		"a.b.c": 1,
		"a.d":   "x",
		"e":     true,
	})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, nested)
	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flatten(nested, ""))
}
