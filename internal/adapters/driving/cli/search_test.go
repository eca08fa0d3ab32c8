package cli

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

func TestSearchCmd_Use(t *testing.T) {
	assert.Equal(t, "search [query]", searchCmd.Use)
}

func TestSearchCmd_RequiresExactlyOneArg(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("search")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg(s)")
}

func TestSearchCmd_PrintsResults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, errOut, err := execute("search", "what is go")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] Go Notes (0.91, 2 chunks)")
	assert.Contains(t, out, "id: 1")
	assert.Contains(t, out, "Go is a language")
	assert.Empty(t, errOut)
	assert.Equal(t, []string{"what is go"}, ts.retrieval.queries)
	assert.Equal(t, []int{10}, ts.retrieval.limits)
}

func TestSearchCmd_LimitFlag(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("search", "-n", "3", "go")

	require.NoError(t, err)
	assert.Equal(t, []int{3}, ts.retrieval.limits)
}

func TestSearchCmd_JSON(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	out, _, err := execute("search", "--json", "go")
	require.NoError(t, err)

	var got []searchResultJSON
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 1)
	assert.Equal(t, int64(1), got[0].DocumentID)
	assert.Equal(t, "Go Notes", got[0].Title)
	assert.Equal(t, 2, got[0].ChunkCount)
}

func TestSearchCmd_NoResults(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.results = domain.Success([]domain.SearchResult{})

	out, _, err := execute("search", "nothing")

	require.NoError(t, err)
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_DegradedWarns(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.results = domain.Failure([]domain.SearchResult{}, domain.ErrIndexUnavailable)

	out, errOut, err := execute("search", "go")

	require.NoError(t, err)
	assert.Contains(t, errOut, "Warning: search degraded")
	assert.Contains(t, out, "No results found.")
}

func TestSearchCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	retrievalService = nil

	_, _, err := execute("search", "go")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retrieval service not configured")
}

func TestSearchCmd_UntitledResult(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.retrieval.results = domain.Success([]domain.SearchResult{{DocumentID: 9, Score: 0.8, ChunkCount: 1}})

	out, _, err := execute("search", "go")

	require.NoError(t, err)
	assert.Contains(t, out, "[1] document 9 (0.80, 1 chunks)")
}
