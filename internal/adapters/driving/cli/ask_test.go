package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

func TestAskCmd_StreamsByDefault(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()

	out, errOut, err := execute("ask", "what", "is", "go?")

	require.NoError(t, err)
	assert.Contains(t, out, "Go is a language.")
	assert.Empty(t, errOut)
	require.Len(t, ts.chat.requests, 1)
	req := ts.chat.requests[0]
	assert.Equal(t, "what is go?", req.Message)
	assert.True(t, req.UseDocuments)
	assert.Empty(t, req.DocumentIDs)
	assert.Equal(t, int64(1), req.OwnerID)
}

func TestAskCmd_Blocking(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.deltas = nil

	out, _, err := execute("ask", "--stream=false", "hello")

	require.NoError(t, err)
	assert.Contains(t, out, "Go is a language.")
}

func TestAskCmd_DocumentFlags(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		useDocs bool
		ids     []int64
	}{
		{name: "pinned documents", args: []string{"ask", "--doc", "1,2", "q"}, useDocs: true, ids: []int64{1, 2}},
		{name: "repeated doc flag", args: []string{"ask", "-d", "3", "-d", "4", "q"}, useDocs: true, ids: []int64{3, 4}},
		{name: "no documents", args: []string{"ask", "--no-docs", "q"}, useDocs: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts, cleanup := setupTestServices()
			defer cleanup()

			_, _, err := execute(tt.args...)

			require.NoError(t, err)
			require.Len(t, ts.chat.requests, 1)
			assert.Equal(t, tt.useDocs, ts.chat.requests[0].UseDocuments)
			assert.ElementsMatch(t, tt.ids, ts.chat.requests[0].DocumentIDs)
		})
	}
}

func TestAskCmd_DocAndNoDocsConflict(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()

	_, _, err := execute("ask", "--doc", "1", "--no-docs", "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot be combined")
}

func TestAskCmd_PrintsSources(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.reply = &domain.ChatResponse{
		Message: "answer",
		Sources: []domain.SearchResult{{DocumentID: 1, Title: "Go Notes", Score: 0.9}},
	}
	ts.chat.deltas = []string{"answer"}

	out, _, err := execute("ask", "q")

	require.NoError(t, err)
	assert.Contains(t, out, "Sources:")
	assert.Contains(t, out, "[1] Go Notes (0.90)")
}

func TestAskCmd_DegradedWarns(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.reply = &domain.ChatResponse{Message: "Hello! How can I help?", Degraded: true}
	ts.chat.deltas = []string{"Hello! How can I help?"}

	out, errOut, err := execute("ask", "hello")

	require.NoError(t, err)
	assert.Contains(t, out, "Hello! How can I help?")
	assert.Contains(t, errOut, "fallback reply")
}

func TestAskCmd_ServiceError(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ts.chat.err = domain.ErrInvalidInput

	_, _, err := execute("ask", "--stream=false", "q")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestAskCmd_ServiceNotConfigured(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	chatService = nil

	_, _, err := execute("ask", "q")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat service not configured")
}
