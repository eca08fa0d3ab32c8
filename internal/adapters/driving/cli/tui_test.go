package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui"
)

func TestTUICmd_Use(t *testing.T) {
	assert.Equal(t, "tui", tuiCmd.Use)
}

func TestNewTUIPorts_CarriesServices(t *testing.T) {
	ts, cleanup := setupTestServices()
	defer cleanup()
	ownerID = 7

	ports := newTUIPorts()

	require.NoError(t, ports.Validate())
	assert.Same(t, ts.chat, ports.Chat)
	assert.Same(t, ts.retrieval, ports.Retrieval)
	assert.Same(t, ts.documents, ports.Documents)
	assert.Equal(t, int64(7), ports.OwnerID)
}

func TestTUICmd_RequiresChat(t *testing.T) {
	_, cleanup := setupTestServices()
	defer cleanup()
	chatService = nil

	_, _, err := execute("tui")

	require.Error(t, err)
	assert.ErrorIs(t, err, tui.ErrMissingChatService)
	assert.Contains(t, err.Error(), "failed to create TUI")
}
