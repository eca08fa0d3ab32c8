package input

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/styles"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name  string
		field *Field
		label string
		limit int
	}{
		{"chat", NewChatInput(styles.DefaultStyles()), "You: ", chatCharLimit},
		{"search", NewSearchInput(nil), "Search: ", searchCharLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotNil(t, tt.field)
			assert.NotNil(t, tt.field.styles)
			assert.Equal(t, tt.label, tt.field.label)
			assert.Equal(t, tt.limit, tt.field.CharLimit())
			assert.True(t, tt.field.Focused())
			assert.Empty(t, tt.field.Value())
		})
	}
}

func TestField_Init(t *testing.T) {
	assert.NotNil(t, NewChatInput(nil).Init())
}

func TestField_UpdateTyping(t *testing.T) {
	f := NewChatInput(nil)

	f, _ = f.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("hi")})

	assert.Equal(t, "hi", f.Value())
}

func TestField_SetValueAndReset(t *testing.T) {
	f := NewSearchInput(nil)

	f.SetValue("vector index")
	assert.Equal(t, "vector index", f.Value())

	f.Reset()
	assert.Empty(t, f.Value())
}

func TestField_FocusBlur(t *testing.T) {
	f := NewChatInput(nil)

	f.Blur()
	assert.False(t, f.Focused())

	f.Focus()
	assert.True(t, f.Focused())
}

func TestField_SetWidth(t *testing.T) {
	f := NewChatInput(nil)

	f.SetWidth(120)
	assert.Equal(t, 120, f.Width())
	assert.Equal(t, 120-5-6, f.textinput.Width)

	f.SetWidth(10)
	assert.Equal(t, 20, f.textinput.Width)
}

func TestField_View(t *testing.T) {
	f := NewSearchInput(nil)

	assert.Contains(t, f.View(), "Search:")
}
