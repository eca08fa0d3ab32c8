package chat

import (
	"context"
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbassist/internal/core/domain"
)

type mockChatService struct {
	StreamFunc func(ctx context.Context, req domain.ChatRequest, emit func(string) error) (*domain.ChatResponse, error)
	requests   []domain.ChatRequest
}

func (m *mockChatService) Reply(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	return m.Stream(ctx, req, func(string) error { return nil })
}

func (m *mockChatService) Stream(
	ctx context.Context, req domain.ChatRequest, emit func(string) error,
) (*domain.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.StreamFunc != nil {
		return m.StreamFunc(ctx, req, emit)
	}
	return &domain.ChatResponse{Message: "ok"}, nil
}

func deltas(parts ...string) func(context.Context, domain.ChatRequest, func(string) error) (*domain.ChatResponse, error) {
	return func(_ context.Context, _ domain.ChatRequest, emit func(string) error) (*domain.ChatResponse, error) {
		full := ""
		for _, p := range parts {
			if err := emit(p); err != nil {
				return nil, err
			}
			full += p
		}
		return &domain.ChatResponse{
			Message: full,
			Sources: []domain.SearchResult{{DocumentID: 4, Title: "Handbook", Score: 0.8}},
		}, nil
	}
}

func newTestView(svc *mockChatService) *View {
	v := NewView(nil, nil, svc, 7)
	v.SetDimensions(100, 30)
	return v
}

func typeText(v *View, text string) {
	v.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

// run feeds command results back into the view until the stream ends.
func run(t *testing.T, v *View, cmd tea.Cmd) {
	t.Helper()
	for i := 0; cmd != nil; i++ {
		require.Less(t, i, 100, "stream did not finish")
		_, cmd = v.Update(cmd())
	}
}

func TestNewView(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, 1)

	require.NotNil(t, v)
	assert.True(t, v.UseDocuments())
	assert.Empty(t, v.Pinned())
	assert.False(t, v.Streaming())
	assert.Equal(t, "docs: on", v.Status().Label())
	assert.NotNil(t, v.Init())
	assert.Equal(t, "Initialising...", v.View())
}

func TestView_SendStreamsReply(t *testing.T) {
	svc := &mockChatService{StreamFunc: deltas("Hel", "lo", "!")}
	v := newTestView(svc)

	typeText(v, "  what is the policy?  ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)
	assert.True(t, v.Streaming())
	assert.Equal(t, status.StateThinking, v.Status().State())
	assert.Empty(t, v.Input().Value())

	run(t, v, cmd)

	assert.False(t, v.Streaming())
	require.Len(t, v.Turns(), 2)
	assert.Equal(t, Turn{Role: RoleUser, Text: "what is the policy?"}, v.Turns()[0])
	assert.Equal(t, "Hello!", v.Turns()[1].Text)
	assert.Len(t, v.Turns()[1].Sources, 1)
	assert.Equal(t, status.StateReady, v.Status().State())

	require.Len(t, svc.requests, 1)
	assert.Equal(t, domain.ChatRequest{
		OwnerID:      7,
		Message:      "what is the policy?",
		UseDocuments: true,
	}, svc.requests[0])

	view := v.View()
	assert.Contains(t, view, "Hello!")
	assert.Contains(t, view, "Handbook (0.80)")
}

func TestView_EmptyMessageIgnored(t *testing.T) {
	svc := &mockChatService{}
	v := newTestView(svc)

	typeText(v, "   ")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	assert.Nil(t, cmd)
	assert.Empty(t, v.Turns())
	assert.Empty(t, svc.requests)
}

func TestView_NoChatService(t *testing.T) {
	v := NewView(nil, nil, nil, 1)
	v.SetDimensions(80, 24)

	typeText(v, "hi")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	require.NotNil(t, cmd)

	msg := cmd()
	errMsg, ok := msg.(messages.ErrorOccurred)
	require.True(t, ok)
	assert.ErrorIs(t, errMsg.Err, ErrNoChatService)

	v.Update(msg)
	assert.Equal(t, status.StateError, v.Status().State())
}

func TestView_DegradedReply(t *testing.T) {
	svc := &mockChatService{
		StreamFunc: func(_ context.Context, _ domain.ChatRequest, emit func(string) error) (*domain.ChatResponse, error) {
			return &domain.ChatResponse{Message: "Sorry, I could not answer.", Degraded: true}, nil
		},
	}
	v := newTestView(svc)

	typeText(v, "hi")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, v, cmd)

	assert.True(t, v.Turns()[1].Degraded)
	assert.Equal(t, status.StateDegraded, v.Status().State())
	assert.Contains(t, v.View(), "(fallback answer)")
}

func TestView_StreamError(t *testing.T) {
	svc := &mockChatService{
		StreamFunc: func(context.Context, domain.ChatRequest, func(string) error) (*domain.ChatResponse, error) {
			return nil, errors.New("message is empty")
		},
	}
	v := newTestView(svc)

	typeText(v, "hi")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, v, cmd)

	require.Error(t, v.Turns()[1].Err)
	assert.Equal(t, status.StateError, v.Status().State())
	assert.Equal(t, "message is empty", v.Status().Message())
}

func TestView_EscCancelsStream(t *testing.T) {
	svc := &mockChatService{
		StreamFunc: func(ctx context.Context, _ domain.ChatRequest, emit func(string) error) (*domain.ChatResponse, error) {
			if err := emit("partial"); err != nil {
				return nil, err
			}
			<-ctx.Done()
			return &domain.ChatResponse{Message: "partial", Degraded: true}, ctx.Err()
		},
	}
	v := newTestView(svc)

	typeText(v, "hi")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, cmd = v.Update(cmd())
	assert.Equal(t, "partial", v.Turns()[1].Text)
	assert.Equal(t, status.StateStreaming, v.Status().State())

	_, escCmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	assert.Nil(t, escCmd)

	run(t, v, cmd)

	assert.False(t, v.Streaming())
	assert.Equal(t, "partial", v.Turns()[1].Text)
	assert.NoError(t, v.Turns()[1].Err)
	assert.Equal(t, "Cancelled", v.Status().Message())
}

func TestView_EnterIgnoredWhileStreaming(t *testing.T) {
	release := make(chan struct{})
	svc := &mockChatService{
		StreamFunc: func(context.Context, domain.ChatRequest, func(string) error) (*domain.ChatResponse, error) {
			<-release
			return &domain.ChatResponse{Message: "done"}, nil
		},
	}
	v := newTestView(svc)

	typeText(v, "first")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})

	typeText(v, "second")
	_, second := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	assert.Nil(t, second)

	close(release)
	run(t, v, cmd)

	assert.Len(t, v.Turns(), 2)
	assert.Equal(t, "done", v.Turns()[1].Text)
}

func TestView_ToggleDocuments(t *testing.T) {
	svc := &mockChatService{}
	v := newTestView(svc)

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlD})
	assert.False(t, v.UseDocuments())
	assert.Equal(t, "docs: off", v.Status().Label())

	typeText(v, "no context please")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, v, cmd)

	require.Len(t, svc.requests, 1)
	assert.False(t, svc.requests[0].UseDocuments)
}

func TestView_PinnedContext(t *testing.T) {
	svc := &mockChatService{}
	v := newTestView(svc)

	v.Update(messages.ContextChanged{DocumentIDs: []int64{3, 9}})
	assert.Equal(t, []int64{3, 9}, v.Pinned())
	assert.Equal(t, "docs: 2 pinned", v.Status().Label())

	typeText(v, "summarise")
	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEnter})
	run(t, v, cmd)
	assert.Equal(t, []int64{3, 9}, svc.requests[0].DocumentIDs)

	v.Update(tea.KeyMsg{Type: tea.KeyCtrlX})
	assert.Empty(t, v.Pinned())
	assert.Equal(t, "docs: on", v.Status().Label())
}

func TestView_EscReturnsToMenu(t *testing.T) {
	v := newTestView(&mockChatService{})

	_, cmd := v.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.NotNil(t, cmd)

	assert.Equal(t, messages.ViewChanged{View: messages.ViewMenu}, cmd())
}

func TestView_StaleStreamMessagesIgnored(t *testing.T) {
	v := newTestView(&mockChatService{})

	_, cmd := v.Update(messages.StreamDelta{Delta: "late"})
	assert.Nil(t, cmd)

	_, cmd = v.Update(messages.StreamDone{Response: &domain.ChatResponse{Message: "late"}})
	assert.Nil(t, cmd)
	assert.Empty(t, v.Turns())
}

func TestView_WindowSize(t *testing.T) {
	v := NewView(nil, nil, &mockChatService{}, 1)

	v.Update(tea.WindowSizeMsg{Width: 120, Height: 40})

	assert.Equal(t, 120, v.viewport.Width)
	assert.Equal(t, 32, v.viewport.Height)
	assert.Contains(t, v.View(), "Ask anything")
}
