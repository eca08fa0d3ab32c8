// Package chat provides the conversation view for the TUI. Replies are
// streamed into the transcript as they are generated.
package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// ErrNoChatService indicates that no chat service was provided.
var ErrNoChatService = errors.New("chat service is required")

// Role identifies the author of a transcript turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the transcript.
type Turn struct {
	Role     Role
	Text     string
	Sources  []domain.SearchResult
	Degraded bool
	Err      error
}

// View is the chat view: transcript, message box and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Field
	viewport  viewport.Model
	statusbar *status.Bar

	chatService driving.ChatService
	ownerID     int64
	ctx         context.Context

	turns        []Turn
	useDocuments bool
	pinned       []int64

	stream *stream
	cancel context.CancelFunc

	width  int
	height int
	ready  bool
}

// NewView creates a chat view answering as ownerID.
func NewView(s *styles.Styles, km *keymap.KeyMap, chatService driving.ChatService, ownerID int64) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	v := &View{
		styles:       s,
		keymap:       km,
		input:        input.NewChatInput(s),
		viewport:     viewport.New(80, 16),
		statusbar:    status.NewBar(s, km),
		chatService:  chatService,
		ownerID:      ownerID,
		ctx:          context.Background(),
		useDocuments: true,
		width:        80,
		height:       24,
	}
	v.statusbar.SetHints(km.ChatHelp())
	v.updateLabel()
	return v
}

// WithContext sets the parent context of every request.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the chat view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.StreamDelta:
		if v.stream == nil {
			return v, nil
		}
		v.statusbar.SetState(status.StateStreaming)
		v.lastTurn().Text += msg.Delta
		v.refresh()
		return v, v.stream.next

	case messages.StreamDone:
		v.finish(msg)
		return v, nil

	case messages.ContextChanged:
		v.pinned = append([]int64(nil), msg.DocumentIDs...)
		v.updateLabel()
		return v, nil

	case messages.ErrorOccurred:
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Back):
		if v.Streaming() {
			v.cancel()
			return v, nil
		}
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}

	case keymap.Matches(key, v.keymap.ToggleDocuments):
		v.useDocuments = !v.useDocuments
		v.updateLabel()
		return v, nil

	case keymap.Matches(key, v.keymap.ClearContext):
		v.pinned = nil
		v.updateLabel()
		return v, nil

	case keymap.Matches(key, v.keymap.ScrollUp), keymap.Matches(key, v.keymap.ScrollDown):
		var cmd tea.Cmd
		v.viewport, cmd = v.viewport.Update(msg)
		return v, cmd

	case keymap.Matches(key, v.keymap.Send):
		return v, v.send()
	}

	if v.Streaming() {
		return v, nil
	}
	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

// send starts a streamed reply to the typed message.
func (v *View) send() tea.Cmd {
	text := strings.TrimSpace(v.input.Value())
	if text == "" || v.Streaming() {
		return nil
	}
	if v.chatService == nil {
		return func() tea.Msg {
			return messages.ErrorOccurred{Err: ErrNoChatService}
		}
	}

	req := domain.ChatRequest{
		OwnerID:      v.ownerID,
		Message:      text,
		UseDocuments: v.useDocuments,
		DocumentIDs:  append([]int64(nil), v.pinned...),
	}

	v.turns = append(v.turns,
		Turn{Role: RoleUser, Text: text},
		Turn{Role: RoleAssistant},
	)
	v.input.Reset()
	v.statusbar.Clear()
	v.statusbar.SetState(status.StateThinking)
	v.refresh()

	ctx, cancel := context.WithCancel(v.ctx)
	v.cancel = cancel
	v.stream = startStream(ctx, v.chatService, req)
	return v.stream.next
}

func (v *View) finish(msg messages.StreamDone) {
	if v.stream == nil {
		return
	}
	v.cancel()
	v.stream = nil
	v.cancel = nil

	turn := v.lastTurn()
	if msg.Response != nil {
		turn.Text = msg.Response.Message
		turn.Sources = msg.Response.Sources
		turn.Degraded = msg.Response.Degraded
	}

	switch {
	case errors.Is(msg.Err, context.Canceled):
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage("Cancelled")
	case msg.Err != nil:
		turn.Err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
	case turn.Degraded:
		v.statusbar.SetState(status.StateDegraded)
		v.statusbar.SetMessage("answer may be incomplete")
	default:
		v.statusbar.SetState(status.StateReady)
	}
	v.refresh()
}

func (v *View) lastTurn() *Turn {
	return &v.turns[len(v.turns)-1]
}

func (v *View) updateLabel() {
	switch {
	case len(v.pinned) > 0:
		v.statusbar.SetLabel(fmt.Sprintf("docs: %d pinned", len(v.pinned)))
	case v.useDocuments:
		v.statusbar.SetLabel("docs: on")
	default:
		v.statusbar.SetLabel("docs: off")
	}
}

// refresh re-renders the transcript and keeps the newest text in view.
func (v *View) refresh() {
	v.viewport.SetContent(v.renderTranscript())
	v.viewport.GotoBottom()
}

func (v *View) renderTranscript() string {
	if len(v.turns) == 0 {
		return v.styles.Muted.Render("Ask anything about your documents.")
	}

	wrap := lipgloss.NewStyle().Width(max(v.width-4, 20))
	blocks := make([]string, 0, len(v.turns))

	for i, turn := range v.turns {
		var b strings.Builder
		if turn.Role == RoleUser {
			b.WriteString(v.styles.UserLabel.Render("You"))
		} else {
			b.WriteString(v.styles.AssistantLabel.Render("Assistant"))
		}
		b.WriteString("\n")

		text := turn.Text
		if text == "" && i == len(v.turns)-1 && v.Streaming() {
			text = "..."
		}
		b.WriteString(wrap.Render(v.styles.Normal.Render(text)))

		if len(turn.Sources) > 0 {
			b.WriteString("\n")
			b.WriteString(v.styles.Source.Render("Sources: " + formatSources(turn.Sources)))
		}
		if turn.Degraded {
			b.WriteString("\n")
			b.WriteString(v.styles.Warning.Render("(fallback answer)"))
		}
		if turn.Err != nil {
			b.WriteString("\n")
			b.WriteString(v.styles.Error.Render("Error: " + turn.Err.Error()))
		}
		blocks = append(blocks, b.String())
	}

	return strings.Join(blocks, "\n\n")
}

func formatSources(sources []domain.SearchResult) string {
	parts := make([]string, 0, len(sources))
	for _, s := range sources {
		title := s.Title
		if title == "" {
			title = fmt.Sprintf("document %d", s.DocumentID)
		}
		parts = append(parts, fmt.Sprintf("%s (%.2f)", title, s.Score))
	}
	return strings.Join(parts, ", ")
}

// View renders the chat view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		v.styles.Title.Render("kbassist"),
		"",
		v.viewport.View(),
		"",
		v.input.View(),
		v.statusbar.View(),
	)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	// Title, spacers, bordered input and status bar.
	v.viewport.Width = width
	v.viewport.Height = max(height-8, 3)
	v.input.SetWidth(width)
	v.statusbar.SetWidth(width)
	v.refresh()
}

// Streaming reports whether a reply is in progress.
func (v *View) Streaming() bool {
	return v.stream != nil
}

// Turns returns the transcript.
func (v *View) Turns() []Turn {
	return v.turns
}

// UseDocuments reports whether similarity retrieval is enabled.
func (v *View) UseDocuments() bool {
	return v.useDocuments
}

// Pinned returns the documents used as explicit context.
func (v *View) Pinned() []int64 {
	return v.pinned
}

// Input returns the message box.
func (v *View) Input() *input.Field {
	return v.input
}

// Status returns the status bar.
func (v *View) Status() *status.Bar {
	return v.statusbar
}
