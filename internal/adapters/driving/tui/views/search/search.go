// Package search provides the retrieval view for the TUI: it shows which
// documents match a query without generating an answer.
package search

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/components/input"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// DefaultLimit is the number of documents requested per query.
const DefaultLimit = 10

// View represents the search view with input, results list, and status bar.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	input     *input.Field
	list      *list.ResultList
	statusbar *status.Bar

	retrieval driving.RetrievalService
	ownerID   int64
	limit     int
	ctx       context.Context

	width      int
	height     int
	ready      bool
	err        error
	focusInput bool // true = typing a query, false = navigating results
}

// NewView creates a new search view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	retrieval driving.RetrievalService,
	ownerID int64,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &View{
		styles:     s,
		keymap:     km,
		input:      input.NewSearchInput(s),
		list:       list.NewResultList(s),
		statusbar:  status.NewBar(s, km),
		retrieval:  retrieval,
		ownerID:    ownerID,
		limit:      DefaultLimit,
		ctx:        context.Background(),
		width:      80,
		height:     24,
		focusInput: true,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init initialises the view.
func (v *View) Init() tea.Cmd {
	return v.input.Init()
}

// Update handles messages for the search view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		return v.handleKeyMsg(msg)

	case messages.SearchCompleted:
		v.handleSearchCompleted(msg)
		return v, nil

	case messages.ErrorOccurred:
		v.err = msg.Err
		v.statusbar.SetState(status.StateError)
		v.statusbar.SetMessage(msg.Err.Error())
		return v, nil
	}

	var cmd tea.Cmd
	v.input, cmd = v.input.Update(msg)
	return v, cmd
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	if msg.Type == tea.KeyEsc {
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	}

	if v.focusInput {
		if msg.Type == tea.KeyEnter {
			query := strings.TrimSpace(v.input.Value())
			if query == "" {
				return v, nil
			}
			v.statusbar.SetState(status.StateThinking)
			v.statusbar.SetMessage("")
			return v, v.performSearch(query)
		}
		var cmd tea.Cmd
		v.input, cmd = v.input.Update(msg)
		return v, cmd
	}

	switch msg.String() {
	case "up", "k":
		v.list.MoveUp()
	case "down", "j":
		v.list.MoveDown()
	case "n", "/":
		v.focusInput = true
		v.input.SetValue("")
		return v, v.input.Focus()
	case "enter":
		return v, v.askAbout(v.list.SelectedResult())
	}
	return v, nil
}

// askAbout pins the result's document and opens the chat.
func (v *View) askAbout(result *domain.SearchResult) tea.Cmd {
	if result == nil {
		return nil
	}
	id := result.DocumentID
	return tea.Batch(
		func() tea.Msg { return messages.ContextChanged{DocumentIDs: []int64{id}} },
		func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} },
	)
}

// performSearch runs the query in the background.
func (v *View) performSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if v.retrieval == nil {
			return messages.ErrorOccurred{Err: ErrNoRetrievalService}
		}

		res := v.retrieval.Query(v.ctx, v.ownerID, query, v.limit)
		return messages.SearchCompleted{
			Query:    query,
			Results:  res.Value,
			Degraded: !res.OK(),
			Err:      res.Err,
		}
	}
}

func (v *View) handleSearchCompleted(msg messages.SearchCompleted) {
	v.list.SetResults(msg.Results)
	v.statusbar.SetResultCount(len(msg.Results))

	if msg.Degraded {
		v.err = msg.Err
		v.statusbar.SetState(status.StateDegraded)
		if msg.Err != nil {
			v.statusbar.SetMessage(msg.Err.Error())
		}
	} else {
		v.err = nil
		v.statusbar.SetState(status.StateResults)
		v.statusbar.SetMessage("")
	}

	if len(msg.Results) > 0 {
		v.focusInput = false
		v.input.Blur()
		v.statusbar.SetHints([]key.Binding{v.keymap.Up, v.keymap.Send, v.keymap.Back})
	}
}

// View renders the search view.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	sections := make([]string, 0, 8)
	sections = append(sections, v.styles.Title.Render("kbassist search"), "", v.input.View(), "")

	if v.err != nil {
		sections = append(sections, v.styles.Warning.Render("Degraded: "+v.err.Error()), "")
	}

	sections = append(sections, v.list.View(), "", v.statusbar.View())
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true

	v.input.SetWidth(width)
	v.list.SetDimensions(width, height-10)
	v.statusbar.SetWidth(width)
}

// Query returns the current search query.
func (v *View) Query() string {
	return v.input.Value()
}

// Results returns the current search results.
func (v *View) Results() []domain.SearchResult {
	return v.list.Results()
}

// SelectedIndex returns the index of the selected result.
func (v *View) SelectedIndex() int {
	return v.list.Selected()
}

// Err returns the cause of the last degraded search, if any.
func (v *View) Err() error {
	return v.err
}

// InputFocused returns whether the input has focus.
func (v *View) InputFocused() bool {
	return v.focusInput
}

// Reset returns the view to an empty query.
func (v *View) Reset() {
	v.focusInput = true
	v.input.Focus()
	v.input.SetValue("")
	v.list.SetResults(nil)
	v.err = nil
	v.statusbar.Clear()
	v.statusbar.SetHints(v.keymap.ShortHelp())
}
