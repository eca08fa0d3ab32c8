// Package menu provides the main navigation menu view for the TUI. Besides
// the destinations it shows a one-line summary of the knowledge base: how
// many documents the owner has indexed, the vector count and the embedding
// model answering queries.
package menu

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// Item is a menu destination. Key jumps straight to it.
type Item struct {
	Label       string
	Description string
	Key         string
	View        messages.ViewType
	Quit        bool
}

// View is the main menu.
type View struct {
	styles    *styles.Styles
	ctx       context.Context
	retrieval driving.RetrievalService
	documents driving.DocumentService
	ownerID   int64

	items    []Item
	selected int
	summary  messages.IndexSummaryLoaded
	loaded   bool

	width  int
	height int
	ready  bool
}

// NewView creates the menu. Both services are optional; without them the
// knowledge base summary is omitted.
func NewView(s *styles.Styles, retrieval driving.RetrievalService, documents driving.DocumentService, ownerID int64) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}

	return &View{
		styles:    s,
		ctx:       context.Background(),
		retrieval: retrieval,
		documents: documents,
		ownerID:   ownerID,
		items: []Item{
			{Label: "Chat", Description: "ask a question about your documents", Key: "c", View: messages.ViewChat},
			{Label: "Search", Description: "find the passages that match a query", Key: "s", View: messages.ViewSearch},
			{Label: "Documents", Description: "browse, pin and delete documents", Key: "d", View: messages.ViewDocuments},
			{Label: "Help", Description: "key bindings", Key: "?", View: messages.ViewHelp},
			{Label: "Quit", Key: "q", Quit: true},
		},
		width:  80,
		height: 24,
	}
}

// WithContext sets the context the summary is loaded under.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the knowledge base summary.
func (v *View) Init() tea.Cmd {
	if v.retrieval == nil && v.documents == nil {
		return nil
	}
	ctx, retrieval, documents, owner := v.ctx, v.retrieval, v.documents, v.ownerID
	return func() tea.Msg {
		return loadSummary(ctx, retrieval, documents, owner)
	}
}

func loadSummary(ctx context.Context, retrieval driving.RetrievalService, documents driving.DocumentService, owner int64) messages.IndexSummaryLoaded {
	var msg messages.IndexSummaryLoaded
	if documents != nil {
		docs, err := documents.Summaries(ctx, owner)
		if err != nil {
			msg.Err = err
			return msg
		}
		msg.Documents = len(docs)
	}
	if retrieval != nil {
		stats, err := retrieval.Stats(ctx)
		if err != nil {
			msg.Err = err
			return msg
		}
		msg.Vectors = stats.TotalVectors
		msg.Backend = stats.Backend
		msg.Model = retrieval.ModelInfo().EmbeddingModel
	}
	return msg
}

// Update handles messages for the menu view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case messages.IndexSummaryLoaded:
		v.summary = msg
		v.loaded = true
		return v, nil

	case tea.KeyMsg:
		key := msg.String()
		switch key {
		case "up", "k":
			if v.selected > 0 {
				v.selected--
			}
			return v, nil
		case "down", "j":
			if v.selected < len(v.items)-1 {
				v.selected++
			}
			return v, nil
		case "enter":
			return v, v.choose(v.selected)
		}
		for i, item := range v.items {
			if item.Key == key {
				v.selected = i
				return v, v.choose(i)
			}
		}
	}

	return v, nil
}

func (v *View) choose(i int) tea.Cmd {
	item := v.items[i]
	if item.Quit {
		return tea.Quit
	}
	return func() tea.Msg {
		return messages.ViewChanged{View: item.View}
	}
}

// View renders the menu.
func (v *View) View() string {
	if !v.ready {
		return "Initialising..."
	}

	var b strings.Builder
	b.WriteString(v.styles.Title.Render("kbassist"))
	b.WriteString("\n")
	b.WriteString(v.styles.Muted.Render(v.Status()))
	b.WriteString("\n\n")

	for i, item := range v.items {
		label := fmt.Sprintf("[%s] %s", item.Key, item.Label)
		if i == v.selected {
			b.WriteString("> " + v.styles.Subtitle.Render(label))
			if item.Description != "" {
				b.WriteString("  " + v.styles.Muted.Render(item.Description))
			}
		} else {
			b.WriteString("  " + v.styles.Normal.Render(label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(v.styles.Help.Render("[j/k] navigate  [enter] select  [c/s/d/?] jump  [q] quit"))
	return b.String()
}

// Status is the knowledge base summary line under the title.
func (v *View) Status() string {
	switch {
	case v.retrieval == nil && v.documents == nil:
		return "Ask questions about your documents"
	case !v.loaded:
		return "Loading knowledge base..."
	case v.summary.Err != nil:
		return "Knowledge base unavailable: " + v.summary.Err.Error()
	case v.documents != nil && v.summary.Documents == 0:
		return `No documents yet. Add some with "kbassist add".`
	}

	var parts []string
	if v.documents != nil {
		parts = append(parts, plural(v.summary.Documents, "document"))
	}
	if v.retrieval != nil {
		parts = append(parts, plural(int(v.summary.Vectors), "vector"))
		if v.summary.Model != "" {
			parts = append(parts, v.summary.Model)
		}
	}
	return strings.Join(parts, " · ")
}

func plural(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
}

// Selected returns the currently selected index.
func (v *View) Selected() int {
	return v.selected
}
