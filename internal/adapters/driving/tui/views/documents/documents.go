// Package documents provides the documents list view for the TUI. Documents
// can be pinned as explicit chat context or deleted.
package documents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/components/list"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/components/status"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// ErrNoDocumentService indicates that no document service was provided.
var ErrNoDocumentService = errors.New("document service is required")

// View is the documents list view.
type View struct {
	styles    *styles.Styles
	keymap    *keymap.KeyMap
	statusbar *status.Bar

	documentService driving.DocumentService
	ownerID         int64
	ctx             context.Context

	documents     []domain.DocumentSummary
	pinned        map[int64]bool
	selected      int
	scrollOffset  int
	confirmDelete bool

	width   int
	height  int
	ready   bool
	loading bool
	err     error
}

// NewView creates a new documents view.
func NewView(
	s *styles.Styles,
	km *keymap.KeyMap,
	documentService driving.DocumentService,
	ownerID int64,
) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	bar := status.NewBar(s, km)
	bar.SetHints(km.DocumentsHelp())

	return &View{
		styles:          s,
		keymap:          km,
		statusbar:       bar,
		documentService: documentService,
		ownerID:         ownerID,
		ctx:             context.Background(),
		pinned:          make(map[int64]bool),
		width:           80,
		height:          24,
	}
}

// WithContext sets the context for the view.
func (v *View) WithContext(ctx context.Context) *View {
	v.ctx = ctx
	return v
}

// Init loads the documents.
func (v *View) Init() tea.Cmd {
	v.loading = true
	return v.loadDocuments()
}

func (v *View) loadDocuments() tea.Cmd {
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentsLoaded{Err: ErrNoDocumentService}
		}
		docs, err := v.documentService.Summaries(v.ctx, v.ownerID)
		return messages.DocumentsLoaded{Documents: docs, Err: err}
	}
}

func (v *View) deleteDocument(id int64) tea.Cmd {
	return func() tea.Msg {
		if v.documentService == nil {
			return messages.DocumentDeleted{DocumentID: id, Err: ErrNoDocumentService}
		}
		return messages.DocumentDeleted{
			DocumentID: id,
			Err:        v.documentService.Delete(v.ctx, v.ownerID, id),
		}
	}
}

// Update handles messages for the documents view.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		v.SetDimensions(msg.Width, msg.Height)
		return v, nil

	case tea.KeyMsg:
		if v.confirmDelete {
			return v.handleConfirmKey(msg)
		}
		return v.handleKeyMsg(msg)

	case messages.DocumentsLoaded:
		v.loading = false
		if msg.Err != nil {
			v.err = msg.Err
			return v, nil
		}
		v.err = nil
		v.documents = msg.Documents
		if v.selected >= len(v.documents) {
			v.selected = max(len(v.documents)-1, 0)
		}
		v.statusbar.SetState(status.StateReady)
		v.statusbar.SetMessage(fmt.Sprintf("%d documents", len(v.documents)))
		return v, nil

	case messages.DocumentDeleted:
		if msg.Err != nil {
			v.err = msg.Err
			v.statusbar.SetState(status.StateError)
			v.statusbar.SetMessage(msg.Err.Error())
			return v, nil
		}
		var cmds []tea.Cmd
		if v.pinned[msg.DocumentID] {
			delete(v.pinned, msg.DocumentID)
			cmds = append(cmds, v.contextChanged())
		}
		v.loading = true
		cmds = append(cmds, v.loadDocuments())
		return v, tea.Batch(cmds...)

	case messages.ErrorOccurred:
		v.err = msg.Err
		return v, nil
	}

	return v, nil
}

func (v *View) handleKeyMsg(msg tea.KeyMsg) (*View, tea.Cmd) {
	key := msg.String()

	switch {
	case keymap.Matches(key, v.keymap.Back):
		return v, func() tea.Msg {
			return messages.ViewChanged{View: messages.ViewMenu}
		}
	case keymap.Matches(key, v.keymap.Up):
		if v.selected > 0 {
			v.selected--
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Down):
		if v.selected < len(v.documents)-1 {
			v.selected++
			v.adjustScroll()
		}
	case keymap.Matches(key, v.keymap.Pin):
		doc := v.SelectedDocument()
		if doc == nil {
			return v, nil
		}
		if v.pinned[doc.ID] {
			delete(v.pinned, doc.ID)
		} else {
			v.pinned[doc.ID] = true
		}
		return v, v.contextChanged()
	case key == "enter":
		doc := v.SelectedDocument()
		if doc == nil {
			return v, nil
		}
		v.pinned = map[int64]bool{doc.ID: true}
		return v, tea.Batch(
			v.contextChanged(),
			func() tea.Msg { return messages.ViewChanged{View: messages.ViewChat} },
		)
	case keymap.Matches(key, v.keymap.Delete):
		if v.SelectedDocument() != nil {
			v.confirmDelete = true
		}
	case keymap.Matches(key, v.keymap.Reload):
		v.loading = true
		return v, v.loadDocuments()
	}

	return v, nil
}

func (v *View) handleConfirmKey(msg tea.KeyMsg) (*View, tea.Cmd) {
	v.confirmDelete = false
	if msg.String() != "y" {
		return v, nil
	}
	doc := v.SelectedDocument()
	if doc == nil {
		return v, nil
	}
	return v, v.deleteDocument(doc.ID)
}

// contextChanged publishes the pinned set in ascending id order.
func (v *View) contextChanged() tea.Cmd {
	ids := v.PinnedIDs()
	return func() tea.Msg {
		return messages.ContextChanged{DocumentIDs: ids}
	}
}

func (v *View) adjustScroll() {
	visible := v.visibleItemCount()
	if v.selected < v.scrollOffset {
		v.scrollOffset = v.selected
	} else if v.selected >= v.scrollOffset+visible {
		v.scrollOffset = v.selected - visible + 1
	}
}

func (v *View) visibleItemCount() int {
	// Title, spacing, help and status bar.
	return max(v.height-8, 1)
}

// View renders the documents view.
func (v *View) View() string {
	var b strings.Builder

	b.WriteString(v.styles.Title.Render(fmt.Sprintf("Documents (%d)", len(v.documents))))
	b.WriteString("\n\n")

	switch {
	case v.loading:
		b.WriteString(v.styles.Muted.Render("Loading documents..."))
	case v.err != nil:
		b.WriteString(v.styles.Error.Render("Error: " + v.err.Error()))
	case len(v.documents) == 0:
		b.WriteString(v.styles.Muted.Render("No documents yet. Add some with `kbassist add <path>`."))
	default:
		visible := v.visibleItemCount()
		end := min(v.scrollOffset+visible, len(v.documents))
		for i := v.scrollOffset; i < end; i++ {
			b.WriteString(v.renderDocument(i, &v.documents[i]))
			b.WriteString("\n")
		}
		if len(v.documents) > visible {
			b.WriteString(v.styles.Muted.Render(fmt.Sprintf("  [%d-%d of %d]",
				v.scrollOffset+1, end, len(v.documents))))
		}
	}

	b.WriteString("\n\n")
	if v.confirmDelete {
		if doc := v.SelectedDocument(); doc != nil {
			b.WriteString(v.styles.Warning.Render(fmt.Sprintf("Delete %q? [y] yes  [any] cancel", doc.Title)))
			b.WriteString("\n")
		}
	}
	b.WriteString(v.statusbar.View())

	return b.String()
}

func (v *View) renderDocument(index int, doc *domain.DocumentSummary) string {
	indicator := "  "
	if index == v.selected {
		indicator = "> "
	}
	mark := " "
	if v.pinned[doc.ID] {
		mark = v.styles.Pinned.Render("*")
	}

	title := doc.Title
	if title == "" {
		title = fmt.Sprintf("document %d", doc.ID)
	}
	maxTitleLen := max(v.width-34, 10)
	title = list.Truncate(title, maxTitleLen)

	meta := fmt.Sprintf("%-5s %4d vectors  %s", doc.FileType, doc.VectorCount, doc.CreatedAt.Format("2006-01-02"))

	if index == v.selected {
		return mark + v.styles.Selected.Render(fmt.Sprintf("%s%-*s  %s", indicator, maxTitleLen, title, meta))
	}
	return mark + v.styles.Normal.Render(fmt.Sprintf("%s%-*s  ", indicator, maxTitleLen, title)) +
		v.styles.Muted.Render(meta)
}

// SetDimensions sets the view dimensions.
func (v *View) SetDimensions(width, height int) {
	v.width = width
	v.height = height
	v.ready = true
	v.statusbar.SetWidth(width)
}

// Documents returns the loaded documents.
func (v *View) Documents() []domain.DocumentSummary {
	return v.documents
}

// SelectedIndex returns the currently selected document index.
func (v *View) SelectedIndex() int {
	return v.selected
}

// SelectedDocument returns the currently selected document, or nil.
func (v *View) SelectedDocument() *domain.DocumentSummary {
	if v.selected >= 0 && v.selected < len(v.documents) {
		return &v.documents[v.selected]
	}
	return nil
}

// PinnedIDs returns the pinned document ids in ascending order.
func (v *View) PinnedIDs() []int64 {
	ids := make([]int64, 0, len(v.pinned))
	for id := range v.pinned {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// ConfirmingDelete reports whether a delete awaits confirmation.
func (v *View) ConfirmingDelete() bool {
	return v.confirmDelete
}

// Err returns the last error.
func (v *View) Err() error {
	return v.err
}
