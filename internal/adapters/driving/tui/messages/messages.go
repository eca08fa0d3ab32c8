// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// ViewChanged is sent when navigating between views.
type ViewChanged struct {
	View ViewType
}

// ViewType identifies which view is currently active.
type ViewType int

const (
	// ViewMenu is the main navigation menu.
	ViewMenu ViewType = iota
	// ViewChat is the conversation view.
	ViewChat
	// ViewSearch runs retrieval queries without generation.
	ViewSearch
	// ViewDocuments lists the owner's documents.
	ViewDocuments
	// ViewHelp is the help/keybindings view.
	ViewHelp
)

// String returns the view name.
func (v ViewType) String() string {
	switch v {
	case ViewMenu:
		return "menu"
	case ViewChat:
		return "chat"
	case ViewSearch:
		return "search"
	case ViewDocuments:
		return "documents"
	case ViewHelp:
		return "help"
	default:
		return "unknown"
	}
}

// StreamDelta carries one piece of a reply being streamed.
type StreamDelta struct {
	Delta string
}

// StreamDone ends a streamed reply. Response holds the full text even when
// some deltas were not delivered.
type StreamDone struct {
	Response *domain.ChatResponse
	Err      error
}

// SearchCompleted carries retrieval results back to the model.
type SearchCompleted struct {
	Query   string
	Results []domain.SearchResult

	// Degraded is set when results came from a fallback path.
	Degraded bool
	Err      error
}

// DocumentsLoaded carries the owner's document summaries.
type DocumentsLoaded struct {
	Documents []domain.DocumentSummary
	Err       error
}

// IndexSummaryLoaded carries the knowledge base summary shown on the menu.
type IndexSummaryLoaded struct {
	Documents int
	Vectors   int64
	Backend   string
	Model     string
	Err       error
}

// DocumentDeleted reports the outcome of a delete.
type DocumentDeleted struct {
	DocumentID int64
	Err        error
}

// ContextChanged is sent when the documents pinned as chat context change.
// An empty list returns the chat to similarity retrieval.
type ContextChanged struct {
	DocumentIDs []int64
}

// ErrorOccurred is sent when an error needs to be displayed.
type ErrorOccurred struct {
	Err error
}

// Quit signals the application should exit.
type Quit struct{}
