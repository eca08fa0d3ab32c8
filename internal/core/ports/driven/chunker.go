package driven

import (
	"context"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// Chunker splits extracted text into segments for embedding.
type Chunker interface {
	// Chunk returns trimmed, non-empty segments in document order.
	Chunk(text string) []string

	// Process returns the segments as chunks with contiguous indexes.
	Process(ctx context.Context, documentID int64, text string) []domain.Chunk

	// Size returns the window size in characters.
	Size() int

	// Overlap returns the overlap between windows in characters.
	Overlap() int
}
