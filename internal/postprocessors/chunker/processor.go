// Package chunker splits extracted text into overlapping segments that
// prefer to end on a sentence or word boundary.
package chunker

import (
	"context"
	"strings"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 512

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 50

// Verify interface compliance.
var _ driven.Chunker = (*Processor)(nil)

// Processor splits document content into chunks.
// Lengths are measured in characters (runes), not bytes.
type Processor struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(p *Processor) {
		if size > 0 {
			p.chunkSize = size
		}
	}
}

// WithOverlap sets the overlap between chunks in characters.
// An overlap equal to or larger than the chunk size is accepted;
// the chunker still advances by at least one full window.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		if overlap >= 0 {
			p.overlap = overlap
		}
	}
}

// New creates a new chunker processor with the given options.
func New(opts ...Option) *Processor {
	p := &Processor{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// Size returns the configured chunk size.
func (p *Processor) Size() int {
	return p.chunkSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

func isBoundary(r rune) bool {
	switch r {
	case '.', '。', '!', '?', '！', '？', '\n', ' ':
		return true
	}
	return false
}

// Chunk splits text into trimmed, non-empty segments.
//
// Text no longer than the chunk size yields a single segment. Longer text
// is cut into windows of chunk size characters; a window that does not
// reach the end of the text is shortened to end just after the last
// boundary character found within its second half. The next window starts
// overlap characters before the previous cut, or at the cut when that
// would not move forward.
func (p *Processor) Chunk(text string) []string {
	runes := []rune(text)
	n := len(runes)

	if n <= p.chunkSize {
		if s := strings.TrimSpace(text); s != "" {
			return []string{s}
		}
		return nil
	}

	chunks := make([]string, 0, n/max(p.chunkSize-p.overlap, 1)+1)
	start := 0
	for start < n {
		end := start + p.chunkSize
		if end < n {
			lower := end - p.chunkSize/2
			for i := end - 1; i > lower; i-- {
				if isBoundary(runes[i]) {
					end = i + 1
					break
				}
			}
		} else {
			end = n
		}

		if s := strings.TrimSpace(string(runes[start:end])); s != "" {
			chunks = append(chunks, s)
		}

		if end >= n {
			break
		}

		next := end - p.overlap
		if next <= start {
			next = end
		}
		start = next
	}

	return chunks
}

// Process chunks text and tags each segment with its document and a
// contiguous index starting at 0.
func (p *Processor) Process(_ context.Context, documentID int64, text string) []domain.Chunk {
	segments := p.Chunk(text)
	chunks := make([]domain.Chunk, 0, len(segments))
	for i, s := range segments {
		chunks = append(chunks, domain.Chunk{
			DocumentID: documentID,
			Index:      i,
			Text:       s,
		})
	}
	return chunks
}
