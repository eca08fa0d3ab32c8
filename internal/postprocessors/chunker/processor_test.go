package chunker

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// letters returns n characters cycling through the alphabet, with no
// sentence or word boundaries.
func letters(n int) string {
	var b strings.Builder
	for i := 0; i < n; i++ {
		b.WriteByte(byte('a' + i%26))
	}
	return b.String()
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := New()
		assert.Equal(t, DefaultChunkSize, p.Size())
		assert.Equal(t, DefaultChunkOverlap, p.Overlap())
	})

	t.Run("custom values", func(t *testing.T) {
		p := New(WithChunkSize(100), WithOverlap(20))
		assert.Equal(t, 100, p.Size())
		assert.Equal(t, 20, p.Overlap())
	})

	t.Run("invalid values ignored", func(t *testing.T) {
		p := New(WithChunkSize(0), WithOverlap(-1))
		assert.Equal(t, DefaultChunkSize, p.Size())
		assert.Equal(t, DefaultChunkOverlap, p.Overlap())
	})
}

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "chunker", New().Name())
}

func TestChunk_ShortText(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"plain", "hello world", []string{"hello world"}},
		{"trimmed", "  padded text \n", []string{"padded text"}},
		{"exactly size", letters(100), []string{letters(100)}},
		{"empty", "", nil},
		{"whitespace only", " \n\t ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.Chunk(tt.text))
		})
	}
}

func TestChunk_NoBoundaries(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))
	text := letters(250)

	chunks := p.Chunk(text)

	require.Len(t, chunks, 3)
	assert.Equal(t, text[0:100], chunks[0])
	assert.Equal(t, text[80:180], chunks[1])
	assert.Equal(t, text[160:250], chunks[2])

	// Each later segment starts overlap characters before the previous ends.
	assert.Equal(t, chunks[0][80:], chunks[1][:20])
	assert.Equal(t, chunks[1][80:], chunks[2][:20])

	// Dropping the overlapping prefixes reconstructs the input.
	rebuilt := chunks[0] + chunks[1][20:] + chunks[2][20:]
	assert.Equal(t, text, rebuilt)
}

func TestChunk_CutsOnBoundary(t *testing.T) {
	p := New(WithChunkSize(12), WithOverlap(0))

	chunks := p.Chunk("aaaa bbbb cccc dddd eeee")

	assert.Equal(t, []string{"aaaa bbbb", "cccc dddd", "eeee"}, chunks)
}

func TestChunk_SentencePunctuation(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0))

	chunks := p.Chunk("第一句话很长。第二句话也很长！第三句")

	require.NotEmpty(t, chunks)
	assert.Equal(t, "第一句话很长。", chunks[0])
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 10)
	}
}

func TestChunk_BoundarySearchLimitedToHalfWindow(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(0))

	// The only space is in the first half of the window, so no cut is made.
	chunks := p.Chunk("ab cdefghijklmnopqrst")

	require.NotEmpty(t, chunks)
	assert.Equal(t, "ab cdefghi", chunks[0])
}

func TestChunk_ForwardProgressWhenOverlapExceedsSize(t *testing.T) {
	p := New(WithChunkSize(10), WithOverlap(15))
	text := letters(35)

	chunks := p.Chunk(text)

	assert.Equal(t, []string{text[0:10], text[10:20], text[20:30], text[30:35]}, chunks)
}

func TestChunk_SegmentsNeverExceedSize(t *testing.T) {
	p := New(WithChunkSize(64), WithOverlap(8))
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. ", 40)

	chunks := p.Chunk(text)

	require.Greater(t, len(chunks), 1)
	for _, c := range chunks {
		assert.LessOrEqual(t, len([]rune(c)), 64)
		assert.Equal(t, strings.TrimSpace(c), c)
		assert.NotEmpty(t, c)
	}
}

func TestProcess_AssignsContiguousIndexes(t *testing.T) {
	p := New(WithChunkSize(100), WithOverlap(20))

	chunks := p.Process(context.Background(), 42, letters(250))

	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, int64(42), c.DocumentID)
		assert.Equal(t, i, c.Index)
		assert.NotEmpty(t, c.Text)
		assert.Nil(t, c.Embedding)
	}
}

func TestProcess_EmptyContent(t *testing.T) {
	assert.Empty(t, New().Process(context.Background(), 1, ""))
}
