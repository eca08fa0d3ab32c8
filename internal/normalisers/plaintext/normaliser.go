package plaintext

import (
	"context"
	"fmt"
	"unicode/utf8"

	"golang.org/x/text/encoding/htmlindex"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/normalisers"
)

// DefaultFallbackEncoding is tried when the bytes are not valid UTF-8.
const DefaultFallbackEncoding = "gbk"

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct {
	fallback string
}

// Option configures the plain text normaliser.
type Option func(*Normaliser)

// WithFallbackEncoding sets the WHATWG encoding label used for text
// that is not valid UTF-8 (for example "gbk", "shift_jis", "windows-1252").
// An empty label disables the fallback.
func WithFallbackEncoding(label string) Option {
	return func(n *Normaliser) {
		n.fallback = label
	}
}

// New creates a new plain text normaliser.
func New(opts ...Option) *Normaliser {
	n := &Normaliser{fallback: DefaultFallbackEncoding}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// SupportedTypes returns the file types this normaliser handles.
func (n *Normaliser) SupportedTypes() []string {
	return []string{"txt", "text", "log", "csv"}
}

// Priority returns the selection priority.
func (n *Normaliser) Priority() int {
	return 5 // Fallback normaliser
}

// Normalise decodes the file as UTF-8, or with the fallback encoding
// when the bytes are not valid UTF-8.
func (n *Normaliser) Normalise(_ context.Context, filename string, content []byte) (*driven.NormaliseResult, error) {
	text, err := n.decode(content)
	if err != nil {
		return nil, err
	}
	return &driven.NormaliseResult{
		Title:   normalisers.TitleFromFilename(filename),
		Content: text,
	}, nil
}

func (n *Normaliser) decode(content []byte) (string, error) {
	if utf8.Valid(content) {
		return string(content), nil
	}
	if n.fallback == "" {
		return "", fmt.Errorf("%w: text is not valid UTF-8", domain.ErrExtractionFailure)
	}

	enc, err := htmlindex.Get(n.fallback)
	if err != nil {
		return "", fmt.Errorf("%w: unknown fallback encoding %q: %w", domain.ErrExtractionFailure, n.fallback, err)
	}
	decoded, err := enc.NewDecoder().Bytes(content)
	if err != nil {
		return "", fmt.Errorf("%w: decode as %s: %w", domain.ErrExtractionFailure, n.fallback, err)
	}
	return string(decoded), nil
}
