package driven

import (
	"context"
)

// Normaliser extracts plain text from one family of file types.
type Normaliser interface {
	// SupportedTypes returns the file types (lower-case extensions
	// without the dot) this normaliser handles.
	SupportedTypes() []string

	// Priority returns the selection priority (higher = preferred).
	// Format-specific normalisers should return 50-89.
	// Fallback normalisers should return 1-9.
	Priority() int

	// Normalise extracts text from the raw file bytes.
	Normalise(ctx context.Context, filename string, content []byte) (*NormaliseResult, error)
}

// NormaliseResult contains the output of normalisation.
// Chunking is handled later by the Chunker.
type NormaliseResult struct {
	// Title is derived from the document where possible, falling back to
	// the filename.
	Title string

	// Content is the extracted, trimmed plain text.
	Content string
}

// NormaliserRegistry selects a normaliser by file type.
type NormaliserRegistry interface {
	// Register adds a normaliser for all its supported types.
	Register(n Normaliser)

	// Get returns the highest-priority normaliser for the file type.
	Get(fileType string) (Normaliser, bool)

	// Extract reads the file at path and returns its text.
	// Types outside the allow-list fail with domain.ErrUnsupportedFormat;
	// parse errors are wrapped with domain.ErrExtractionFailure.
	Extract(ctx context.Context, path, fileType string) (*NormaliseResult, error)

	// Allowed reports whether the file type is on the allow-list.
	Allowed(fileType string) bool
}
