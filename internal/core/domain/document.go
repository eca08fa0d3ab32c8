package domain

import (
	"path/filepath"
	"strings"
	"time"
)

// DocumentStatus is the processing state of a Document.
type DocumentStatus string

const (
	// StatusPending means the document was registered but not yet extracted.
	StatusPending DocumentStatus = "pending"

	// StatusProcessing means text extraction is running.
	StatusProcessing DocumentStatus = "processing"

	// StatusCompleted means the text was extracted and stored.
	StatusCompleted DocumentStatus = "completed"

	// StatusFailed means extraction failed. ErrorMessage holds the reason.
	StatusFailed DocumentStatus = "failed"
)

// Valid reports whether s is a known status.
func (s DocumentStatus) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	}
	return false
}

// Document represents an uploaded document with its extracted content.
type Document struct {
	// ID is the unique identifier for the document.
	ID int64

	// OwnerID is the principal that uploaded the document.
	// Retrieval only returns documents owned by the querying principal.
	OwnerID int64

	// Title is the human-readable title.
	Title string

	// Filename is the base name of the uploaded file.
	Filename string

	// Path is the local filesystem location of the file.
	Path string

	// FileType is the lower-case extension without the dot (pdf, docx, md...).
	FileType string

	// FileSize is the size of the file in bytes.
	FileSize int64

	// Content is the extracted plain text. Empty until processing completes.
	Content string

	// Status is the processing lifecycle state.
	Status DocumentStatus

	// ErrorMessage is set when Status is StatusFailed.
	ErrorMessage string

	// IsVectorized is true when the content has been indexed.
	IsVectorized bool

	// VectorCount is the number of vector records stored for the document.
	VectorCount int

	// CreatedAt is when the document was registered.
	CreatedAt time.Time

	// UpdatedAt is when the document was last modified.
	UpdatedAt time.Time

	// ProcessedAt is when extraction completed. Zero until then.
	ProcessedAt time.Time
}

// FileTypeOf returns the normalised file type for a path: the lower-case
// extension without its leading dot.
func FileTypeOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}

// DocumentSummary is a lightweight listing entry for a document.
type DocumentSummary struct {
	ID           int64
	Title        string
	FileType     string
	Status       DocumentStatus
	IsVectorized bool
	VectorCount  int
	CreatedAt    time.Time
}

// Summary returns the listing view of the document.
func (d *Document) Summary() DocumentSummary {
	return DocumentSummary{
		ID:           d.ID,
		Title:        d.Title,
		FileType:     d.FileType,
		Status:       d.Status,
		IsVectorized: d.IsVectorized,
		VectorCount:  d.VectorCount,
		CreatedAt:    d.CreatedAt,
	}
}

// Chunk represents one segment of a document's text.
type Chunk struct {
	// DocumentID links to the parent Document.
	DocumentID int64

	// Index is the ordinal position within the document, contiguous from 0.
	Index int

	// Text is the segment content.
	Text string

	// Embedding is the vector representation. Nil until embedded.
	Embedding []float32
}
