package driving

import (
	"context"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// DocumentService manages uploaded documents and their processing.
type DocumentService interface {
	// Add registers the file at path for the owner and processes it.
	// The returned document reflects the final processing state.
	Add(ctx context.Context, req AddDocumentRequest) (*domain.Document, error)

	// AddBatch adds several files concurrently. Per-file failures are
	// reported in the returned map keyed by path.
	AddBatch(ctx context.Context, ownerID int64, paths []string) ([]domain.Document, map[string]error)

	// Process extracts and indexes a pending or failed document.
	Process(ctx context.Context, documentID int64) (*domain.Document, error)

	// Reindex rebuilds the vectors of a completed document.
	Reindex(ctx context.Context, ownerID, documentID int64) (domain.IngestReport, error)

	// Get retrieves a document owned by ownerID.
	Get(ctx context.Context, ownerID, documentID int64) (*domain.Document, error)

	// List returns all of the owner's documents.
	List(ctx context.Context, ownerID int64) ([]domain.Document, error)

	// Summaries returns listing entries for the owner's completed documents.
	Summaries(ctx context.Context, ownerID int64) ([]domain.DocumentSummary, error)

	// Delete removes a document and its vectors.
	Delete(ctx context.Context, ownerID, documentID int64) error
}

// AddDocumentRequest describes a file to register.
type AddDocumentRequest struct {
	OwnerID int64

	// Path is the local file location.
	Path string

	// Title overrides the extracted title when set.
	Title string
}
