package driven

import (
	"context"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// DocumentStore persists documents and their processing state.
type DocumentStore interface {
	// Save creates or updates a document. A zero ID assigns a new one,
	// which is written back into doc.
	Save(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID. Returns domain.ErrNotFound if absent.
	Get(ctx context.Context, id int64) (*domain.Document, error)

	// FindByPath returns the owner's document registered for path.
	// Returns domain.ErrNotFound if absent.
	FindByPath(ctx context.Context, ownerID int64, path string) (*domain.Document, error)

	// List returns the owner's documents, newest first.
	List(ctx context.Context, ownerID int64) ([]domain.Document, error)

	// Delete removes a document. Deleting a missing document succeeds.
	Delete(ctx context.Context, id int64) error

	// RecordIngestion applies an ingestion report to the document's
	// vectorisation fields.
	RecordIngestion(ctx context.Context, report domain.IngestReport) error
}
