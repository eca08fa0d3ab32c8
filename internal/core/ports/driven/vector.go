package driven

import (
	"context"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// VectorIndex stores chunk embeddings and serves cosine-similarity search.
//
// Every backend failure is reported wrapped with domain.ErrIndexUnavailable.
type VectorIndex interface {
	// Connect opens the backend connection. Repeated calls are no-ops
	// once connected.
	Connect(ctx context.Context) error

	// EnsureCollection creates the collection with the given dimension if
	// it does not exist. Calling it again with the same dimension is a
	// no-op; a different dimension fails.
	EnsureCollection(ctx context.Context, dimension int) error

	// Insert stores one record per chunk. chunks, embeddings and metadata
	// must have equal length and every embedding must have the collection
	// dimension. The batch becomes visible to Search atomically.
	Insert(ctx context.Context, documentID int64, chunks []string, embeddings [][]float32, metadata []string) error

	// Search returns up to limit hits with score >= threshold, sorted by
	// score descending.
	Search(ctx context.Context, query []float32, limit int, threshold float64) ([]domain.VectorHit, error)

	// DeleteByDocument removes every record of the document. Deleting a
	// document with no records succeeds.
	DeleteByDocument(ctx context.Context, documentID int64) error

	// Stats reports the collection size.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// Close releases resources.
	Close() error
}
