package driving

import (
	"context"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// RetrievalService indexes document text and answers similarity queries.
type RetrievalService interface {
	// Ingest chunks, embeds and indexes a document's text.
	// Failures are reported in the IngestReport, never returned.
	Ingest(ctx context.Context, documentID int64, text string) domain.IngestReport

	// Reingest replaces a document's vectors with a fresh set.
	Reingest(ctx context.Context, documentID int64, text string) domain.IngestReport

	// Query returns up to limit documents owned by principal, ranked by
	// mean chunk similarity. A degraded Result carries an empty list.
	Query(ctx context.Context, principal int64, text string, limit int) domain.Result[[]domain.SearchResult]

	// DeleteDocument removes a document's vectors. Idempotent.
	DeleteDocument(ctx context.Context, documentID int64) error

	// Stats reports the vector index contents.
	Stats(ctx context.Context) (domain.IndexStats, error)

	// ModelInfo reports the embedding engine configuration.
	ModelInfo() domain.ModelInfo
}
