// Package memory provides an in-process vector index.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/custodia-labs/kbassist/internal/adapters/driven/vector"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

// Index keeps vector records in memory. Search is a linear cosine scan.
type Index struct {
	mu         sync.RWMutex
	collection string
	dimension  int
	records    []domain.VectorRecord
}

// New creates an empty index.
func New(collection string) *Index {
	return &Index{collection: collection}
}

// Connect is a no-op.
func (i *Index) Connect(context.Context) error {
	return nil
}

// EnsureCollection fixes the vector dimension on first call.
func (i *Index) EnsureCollection(_ context.Context, dimension int) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", domain.ErrIndexUnavailable, dimension)
	}
	if i.dimension == 0 {
		i.dimension = dimension
		return nil
	}
	if i.dimension != dimension {
		return fmt.Errorf("%w: collection %q has dimension %d, want %d",
			domain.ErrIndexUnavailable, i.collection, i.dimension, dimension)
	}
	return nil
}

// Insert adds a batch of chunks for a document.
func (i *Index) Insert(_ context.Context, documentID int64, chunks []string, embeddings [][]float32, metadata []string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.dimension == 0 {
		return fmt.Errorf("%w: collection %q not created", domain.ErrIndexUnavailable, i.collection)
	}
	records, err := vector.Records(documentID, chunks, embeddings, metadata, i.dimension)
	if err != nil {
		return err
	}
	next := make([]domain.VectorRecord, 0, len(i.records)+len(records))
	next = append(next, i.records...)
	i.records = append(next, records...)
	return nil
}

// Search returns the closest records to query.
func (i *Index) Search(_ context.Context, query []float32, limit int, threshold float64) ([]domain.VectorHit, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	hits := make([]domain.VectorHit, 0, len(i.records))
	for _, r := range i.records {
		hits = append(hits, domain.VectorHit{
			VectorRecord: r,
			Score:        domain.CosineSimilarity(query, r.Embedding),
		})
	}
	return vector.Rank(hits, limit, threshold), nil
}

// DeleteByDocument removes every record of a document.
func (i *Index) DeleteByDocument(_ context.Context, documentID int64) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	kept := make([]domain.VectorRecord, 0, len(i.records))
	for _, r := range i.records {
		if r.DocumentID != documentID {
			kept = append(kept, r)
		}
	}
	i.records = kept
	return nil
}

// Stats reports the record count.
func (i *Index) Stats(context.Context) (domain.IndexStats, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return domain.IndexStats{
		Backend:      "memory",
		Collection:   i.collection,
		Dimension:    i.dimension,
		TotalVectors: int64(len(i.records)),
	}, nil
}

// Close is a no-op.
func (i *Index) Close() error {
	return nil
}
