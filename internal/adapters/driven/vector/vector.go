// Package vector holds the record handling shared by the vector index
// backends. Backends live in subpackages; the SQLite backend lives with
// the SQLite store.
package vector

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// Records validates an insert batch and converts it to records with
// fresh ids and clamped text fields.
func Records(documentID int64, chunks []string, embeddings [][]float32, metadata []string, dimension int) ([]domain.VectorRecord, error) {
	if len(chunks) != len(embeddings) || len(chunks) != len(metadata) {
		return nil, fmt.Errorf("%w: %d chunks, %d embeddings, %d metadata",
			domain.ErrLengthMismatch, len(chunks), len(embeddings), len(metadata))
	}
	records := make([]domain.VectorRecord, len(chunks))
	for i := range chunks {
		if len(embeddings[i]) != dimension {
			return nil, fmt.Errorf("%w: chunk %d has %d dimensions, collection has %d",
				domain.ErrDimensionMismatch, i, len(embeddings[i]), dimension)
		}
		records[i] = domain.VectorRecord{
			ID:         uuid.NewString(),
			DocumentID: documentID,
			ChunkID:    i,
			Content:    Clamp(chunks[i], domain.MaxRecordContent),
			Embedding:  embeddings[i],
			Metadata:   Clamp(metadata[i], domain.MaxRecordMetadata),
		}
	}
	return records, nil
}

// Clamp truncates s to at most max runes.
func Clamp(s string, max int) string {
	if len(s) <= max {
		return s
	}
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max])
}

// Rank keeps hits scoring at least threshold, orders them by score
// (ties by document then chunk) and truncates to limit.
func Rank(hits []domain.VectorHit, limit int, threshold float64) []domain.VectorHit {
	kept := hits[:0]
	for _, h := range hits {
		if h.Score >= threshold {
			kept = append(kept, h)
		}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.DocumentID != b.DocumentID {
			return a.DocumentID < b.DocumentID
		}
		return a.ChunkID < b.ChunkID
	})
	if limit >= 0 && len(kept) > limit {
		kept = kept[:limit]
	}
	return kept
}

// Unavailable tags err as an index failure.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", domain.ErrIndexUnavailable, op, err)
}
