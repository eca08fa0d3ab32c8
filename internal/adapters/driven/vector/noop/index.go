// Package noop provides a vector index that is always unavailable.
// It stands in when no backend is configured or reachable, so that
// retrieval degrades instead of failing at startup.
package noop

import (
	"context"
	"errors"

	"github.com/custodia-labs/kbassist/internal/adapters/driven/vector"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// Verify interface compliance.
var _ driven.VectorIndex = (*Index)(nil)

var errDisabled = errors.New("vector backend disabled")

// Index rejects every operation with domain.ErrIndexUnavailable.
type Index struct {
	reason error
}

// New creates an unavailable index. reason explains why and may be nil.
func New(reason error) *Index {
	if reason == nil {
		reason = errDisabled
	}
	return &Index{reason: reason}
}

func (i *Index) Connect(context.Context) error {
	return vector.Unavailable("connect", i.reason)
}

func (i *Index) EnsureCollection(context.Context, int) error {
	return vector.Unavailable("ensure collection", i.reason)
}

func (i *Index) Insert(context.Context, int64, []string, [][]float32, []string) error {
	return vector.Unavailable("insert", i.reason)
}

func (i *Index) Search(context.Context, []float32, int, float64) ([]domain.VectorHit, error) {
	return nil, vector.Unavailable("search", i.reason)
}

func (i *Index) DeleteByDocument(context.Context, int64) error {
	return vector.Unavailable("delete", i.reason)
}

func (i *Index) Stats(context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{Backend: "noop"}, vector.Unavailable("stats", i.reason)
}

func (i *Index) Close() error {
	return nil
}
