// Package vectortest exercises any driven.VectorIndex against the
// behaviour every backend must share.
package vectortest

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// Run runs the conformance tests. newIndex must return a fresh, empty,
// connected index for every call.
func Run(t *testing.T, newIndex func(t *testing.T) driven.VectorIndex) {
	t.Helper()

	t.Run("ensure collection is idempotent", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.EnsureCollection(ctx, 4))
		require.NoError(t, idx.EnsureCollection(ctx, 4))
		assert.ErrorIs(t, idx.EnsureCollection(ctx, 8), domain.ErrIndexUnavailable)

		stats, err := idx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 4, stats.Dimension)
	})

	t.Run("round trip", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.EnsureCollection(ctx, 4))

		require.NoError(t, idx.Insert(ctx, 1,
			[]string{"Python is great"},
			[][]float32{{1, 0, 0, 0}},
			[]string{"doc_1_chunk_0"}))
		require.NoError(t, idx.Insert(ctx, 2,
			[]string{"Java is verbose"},
			[][]float32{{0, 1, 0, 0}},
			[]string{"doc_2_chunk_0"}))

		hits, err := idx.Search(ctx, []float32{0.9, 0.1, 0, 0}, 5, 0)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "Python is great", hits[0].Content)
		assert.Equal(t, int64(1), hits[0].DocumentID)
		assert.Equal(t, 0, hits[0].ChunkID)
		assert.Equal(t, "doc_1_chunk_0", hits[0].Metadata)
		assert.Greater(t, hits[0].Score, hits[1].Score)

		hits, err = idx.Search(ctx, []float32{0.9, 0.1, 0, 0}, 5, 0.7)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, "Python is great", hits[0].Content)

		stats, err := idx.Stats(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), stats.TotalVectors)
	})

	t.Run("limit and tie order", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.EnsureCollection(ctx, 2))

		vec := []float32{1, 0}
		require.NoError(t, idx.Insert(ctx, 9, []string{"a", "b"}, [][]float32{vec, vec}, []string{"m0", "m1"}))
		require.NoError(t, idx.Insert(ctx, 3, []string{"c"}, [][]float32{vec}, []string{"m0"}))

		hits, err := idx.Search(ctx, vec, 2, 0)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, int64(3), hits[0].DocumentID)
		assert.Equal(t, int64(9), hits[1].DocumentID)
		assert.Equal(t, 0, hits[1].ChunkID)
	})

	t.Run("insert validation", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.EnsureCollection(ctx, 2))

		err := idx.Insert(ctx, 1, []string{"a", "b"}, [][]float32{{1, 0}}, []string{"m", "m"})
		assert.ErrorIs(t, err, domain.ErrLengthMismatch)

		err = idx.Insert(ctx, 1, []string{"a"}, [][]float32{{1, 0, 0}}, []string{"m"})
		assert.ErrorIs(t, err, domain.ErrDimensionMismatch)

		stats, err := idx.Stats(ctx)
		require.NoError(t, err)
		assert.Zero(t, stats.TotalVectors, "rejected batches leave nothing behind")
	})

	t.Run("content is clamped", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.EnsureCollection(ctx, 2))

		long := strings.Repeat("x", domain.MaxRecordContent+500)
		meta := strings.Repeat("m", domain.MaxRecordMetadata+500)
		require.NoError(t, idx.Insert(ctx, 1, []string{long}, [][]float32{{1, 0}}, []string{meta}))

		hits, err := idx.Search(ctx, []float32{1, 0}, 1, 0)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Len(t, hits[0].Content, domain.MaxRecordContent)
		assert.Len(t, hits[0].Metadata, domain.MaxRecordMetadata)
	})

	t.Run("delete is idempotent", func(t *testing.T) {
		idx := newIndex(t)
		ctx := context.Background()
		require.NoError(t, idx.EnsureCollection(ctx, 2))
		require.NoError(t, idx.Insert(ctx, 1, []string{"a", "b"}, [][]float32{{1, 0}, {0, 1}}, []string{"m0", "m1"}))
		require.NoError(t, idx.Insert(ctx, 2, []string{"c"}, [][]float32{{1, 1}}, []string{"m0"}))

		require.NoError(t, idx.DeleteByDocument(ctx, 1))
		require.NoError(t, idx.DeleteByDocument(ctx, 1))
		require.NoError(t, idx.DeleteByDocument(ctx, 404))

		hits, err := idx.Search(ctx, []float32{1, 0}, 10, 0)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, int64(2), hits[0].DocumentID)
	})
}
