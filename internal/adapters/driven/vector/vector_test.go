package vector

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

func TestRecords(t *testing.T) {
	long := strings.Repeat("文", domain.MaxRecordContent+10)
	records, err := Records(7, []string{"a", long}, [][]float32{{1, 0}, {0, 1}}, []string{"m0", "m1"}, 2)

	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(7), records[1].DocumentID)
	assert.Equal(t, 1, records[1].ChunkID)
	assert.Len(t, []rune(records[1].Content), domain.MaxRecordContent)
	assert.NotEmpty(t, records[0].ID)
	assert.NotEqual(t, records[0].ID, records[1].ID)
}

func TestRecordsErrors(t *testing.T) {
	tests := []struct {
		name       string
		chunks     []string
		embeddings [][]float32
		metadata   []string
		wantErr    error
	}{
		{
			name:       "length mismatch",
			chunks:     []string{"a", "b"},
			embeddings: [][]float32{{1, 0}},
			metadata:   []string{"m", "m"},
			wantErr:    domain.ErrLengthMismatch,
		},
		{
			name:       "metadata mismatch",
			chunks:     []string{"a"},
			embeddings: [][]float32{{1, 0}},
			metadata:   nil,
			wantErr:    domain.ErrLengthMismatch,
		},
		{
			name:       "dimension mismatch",
			chunks:     []string{"a"},
			embeddings: [][]float32{{1, 0, 0}},
			metadata:   []string{"m"},
			wantErr:    domain.ErrDimensionMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Records(1, tt.chunks, tt.embeddings, tt.metadata, 2)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, "abc", Clamp("abc", 5))
	assert.Equal(t, "ab", Clamp("abc", 2))
	assert.Equal(t, "文档", Clamp("文档文档", 2))
	assert.Equal(t, "文档", Clamp("文档", 2))
}

func TestRank(t *testing.T) {
	hit := func(doc int64, chunk int, score float64) domain.VectorHit {
		return domain.VectorHit{VectorRecord: domain.VectorRecord{DocumentID: doc, ChunkID: chunk}, Score: score}
	}
	hits := []domain.VectorHit{
		hit(2, 0, 0.8),
		hit(1, 1, 0.9),
		hit(1, 0, 0.9),
		hit(3, 0, 0.5),
		hit(1, 2, 0.7),
	}

	got := Rank(hits, 3, 0.7)

	require.Len(t, got, 3)
	assert.Equal(t, hit(1, 0, 0.9), got[0])
	assert.Equal(t, hit(1, 1, 0.9), got[1])
	assert.Equal(t, hit(2, 0, 0.8), got[2])
}

func TestRankThresholdIsInclusive(t *testing.T) {
	hits := []domain.VectorHit{{Score: 0.7}, {Score: 0.6999}}
	assert.Len(t, Rank(hits, 10, 0.7), 1)
}
