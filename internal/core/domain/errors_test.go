package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrForbidden", ErrForbidden},
		{"ErrUnsupportedFormat", ErrUnsupportedFormat},
		{"ErrExtractionFailure", ErrExtractionFailure},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrIndexUnavailable", ErrIndexUnavailable},
		{"ErrGenerationFailure", ErrGenerationFailure},
		{"ErrLengthMismatch", ErrLengthMismatch},
		{"ErrDimensionMismatch", ErrDimensionMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestErrors_Wrapping(t *testing.T) {
	cause := errors.New("connection refused")
	err := fmt.Errorf("%w: connect qdrant: %w", ErrIndexUnavailable, cause)

	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrEmbeddingUnavailable)
}
