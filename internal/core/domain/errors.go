package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrForbidden indicates the principal does not own the entity.
	ErrForbidden = errors.New("forbidden")

	// Pipeline Errors.

	// ErrUnsupportedFormat indicates a file type outside the allow-list
	// or without a registered extractor.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrExtractionFailure indicates the file could not be parsed.
	ErrExtractionFailure = errors.New("extraction failed")

	// ErrEmbeddingUnavailable indicates the embedding model could not be
	// loaded or failed to encode. Callers receive zero vectors.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexUnavailable indicates the vector backend is unreachable
	// or rejected the operation.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrGenerationFailure indicates the completion API did not
	// produce an answer.
	ErrGenerationFailure = errors.New("generation failed")

	// Vector Index Errors.

	// ErrLengthMismatch indicates chunks, embeddings and metadata
	// have different lengths.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrDimensionMismatch indicates an embedding of the wrong dimension.
	ErrDimensionMismatch = errors.New("dimension mismatch")
)
