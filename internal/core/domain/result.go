package domain

import "errors"

// FailureKind classifies a degraded Result.
type FailureKind int

const (
	FailureNone FailureKind = iota
	FailureExtraction
	FailureEmbedding
	FailureIndex
	FailureGeneration
	FailureOther
)

// String returns the kind name used in logs and metrics.
func (k FailureKind) String() string {
	switch k {
	case FailureNone:
		return "none"
	case FailureExtraction:
		return "extraction"
	case FailureEmbedding:
		return "embedding"
	case FailureIndex:
		return "index"
	case FailureGeneration:
		return "generation"
	default:
		return "other"
	}
}

// Result is the outcome of an operation that depends on an external
// service. A failed Result still carries a usable Value: zero vectors,
// an empty list or a canned reply.
type Result[T any] struct {
	Value T
	Err   error
}

// Success wraps a value produced normally.
func Success[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Failure wraps a fallback value together with the cause of degradation.
func Failure[T any](fallback T, err error) Result[T] {
	if err == nil {
		err = errors.New("unknown failure")
	}
	return Result[T]{Value: fallback, Err: err}
}

// OK reports whether the value was produced normally.
func (r Result[T]) OK() bool {
	return r.Err == nil
}

// Kind classifies the failure by its sentinel error.
func (r Result[T]) Kind() FailureKind {
	switch {
	case r.Err == nil:
		return FailureNone
	case errors.Is(r.Err, ErrUnsupportedFormat), errors.Is(r.Err, ErrExtractionFailure):
		return FailureExtraction
	case errors.Is(r.Err, ErrEmbeddingUnavailable):
		return FailureEmbedding
	case errors.Is(r.Err, ErrIndexUnavailable):
		return FailureIndex
	case errors.Is(r.Err, ErrGenerationFailure):
		return FailureGeneration
	default:
		return FailureOther
	}
}
