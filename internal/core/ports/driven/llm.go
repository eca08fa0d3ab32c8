package driven

import (
	"context"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// CompletionAPI is the remote chat-completion endpoint.
//
// Implementations perform exactly one request per call; retries and
// fallbacks belong to the generation service.
type CompletionAPI interface {
	// Complete sends one non-streaming request. The Result fails with
	// domain.ErrGenerationFailure unless the endpoint answered 200 with
	// non-empty content.
	Complete(ctx context.Context, prompt string) domain.Result[string]

	// Stream sends one streaming request and calls emit for every content
	// delta in arrival order. It returns nil only after the end-of-stream
	// marker. An error from emit stops the stream and is returned as is.
	Stream(ctx context.Context, prompt string, emit func(delta string) error) error

	// ModelName returns the model requested from the endpoint.
	ModelName() string
}
