package driving

import (
	"context"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// ChatService answers questions, optionally grounded in documents.
type ChatService interface {
	// Reply answers in one piece. It never fails for a non-empty message;
	// upstream failures produce a canned reply with Degraded set.
	Reply(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error)

	// Stream answers incrementally through emit. The returned response
	// carries the full emitted text.
	Stream(ctx context.Context, req domain.ChatRequest, emit func(delta string) error) (*domain.ChatResponse, error)
}
