package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// Verify interface compliance.
var _ driving.ChatService = (*ChatService)(nil)

// ChatService answers messages, optionally grounded on the caller's
// documents.
type ChatService struct {
	retrieval  driving.RetrievalService
	assembler  *ContextAssembler
	generation *GenerationService
	docs       driven.DocumentStore
	limit      int
	tracer     trace.Tracer
}

// NewChatService creates a chat service. limit is the number of
// documents retrieved per turn; zero means DefaultQueryLimit.
func NewChatService(
	retrieval driving.RetrievalService,
	assembler *ContextAssembler,
	generation *GenerationService,
	docs driven.DocumentStore,
	limit int,
) *ChatService {
	if limit <= 0 {
		limit = DefaultQueryLimit
	}
	return &ChatService{
		retrieval:  retrieval,
		assembler:  assembler,
		generation: generation,
		docs:       docs,
		limit:      limit,
		tracer:     otel.Tracer("kbassist.chat"),
	}
}

// Reply answers a message. Once the message is accepted it always
// returns a response; Degraded reports that canned text was used.
func (s *ChatService) Reply(ctx context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	ctx, span := s.start(ctx, "kbassist.chat.reply", req)
	defer span.End()

	genReq, sources, err := s.prepare(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	r := s.generation.Generate(ctx, genReq)
	span.SetAttributes(attribute.Int("sources", len(sources)), attribute.Bool("degraded", !r.OK()))
	return &domain.ChatResponse{
		Message:  r.Value,
		Sources:  sources,
		Degraded: !r.OK(),
	}, nil
}

// Stream answers a message, passing text to emit as it is produced.
// The returned response holds everything that was emitted.
func (s *ChatService) Stream(ctx context.Context, req domain.ChatRequest, emit func(delta string) error) (*domain.ChatResponse, error) {
	ctx, span := s.start(ctx, "kbassist.chat.stream", req)
	defer span.End()

	genReq, sources, err := s.prepare(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	r := s.generation.Stream(ctx, genReq, emit)
	span.SetAttributes(attribute.Int("sources", len(sources)), attribute.Bool("degraded", !r.OK()))
	return &domain.ChatResponse{
		Message:  r.Value,
		Sources:  sources,
		Degraded: !r.OK(),
	}, nil
}

func (s *ChatService) start(ctx context.Context, name string, req domain.ChatRequest) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(
		attribute.Int64("owner_id", req.OwnerID),
		attribute.Bool("use_documents", req.UseDocuments),
		attribute.Int("selected_documents", len(req.DocumentIDs)),
	))
}

func (s *ChatService) prepare(ctx context.Context, req domain.ChatRequest) (GenerationRequest, []domain.SearchResult, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return GenerationRequest{}, nil, fmt.Errorf("%w: message is empty", domain.ErrInvalidInput)
	}

	var passages []domain.Passage
	var sources []domain.SearchResult

	switch {
	case len(req.DocumentIDs) > 0:
		passages, sources = s.selected(ctx, req.OwnerID, req.DocumentIDs)
	case req.UseDocuments:
		r := s.retrieval.Query(ctx, req.OwnerID, message, s.limit)
		if r.OK() {
			sources = r.Value
			passages = domain.Passages(sources)
		} else {
			logger.Warn("answering without document context: %v", r.Err)
		}
	}

	logger.Debug("chat turn with %d passage(s)", len(passages))
	return GenerationRequest{
		Prompt:  s.assembler.Prompt(message, passages),
		Message: message,
	}, sources, nil
}

// selected loads the full content of explicitly chosen documents. Ids
// that are missing, foreign or not yet processed are skipped.
func (s *ChatService) selected(ctx context.Context, ownerID int64, ids []int64) ([]domain.Passage, []domain.SearchResult) {
	var passages []domain.Passage
	var sources []domain.SearchResult
	for _, id := range ids {
		doc, err := s.docs.Get(ctx, id)
		if err != nil {
			logger.Debug("skip document %d: %v", id, err)
			continue
		}
		if doc.OwnerID != ownerID || doc.Status != domain.StatusCompleted || doc.Content == "" {
			continue
		}
		passages = append(passages, domain.Passage{Title: doc.Title, Content: doc.Content})
		sources = append(sources, domain.SearchResult{
			DocumentID: doc.ID,
			Title:      doc.Title,
			Content:    truncateRunes(doc.Content, DefaultExcerptLength, "..."),
			Score:      1,
		})
	}
	return passages, sources
}
