package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/logger"
	"github.com/custodia-labs/kbassist/internal/metrics"
)

// Generation defaults.
const (
	DefaultMaxRetries         = 3
	DefaultRetryBackoff       = time.Second
	DefaultFallbackSliceSize  = 3
	DefaultFallbackSliceDelay = 50 * time.Millisecond
)

const (
	modeBlocking = "blocking"
	modeStream   = "stream"
)

// GenerationConfig tunes retry and fallback behaviour.
type GenerationConfig struct {
	// MaxRetries is the total number of attempts.
	MaxRetries int

	// RetryBackoff is multiplied by the attempt number between attempts.
	RetryBackoff time.Duration

	// FallbackSliceSize and FallbackSliceDelay pace fallback text on a stream.
	FallbackSliceSize  int
	FallbackSliceDelay time.Duration
}

// GenerationRequest is a prompt plus the user message it was built from.
// The message selects the canned fallback.
type GenerationRequest struct {
	Prompt  string
	Message string
}

// GenerationService calls the completion API with retry and always
// produces text.
type GenerationService struct {
	api driven.CompletionAPI
	cfg GenerationConfig
}

// NewGenerationService creates a generation service. Zero config values
// take the defaults, except RetryBackoff and FallbackSliceDelay which may
// be zero.
func NewGenerationService(api driven.CompletionAPI, cfg GenerationConfig) *GenerationService {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBackoff < 0 {
		cfg.RetryBackoff = DefaultRetryBackoff
	}
	if cfg.FallbackSliceSize <= 0 {
		cfg.FallbackSliceSize = DefaultFallbackSliceSize
	}
	if cfg.FallbackSliceDelay < 0 {
		cfg.FallbackSliceDelay = DefaultFallbackSliceDelay
	}
	return &GenerationService{api: api, cfg: cfg}
}

// Generate returns the completion for req.Prompt. When every attempt
// fails the Result is a Failure whose Value is the canned reply.
func (g *GenerationService) Generate(ctx context.Context, req GenerationRequest) domain.Result[string] {
	return g.generate(ctx, req, g.cfg.MaxRetries)
}

func (g *GenerationService) generate(ctx context.Context, req GenerationRequest, attempts int) domain.Result[string] {
	var text string
	attempt := 0

	err := retry.Do(ctx, g.backoff(attempts), func(ctx context.Context) error {
		attempt++
		r := g.api.Complete(ctx, req.Prompt)
		if r.OK() {
			metrics.GenerationAttempts.WithLabelValues(modeBlocking, "success").Inc()
			text = r.Value
			return nil
		}
		metrics.GenerationAttempts.WithLabelValues(modeBlocking, "failure").Inc()
		logger.Warn("completion attempt %d/%d failed: %v", attempt, attempts, r.Err)
		return retry.RetryableError(r.Err)
	})
	if err == nil {
		return domain.Success(text)
	}

	metrics.GenerationFallbacks.WithLabelValues(modeBlocking).Inc()
	return domain.Failure(CannedReply(req.Message), tagGeneration(err))
}

// Stream emits the completion for req.Prompt as it arrives.
//
// The stream is retried only while nothing has been emitted. A failure
// after partial output ends the stream as degraded. When no attempt
// produced output, a single blocking attempt is made and its text (or
// the canned reply) is emitted in small slices. An error from emit stops
// the stream at once. The Result holds everything that was emitted.
func (g *GenerationService) Stream(ctx context.Context, req GenerationRequest, emit func(delta string) error) domain.Result[string] {
	var sb strings.Builder
	var emitErr error
	emitted := false

	forward := func(delta string) error {
		if delta == "" {
			return nil
		}
		if err := emit(delta); err != nil {
			emitErr = err
			return err
		}
		emitted = true
		sb.WriteString(delta)
		return nil
	}

	attempt := 0
	err := retry.Do(ctx, g.backoff(g.cfg.MaxRetries), func(ctx context.Context) error {
		attempt++
		err := g.api.Stream(ctx, req.Prompt, forward)
		if err == nil {
			metrics.GenerationAttempts.WithLabelValues(modeStream, "success").Inc()
			return nil
		}
		metrics.GenerationAttempts.WithLabelValues(modeStream, "failure").Inc()
		if emitErr != nil || emitted {
			return err
		}
		logger.Warn("stream attempt %d/%d failed: %v", attempt, g.cfg.MaxRetries, err)
		return retry.RetryableError(err)
	})

	switch {
	case err == nil:
		return domain.Success(sb.String())
	case emitErr != nil:
		return domain.Failure(sb.String(), fmt.Errorf("stream consumer: %w", emitErr))
	case emitted:
		logger.Warn("stream interrupted after partial output: %v", err)
		return domain.Failure(sb.String(), tagGeneration(err))
	case ctx.Err() != nil:
		return domain.Failure(sb.String(), tagGeneration(ctx.Err()))
	}

	metrics.GenerationFallbacks.WithLabelValues(modeStream).Inc()
	fallback := g.generate(ctx, req, 1)
	if sliceErr := g.emitSlices(ctx, fallback.Value, forward); sliceErr != nil {
		if emitErr != nil {
			return domain.Failure(sb.String(), fmt.Errorf("stream consumer: %w", emitErr))
		}
		return domain.Failure(sb.String(), tagGeneration(sliceErr))
	}
	if fallback.OK() {
		return domain.Success(sb.String())
	}
	return domain.Failure(sb.String(), fallback.Err)
}

// emitSlices sends text in fixed-size rune slices with a pause between them.
func (g *GenerationService) emitSlices(ctx context.Context, text string, emit func(string) error) error {
	runes := []rune(text)
	size := g.cfg.FallbackSliceSize

	for start := 0; start < len(runes); start += size {
		if start > 0 && g.cfg.FallbackSliceDelay > 0 {
			t := time.NewTimer(g.cfg.FallbackSliceDelay)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-t.C:
			}
		}
		end := min(start+size, len(runes))
		if err := emit(string(runes[start:end])); err != nil {
			return err
		}
	}
	return nil
}

// backoff waits attempt × RetryBackoff between attempts, for at most
// attempts calls in total. A fresh value is needed per call.
func (g *GenerationService) backoff(attempts int) retry.Backoff {
	if attempts < 1 {
		attempts = 1
	}
	step := g.cfg.RetryBackoff
	n := 0
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		n++
		return time.Duration(n) * step, false
	})
	return retry.WithMaxRetries(uint64(attempts-1), linear) // #nosec G115 -- attempts >= 1
}

func tagGeneration(err error) error {
	if errors.Is(err, domain.ErrGenerationFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrGenerationFailure, err)
}
