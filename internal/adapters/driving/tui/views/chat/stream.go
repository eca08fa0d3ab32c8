package chat

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/kbassist/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// deltaBuffer bounds how far the service may run ahead of rendering.
const deltaBuffer = 64

// stream bridges a ChatService.Stream call running in its own goroutine
// to the Bubbletea update loop. Each call to next yields one message.
type stream struct {
	deltas chan messages.StreamDelta
	done   chan messages.StreamDone
}

func startStream(
	ctx context.Context,
	svc driving.ChatService,
	req domain.ChatRequest,
) *stream {
	s := &stream{
		deltas: make(chan messages.StreamDelta, deltaBuffer),
		done:   make(chan messages.StreamDone, 1),
	}

	go func() {
		resp, err := svc.Stream(ctx, req, func(delta string) error {
			select {
			case s.deltas <- messages.StreamDelta{Delta: delta}:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		s.done <- messages.StreamDone{Response: resp, Err: err}
	}()

	return s
}

// next waits for the following delta or the end of the stream. Deltas
// still buffered when the stream ends are dropped; StreamDone carries the
// full reply.
func (s *stream) next() tea.Msg {
	select {
	case d := <-s.deltas:
		return d
	case d := <-s.done:
		return d
	}
}
