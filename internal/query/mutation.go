package query

import (
	"context"
	"log/slog"

	"github.com/fulfilhub/dashboard/internal/shared"
)

// Mutation is a write whose success makes the Invalidates keys stale.
type Mutation[In, Out any] struct {
	Name           string
	Do             func(ctx context.Context, in In) (Out, error)
	Invalidates    []Key
	SuccessMessage string
	// MessageFrom extracts a server-supplied success message; when it returns an
	// empty string SuccessMessage is used.
	MessageFrom func(Out) string
}

// Execute runs the write. On success every declared key is invalidated before
// Execute returns and a success notice is built; on failure the error is returned
// with a notice carrying the normalized message.
func (m Mutation[In, Out]) Execute(ctx context.Context, s Scope, in In) (Out, shared.FlashMessage, error) {
	out, err := m.Do(ctx, in)
	if err != nil {
		var zero Out
		return zero, shared.FlashMessage{Kind: shared.FlashError, Message: NormalizeError(err)}, err
	}
	if err := s.cache.Invalidate(ctx, m.Invalidates...); err != nil {
		s.cache.logger.WarnContext(ctx, "mutation invalidate", slog.String("mutation", m.Name), slog.Any("error", err))
	}
	message := ""
	if m.MessageFrom != nil {
		message = m.MessageFrom(out)
	}
	if message == "" {
		message = m.SuccessMessage
	}
	return out, shared.FlashMessage{Kind: shared.FlashSuccess, Message: message}, nil
}
