package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
)

// HandleWithRetry runs Handle up to attempts times, waiting backoff,
// 2*backoff, ... between tries.
func (h *Handler) HandleWithRetry(ctx context.Context, event domain.BookingEvent, attempts int, backoff time.Duration) error {
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error

	for i := 0; i < attempts; i++ {
		err := h.Handle(ctx, event)
		if err == nil {
			return nil
		}

		lastErr = err
		h.log.Warnw("notification attempt failed",
			"attempt", i+1,
			"ticket_number", event.TicketNumber,
			"type", event.Type,
			"error", err)

		if i < attempts-1 {
			select {
			case <-time.After(time.Duration(i+1) * backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", attempts, lastErr)
}
