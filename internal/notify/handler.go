package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"go.uber.org/zap"
)

// Handler turns a booking event into a delivered ticket or notice.
type Handler struct {
	renderer *Renderer
	sender   *Sender
	log      *zap.SugaredLogger
	metrics  *metrics.Registry
}

func NewHandler(renderer *Renderer, sender *Sender, log *zap.SugaredLogger, m *metrics.Registry) *Handler {
	return &Handler{renderer: renderer, sender: sender, log: log, metrics: m}
}

func (h *Handler) Handle(ctx context.Context, event domain.BookingEvent) error {
	if event.Recipient == "" {
		h.log.Warnw("booking event without recipient", "ticket_number", event.TicketNumber)
		h.metrics.TicketDelivered(string(event.Channel), "skipped")
		return nil
	}

	msg := Message{Recipient: event.Recipient}
	switch {
	case event.NeedsTicket():
		path, body, err := h.renderer.Render(event)
		if err != nil {
			h.metrics.TicketDelivered(string(event.Channel), "render_failed")
			return err
		}
		msg.Subject = fmt.Sprintf("Your helicopter ticket %s", event.TicketNumber)
		msg.Body = string(body)
		msg.Attachment = path
	case event.Type == domain.EventBookingCancelled:
		msg.Subject = fmt.Sprintf("Booking %s cancelled", event.TicketNumber)
		msg.Body = fmt.Sprintf("Your booking %s for %s has been cancelled.", event.TicketNumber, event.Date)
	default:
		h.log.Warnw("unknown booking event type", "type", event.Type, "ticket_number", event.TicketNumber)
		return nil
	}

	if err := h.sender.Send(ctx, event, msg); err != nil {
		h.metrics.TicketDelivered(string(event.Channel), "failed")
		return err
	}
	h.metrics.TicketDelivered(string(event.Channel), "ok")
	return nil
}
