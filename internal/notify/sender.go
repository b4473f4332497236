package notify

import (
	"context"
	"fmt"

	"github.com/Domenick1991/heliseats/internal/domain"
	"go.uber.org/zap"
)

// Message is what a channel delivers to a single recipient.
type Message struct {
	Recipient  string
	Subject    string
	Body       string
	Attachment string
}

// Channel delivers a message over one contact medium.
type Channel interface {
	Deliver(ctx context.Context, msg Message) error
}

// LogChannel records deliveries in the service log. Real SMTP and SMS
// gateways plug in behind the same interface.
type LogChannel struct {
	medium domain.ContactKind
	log    *zap.SugaredLogger
}

func NewLogChannel(medium domain.ContactKind, log *zap.SugaredLogger) *LogChannel {
	return &LogChannel{medium: medium, log: log}
}

func (c *LogChannel) Deliver(_ context.Context, msg Message) error {
	c.log.Infow("notification delivered",
		"medium", c.medium,
		"recipient", msg.Recipient,
		"subject", msg.Subject,
		"attachment", msg.Attachment)
	return nil
}

// Sender picks the delivery channel recorded on the event.
type Sender struct {
	channels map[domain.ContactKind]Channel
}

func NewSender(email, sms Channel) *Sender {
	return &Sender{channels: map[domain.ContactKind]Channel{
		domain.ContactEmail: email,
		domain.ContactPhone: sms,
	}}
}

func (s *Sender) Send(ctx context.Context, event domain.BookingEvent, msg Message) error {
	ch, ok := s.channels[event.Channel]
	if !ok || ch == nil {
		return fmt.Errorf("no delivery channel for %q", event.Channel)
	}
	if msg.Recipient == "" {
		msg.Recipient = event.Recipient
	}
	return ch.Deliver(ctx, msg)
}
