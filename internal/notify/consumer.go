package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DeadLetter is parked on the dead-letter topic when an event runs out of
// delivery attempts.
type DeadLetter struct {
	Event    domain.BookingEvent `json:"event"`
	Error    string              `json:"error"`
	Attempts int                 `json:"attempts"`
	FailedAt time.Time           `json:"failed_at"`
}

// MessageHandler feeds notifications-topic messages to a Handler. A nil
// return lets the consumer commit the offset; an error stops consumption
// and the message is redelivered after restart.
type MessageHandler struct {
	handler  *Handler
	attempts int
	backoff  time.Duration
	log      *zap.SugaredLogger

	deadLetter        kafkaProducer
	deadLetterTopic   string
	deadLetterRetries int
}

func NewMessageHandler(handler *Handler, attempts int, backoff time.Duration, log *zap.SugaredLogger) *MessageHandler {
	return &MessageHandler{handler: handler, attempts: attempts, backoff: backoff, log: log}
}

// WithDeadLetter parks events that exhaust their attempts on topic instead
// of dropping them.
func (m *MessageHandler) WithDeadLetter(producer kafkaProducer, topic string, retries int) *MessageHandler {
	m.deadLetter = producer
	m.deadLetterTopic = topic
	m.deadLetterRetries = retries
	return m
}

func (m *MessageHandler) Handle(ctx context.Context, msg kafka.Message) error {
	var event domain.BookingEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		m.log.Warnw("undecodable notification skipped", "offset", msg.Offset, "error", err)
		return nil
	}

	err := m.handler.HandleWithRetry(ctx, event, m.attempts, m.backoff)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}

	if m.deadLetter == nil || m.deadLetterTopic == "" {
		m.log.Errorw("notification dropped after retries",
			"ticket_number", event.TicketNumber,
			"type", event.Type,
			"error", err)
		return nil
	}

	letter := DeadLetter{Event: event, Error: err.Error(), Attempts: m.attempts, FailedAt: time.Now().UTC()}
	if perr := m.deadLetter.PublishWithRetry(ctx, m.deadLetterTopic, event.TicketNumber, letter, m.deadLetterRetries); perr != nil {
		return fmt.Errorf("dead-letter %s: %w", event.TicketNumber, perr)
	}
	m.log.Warnw("notification dead-lettered",
		"ticket_number", event.TicketNumber,
		"topic", m.deadLetterTopic,
		"error", err)
	return nil
}
