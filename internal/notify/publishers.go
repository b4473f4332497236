package notify

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
)

type kafkaProducer interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload any, maxRetries int) error
}

// KafkaPublisher writes every event to the booking events topic for
// downstream consumers and to the notifications topic for the worker.
type KafkaPublisher struct {
	producer           kafkaProducer
	eventsTopic        string
	notificationsTopic string
	retries            int
}

func NewKafkaPublisher(producer kafkaProducer, eventsTopic, notificationsTopic string, retries int) *KafkaPublisher {
	return &KafkaPublisher{
		producer:           producer,
		eventsTopic:        eventsTopic,
		notificationsTopic: notificationsTopic,
		retries:            retries,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event domain.BookingEvent) error {
	var errs []error
	if p.eventsTopic != "" {
		if err := p.producer.PublishWithRetry(ctx, p.eventsTopic, event.TicketNumber, event, p.retries); err != nil {
			errs = append(errs, err)
		}
	}
	if p.notificationsTopic != "" {
		if err := p.producer.PublishWithRetry(ctx, p.notificationsTopic, event.TicketNumber, event, p.retries); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// InlinePublisher hands events straight to a Handler, retrying failed
// deliveries; used when no broker is configured.
type InlinePublisher struct {
	handler  *Handler
	attempts int
	backoff  time.Duration
}

func NewInlinePublisher(handler *Handler, attempts int, backoff time.Duration) *InlinePublisher {
	return &InlinePublisher{handler: handler, attempts: attempts, backoff: backoff}
}

func (p *InlinePublisher) Publish(ctx context.Context, event domain.BookingEvent) error {
	return p.handler.HandleWithRetry(ctx, event, p.attempts, p.backoff)
}
