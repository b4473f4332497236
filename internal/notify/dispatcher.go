package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"go.uber.org/zap"
)

var (
	ErrQueueFull = errors.New("notification queue is full")
	ErrClosed    = errors.New("notification dispatcher is closed")
)

// Publisher delivers a committed booking event to its transport.
type Publisher interface {
	Publish(ctx context.Context, event domain.BookingEvent) error
}

// Dispatcher decouples booking events from the request that produced them.
// Notify never blocks; a single goroutine drains the queue into the
// Publisher.
type Dispatcher struct {
	publisher      Publisher
	queue          chan domain.BookingEvent
	publishTimeout time.Duration
	log            *zap.SugaredLogger
	metrics        *metrics.Registry

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewDispatcher(publisher Publisher, buffer int, log *zap.SugaredLogger, m *metrics.Registry) *Dispatcher {
	return &Dispatcher{
		publisher:      publisher,
		queue:          make(chan domain.BookingEvent, buffer),
		publishTimeout: 15 * time.Second,
		log:            log,
		metrics:        m,
	}
}

func (d *Dispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for event := range d.queue {
			d.publish(event)
		}
	}()
}

// Notify queues event. It returns ErrQueueFull or ErrClosed instead of
// waiting.
func (d *Dispatcher) Notify(_ context.Context, event domain.BookingEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.metrics.NotificationFailed("closed")
		return ErrClosed
	}
	select {
	case d.queue <- event:
		d.metrics.NotificationQueued(string(event.Type))
		return nil
	default:
		d.metrics.NotificationFailed("enqueue")
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queue to drain.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

func (d *Dispatcher) publish(event domain.BookingEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), d.publishTimeout)
	defer cancel()

	if err := d.publisher.Publish(ctx, event); err != nil {
		d.metrics.NotificationFailed("publish")
		d.log.Errorw("booking event not published",
			"ticket_number", event.TicketNumber,
			"type", event.Type,
			"error", err)
	}
}
