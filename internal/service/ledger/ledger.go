// Package ledger keeps flight quotas and bookings consistent. Every
// operation that touches seat counters runs in a single unit of work with
// the affected rows locked; notifications, audit and cache refresh
// happen only after commit.
package ledger

import (
	"context"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"github.com/Domenick1991/heliseats/internal/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	defaultTicketAttempts = 5
	quotaInsertAttempts   = 3
)

// Notifier accepts committed booking events. It must not block.
type Notifier interface {
	Notify(ctx context.Context, event domain.BookingEvent) error
}

// Auditor records an audit entry in the background.
type Auditor interface {
	Record(ctx context.Context, entry domain.AuditEntry)
}

// AvailabilityCache receives the committed quota snapshots. Implementations
// keep the newest snapshot per date.
type AvailabilityCache interface {
	SetQuota(ctx context.Context, q domain.FlightQuota) error
	InvalidateQuotas(ctx context.Context, dates ...string) error
}

// Outcome is the result of a booking operation. Degraded is set when the
// change committed but its notification could not be queued.
type Outcome struct {
	Booking  *domain.Booking `json:"booking"`
	Degraded bool            `json:"degraded"`
}

type MonthlyResult struct {
	DaysUpdated int      `json:"days_updated"`
	Skipped     []string `json:"skipped"`
}

// BookingUseCase is the booking side of the ledger as seen by handlers.
type BookingUseCase interface {
	CreateBooking(ctx context.Context, p domain.Principal, in CreateBookingInput) (Outcome, error)
	ModifyBooking(ctx context.Context, p domain.Principal, ticket string, in ModifyBookingInput) (Outcome, error)
	CancelBooking(ctx context.Context, p domain.Principal, ticket string) (Outcome, error)
	GetBooking(ctx context.Context, p domain.Principal, ticket string) (*domain.Booking, error)
}

type QuotaAdminUseCase interface {
	SetQuota(ctx context.Context, p domain.Principal, date string, sortieCount, seatsPerSortie int) (*domain.FlightQuota, error)
	SetMonthlyQuota(ctx context.Context, p domain.Principal, year int, month time.Month, sortieCount, seatsPerSortie int) (MonthlyResult, error)
}

type SeatLedger struct {
	store          repository.Store
	notifier       Notifier
	auditor        Auditor
	cache          AvailabilityCache
	tickets        TicketGenerator
	ticketAttempts int
	now            func() time.Time
	log            *zap.SugaredLogger
	metrics        *metrics.Registry
}

type Option func(*SeatLedger)

func WithNotifier(n Notifier) Option { return func(l *SeatLedger) { l.notifier = n } }

func WithAuditor(a Auditor) Option { return func(l *SeatLedger) { l.auditor = a } }

func WithCache(c AvailabilityCache) Option { return func(l *SeatLedger) { l.cache = c } }

func WithTicketGenerator(g TicketGenerator) Option { return func(l *SeatLedger) { l.tickets = g } }

func WithTicketAttempts(n int) Option {
	return func(l *SeatLedger) {
		if n > 0 {
			l.ticketAttempts = n
		}
	}
}

func WithLogger(log *zap.SugaredLogger) Option { return func(l *SeatLedger) { l.log = log } }

func WithMetrics(m *metrics.Registry) Option { return func(l *SeatLedger) { l.metrics = m } }

func WithClock(now func() time.Time) Option { return func(l *SeatLedger) { l.now = now } }

func New(store repository.Store, opts ...Option) *SeatLedger {
	l := &SeatLedger{
		store:          store,
		tickets:        RandomTickets,
		ticketAttempts: defaultTicketAttempts,
		now:            time.Now,
		log:            zap.NewNop().Sugar(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *SeatLedger) observe(op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(domain.KindOf(err))
	}
	l.metrics.ObserveLedger(op, outcome, time.Since(start).Seconds())
}

// afterCommit detaches post-commit work from the caller's cancellation.
func afterCommit(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

// refresh writes the committed snapshot of date to the cache. A missing
// row, or a failed write, drops the cached entry instead.
func (l *SeatLedger) refresh(ctx context.Context, date string, q *domain.FlightQuota) {
	if l.cache == nil {
		return
	}
	if q != nil {
		err := l.cache.SetQuota(ctx, *q)
		if err == nil {
			return
		}
		l.log.Warnw("availability cache refresh failed", "date", date, "error", err)
	}
	if err := l.cache.InvalidateQuotas(ctx, date); err != nil {
		l.log.Warnw("availability cache invalidation failed", "date", date, "error", err)
	}
}

func (l *SeatLedger) audit(ctx context.Context, p domain.Principal, action domain.AuditAction, details map[string]any) {
	if l.auditor == nil {
		return
	}
	l.auditor.Record(ctx, domain.AuditEntry{
		ID:        uuid.NewString(),
		ActorType: p.Role,
		ActorID:   p.ActorID(),
		Action:    action,
		Details:   details,
		CreatedAt: l.now().UTC(),
	})
}

// notify reports whether the event was handed to the sink.
func (l *SeatLedger) notify(ctx context.Context, t domain.BookingEventType, b *domain.Booking, previousDate string) bool {
	if l.notifier == nil {
		return true
	}
	channel := b.DeliveryChannel()
	event := domain.BookingEvent{
		EventID:       uuid.NewString(),
		Type:          t,
		TicketNumber:  b.TicketNumber,
		Date:          b.Date,
		PreviousDate:  previousDate,
		PassengerName: b.PassengerName,
		From:          b.From,
		To:            b.To,
		Status:        b.Status,
		Channel:       channel.Kind,
		Recipient:     channel.Value,
		CancelledBy:   b.CancelledBy,
		OccurredAt:    l.now().UTC(),
	}
	if err := l.notifier.Notify(ctx, event); err != nil {
		l.log.Warnw("booking notification not queued",
			"ticket_number", b.TicketNumber,
			"type", t,
			"error", err)
		return false
	}
	return true
}

var (
	_ BookingUseCase    = (*SeatLedger)(nil)
	_ QuotaAdminUseCase = (*SeatLedger)(nil)
)
