package memstore

import (
	"context"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/repository"
)

type tx struct {
	s           *Store
	held        map[string]bool
	order       []string
	quotas      map[string]domain.FlightQuota
	newQuotas   map[string]bool
	bookings    map[string]domain.Booking
	newBookings map[string]bool
}

func (t *tx) lock(ctx context.Context, key string) error {
	if t.held[key] {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key); err != nil {
		return err
	}
	t.held[key] = true
	t.order = append(t.order, key)
	return nil
}

func (t *tx) releaseAll() {
	for i := len(t.order) - 1; i >= 0; i-- {
		t.s.locks.release(t.order[i])
	}
	t.order = nil
}

func (t *tx) quota(date string) (domain.FlightQuota, bool) {
	if q, ok := t.quotas[date]; ok {
		return q, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	q, ok := t.s.quotas[date]
	return q, ok
}

func (t *tx) booking(ticket string) (domain.Booking, bool) {
	if b, ok := t.bookings[ticket]; ok {
		return b, true
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	b, ok := t.s.bookings[ticket]
	return b, ok
}

func (t *tx) LockQuota(ctx context.Context, date string) (*domain.FlightQuota, error) {
	if err := t.lock(ctx, quotaKey(date)); err != nil {
		return nil, err
	}
	q, ok := t.quota(date)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (t *tx) InsertQuota(ctx context.Context, q *domain.FlightQuota) error {
	if err := t.lock(ctx, quotaKey(q.Date)); err != nil {
		return err
	}
	if _, ok := t.quota(q.Date); ok {
		return repository.ErrQuotaExists
	}
	now := t.s.now()
	q.Recompute()
	q.CreatedAt, q.UpdatedAt = now, now
	t.quotas[q.Date] = *q
	t.newQuotas[q.Date] = true
	return nil
}

func (t *tx) UpdateQuota(ctx context.Context, q *domain.FlightQuota) error {
	if err := t.lock(ctx, quotaKey(q.Date)); err != nil {
		return err
	}
	if _, ok := t.quota(q.Date); !ok {
		return repository.ErrNotFound
	}
	q.Recompute()
	q.UpdatedAt = t.s.now()
	t.quotas[q.Date] = *q
	return nil
}

func (t *tx) LockBooking(ctx context.Context, ticket string) (*domain.Booking, error) {
	if err := t.lock(ctx, bookingKey(ticket)); err != nil {
		return nil, err
	}
	b, ok := t.booking(ticket)
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (t *tx) TicketExists(_ context.Context, ticket string) (bool, error) {
	_, ok := t.booking(ticket)
	return ok, nil
}

func (t *tx) InsertBooking(ctx context.Context, b *domain.Booking) error {
	if err := t.lock(ctx, bookingKey(b.TicketNumber)); err != nil {
		return err
	}
	if _, ok := t.booking(b.TicketNumber); ok {
		return repository.ErrDuplicateTicket
	}
	now := t.s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	t.bookings[b.TicketNumber] = *b
	t.newBookings[b.TicketNumber] = true
	return nil
}

func (t *tx) UpdateBooking(ctx context.Context, b *domain.Booking) error {
	if err := t.lock(ctx, bookingKey(b.TicketNumber)); err != nil {
		return err
	}
	if _, ok := t.booking(b.TicketNumber); !ok {
		return repository.ErrNotFound
	}
	b.UpdatedAt = t.s.now()
	t.bookings[b.TicketNumber] = *b
	return nil
}

func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()

	for date := range t.newQuotas {
		if _, ok := t.s.quotas[date]; ok {
			return repository.ErrQuotaExists
		}
	}
	for ticket := range t.newBookings {
		if _, ok := t.s.bookings[ticket]; ok {
			return repository.ErrDuplicateTicket
		}
	}
	for date, q := range t.quotas {
		t.s.quotas[date] = q
	}
	for ticket, b := range t.bookings {
		t.s.bookings[ticket] = b
	}
	return nil
}

var _ repository.Tx = (*tx)(nil)
