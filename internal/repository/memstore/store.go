// Package memstore is an in-process implementation of repository.Store.
// Row locks are per key and held until the unit of work finishes; writes are
// buffered and applied together at commit, so a failed or cancelled unit of
// work leaves no trace.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/repository"
)

type Store struct {
	mu       sync.RWMutex
	quotas   map[string]domain.FlightQuota
	bookings map[string]domain.Booking
	audit    []domain.AuditEntry
	locks    *lockTable
	now      func() time.Time
}

func New() *Store {
	return &Store{
		quotas:   make(map[string]domain.FlightQuota),
		bookings: make(map[string]domain.Booking),
		locks:    &lockTable{rows: make(map[string]chan struct{})},
		now:      time.Now,
	}
}

func (s *Store) Quotas() repository.QuotaReader     { return quotaReader{s} }
func (s *Store) Bookings() repository.BookingReader { return bookingReader{s} }
func (s *Store) Audit() repository.AuditWriter      { return auditWriter{s} }

func (s *Store) Close() {}

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	t := &tx{
		s:           s,
		held:        make(map[string]bool),
		quotas:      make(map[string]domain.FlightQuota),
		newQuotas:   make(map[string]bool),
		bookings:    make(map[string]domain.Booking),
		newBookings: make(map[string]bool),
	}
	defer t.releaseAll()

	if err := fn(ctx, t); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

// AuditEntries returns a copy of every recorded audit entry.
func (s *Store) AuditEntries() []domain.AuditEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.AuditEntry(nil), s.audit...)
}

// Verify checks every quota's counters and that BookedSeats matches the
// number of confirmed bookings on that date.
func (s *Store) Verify() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	confirmed := make(map[string]int)
	for _, b := range s.bookings {
		if b.Status == domain.BookingStatusConfirmed {
			confirmed[b.Date]++
		}
	}
	for date, q := range s.quotas {
		if !q.Consistent() {
			return fmt.Errorf("quota %s counters inconsistent: %+v", date, q)
		}
		if q.BookedSeats != confirmed[date] {
			return fmt.Errorf("quota %s booked %d, confirmed bookings %d", date, q.BookedSeats, confirmed[date])
		}
	}
	for date, n := range confirmed {
		if _, ok := s.quotas[date]; !ok && n > 0 {
			return fmt.Errorf("%d confirmed bookings on %s without quota", n, date)
		}
	}
	return nil
}

type lockTable struct {
	mu   sync.Mutex
	rows map[string]chan struct{}
}

func (l *lockTable) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.rows[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.rows[key] = ch
	}
	return ch
}

func (l *lockTable) acquire(ctx context.Context, key string) error {
	select {
	case l.slot(key) <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *lockTable) release(key string) {
	<-l.slot(key)
}

func quotaKey(date string) string     { return "quota:" + date }
func bookingKey(ticket string) string { return "booking:" + ticket }

func sortQuotas(quotas []domain.FlightQuota) {
	sort.Slice(quotas, func(i, j int) bool {
		a, _ := domain.ParseDate(quotas[i].Date)
		b, _ := domain.ParseDate(quotas[j].Date)
		return a.Before(b)
	})
}

var _ repository.Store = (*Store)(nil)
