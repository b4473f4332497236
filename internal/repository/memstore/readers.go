package memstore

import (
	"context"
	"sort"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/repository"
)

type quotaReader struct{ s *Store }

func (r quotaReader) GetByDate(_ context.Context, date string) (*domain.FlightQuota, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	q, ok := r.s.quotas[date]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &q, nil
}

func (r quotaReader) ListRange(_ context.Context, from, to string) ([]domain.FlightQuota, error) {
	start, err := domain.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseDate(to)
	if err != nil {
		return nil, err
	}

	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	quotas := make([]domain.FlightQuota, 0)
	for _, q := range r.s.quotas {
		day, err := domain.ParseDate(q.Date)
		if err != nil {
			continue
		}
		if day.Before(start) || day.After(end) {
			continue
		}
		quotas = append(quotas, q)
	}
	sortQuotas(quotas)
	return quotas, nil
}

func (r quotaReader) Totals(_ context.Context) (repository.QuotaTotals, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var t repository.QuotaTotals
	for _, q := range r.s.quotas {
		t.Dates++
		t.TotalSeats += q.TotalSeats
		t.BookedSeats += q.BookedSeats
		t.AvailableSeats += q.AvailableSeats
	}
	return t, nil
}

type bookingReader struct{ s *Store }

func (r bookingReader) GetByTicket(_ context.Context, ticket string) (*domain.Booking, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.bookings[ticket]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &b, nil
}

func (r bookingReader) List(_ context.Context, f repository.BookingFilter) ([]domain.Booking, error) {
	r.s.mu.RLock()
	bookings := make([]domain.Booking, 0)
	for _, b := range r.s.bookings {
		if f.Date != "" && b.Date != f.Date {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Owner != nil && !b.Owner.Equal(*f.Owner) {
			continue
		}
		bookings = append(bookings, b)
	}
	r.s.mu.RUnlock()

	sort.Slice(bookings, func(i, j int) bool {
		if !bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
		}
		return bookings[i].TicketNumber > bookings[j].TicketNumber
	})
	if f.Limit > 0 && len(bookings) > f.Limit {
		bookings = bookings[:f.Limit]
	}
	return bookings, nil
}

func (r bookingReader) Counts(_ context.Context, date string) (repository.BookingCounts, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var c repository.BookingCounts
	for _, b := range r.s.bookings {
		if date != "" && b.Date != date {
			continue
		}
		c.Total++
		switch b.Status {
		case domain.BookingStatusConfirmed:
			c.Confirmed++
		case domain.BookingStatusCancelled:
			c.Cancelled++
		}
	}
	return c, nil
}

type auditWriter struct{ s *Store }

func (w auditWriter) InsertAudit(_ context.Context, e domain.AuditEntry) error {
	w.s.mu.Lock()
	defer w.s.mu.Unlock()
	w.s.audit = append(w.s.audit, e)
	return nil
}
