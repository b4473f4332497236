package repository

import (
	"context"
	"errors"

	"github.com/Domenick1991/heliseats/internal/domain"
)

var (
	ErrNotFound        = errors.New("record not found")
	ErrQuotaExists     = errors.New("quota already exists for date")
	ErrDuplicateTicket = errors.New("ticket number already issued")
)

// Store is the persistence boundary for quotas, bookings and audit records.
// All counter-affecting writes go through WithinTx.
type Store interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Quotas() QuotaReader
	Bookings() BookingReader
	Audit() AuditWriter
	Close()
}

// Tx is a unit of work. Rows returned by the Lock methods stay locked until
// the transaction ends; writes become visible only on commit. Callers lock
// the booking row before any quota row and quota rows in ascending date order.
type Tx interface {
	LockQuota(ctx context.Context, date string) (*domain.FlightQuota, error)
	InsertQuota(ctx context.Context, q *domain.FlightQuota) error
	UpdateQuota(ctx context.Context, q *domain.FlightQuota) error

	LockBooking(ctx context.Context, ticket string) (*domain.Booking, error)
	TicketExists(ctx context.Context, ticket string) (bool, error)
	InsertBooking(ctx context.Context, b *domain.Booking) error
	UpdateBooking(ctx context.Context, b *domain.Booking) error
}

type QuotaTotals struct {
	Dates          int `json:"dates"`
	TotalSeats     int `json:"total_seats"`
	BookedSeats    int `json:"booked_seats"`
	AvailableSeats int `json:"available_seats"`
}

type QuotaReader interface {
	GetByDate(ctx context.Context, date string) (*domain.FlightQuota, error)
	ListRange(ctx context.Context, from, to string) ([]domain.FlightQuota, error)
	Totals(ctx context.Context) (QuotaTotals, error)
}

type BookingFilter struct {
	Date   string
	Status domain.BookingStatus
	Owner  *domain.Contact
	Limit  int
}

type BookingCounts struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Cancelled int `json:"cancelled"`
}

type BookingReader interface {
	GetByTicket(ctx context.Context, ticket string) (*domain.Booking, error)
	// List returns bookings newest first.
	List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error)
	// Counts aggregates by status; an empty date counts every booking.
	Counts(ctx context.Context, date string) (BookingCounts, error)
}

type AuditWriter interface {
	InsertAudit(ctx context.Context, entry domain.AuditEntry) error
}
