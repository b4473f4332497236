package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const bookingColumns = `ticket_number, owner_kind, owner_value, flight_date, status, cancelled_by,
	passenger_name, age, phone, email, address, from_location, to_location,
	id_type, id_number, id_document_path, supporting_document_path,
	emergency_name, emergency_relation, emergency_phone, created_at, updated_at`

type PGBookingRepository struct {
	db querier
}

func NewBookingRepository(db *pgxpool.Pool) BookingReader {
	return &PGBookingRepository{db: db}
}

func (r *PGBookingRepository) GetByTicket(ctx context.Context, ticket string) (*domain.Booking, error) {
	return scanBooking(r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE ticket_number=$1`, ticket))
}

func (r *PGBookingRepository) List(ctx context.Context, filter BookingFilter) ([]domain.Booking, error) {
	var (
		where []string
		args  []any
	)
	if filter.Date != "" {
		day, err := dateArg(filter.Date)
		if err != nil {
			return nil, err
		}
		args = append(args, day)
		where = append(where, fmt.Sprintf("flight_date=$%d", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where = append(where, fmt.Sprintf("status=$%d", len(args)))
	}
	if filter.Owner != nil {
		args = append(args, filter.Owner.Kind, filter.Owner.Value)
		where = append(where, fmt.Sprintf("owner_kind=$%d AND owner_value=$%d", len(args)-1, len(args)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	return bookings, rows.Err()
}

func (r *PGBookingRepository) Counts(ctx context.Context, date string) (BookingCounts, error) {
	query := `SELECT count(*),
			count(*) FILTER (WHERE status='CONFIRMED'),
			count(*) FILTER (WHERE status='CANCELLED')
		FROM bookings`
	var args []any
	if date != "" {
		day, err := dateArg(date)
		if err != nil {
			return BookingCounts{}, err
		}
		query += ` WHERE flight_date=$1`
		args = append(args, day)
	}
	var c BookingCounts
	err := r.db.QueryRow(ctx, query, args...).Scan(&c.Total, &c.Confirmed, &c.Cancelled)
	return c, err
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var (
		b   domain.Booking
		day time.Time
	)
	err := row.Scan(&b.TicketNumber, &b.Owner.Kind, &b.Owner.Value, &day, &b.Status, &b.CancelledBy,
		&b.PassengerName, &b.Age, &b.Phone, &b.Email, &b.Address, &b.From, &b.To,
		&b.IDType, &b.IDNumber, &b.IDDocumentPath, &b.SupportingDocumentPath,
		&b.Emergency.Name, &b.Emergency.Relation, &b.Emergency.Phone, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	b.Date = domain.FormatDate(day)
	return &b, nil
}

var _ BookingReader = (*PGBookingRepository)(nil)
