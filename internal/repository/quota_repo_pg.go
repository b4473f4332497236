package repository

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const quotaColumns = `flight_date, sortie_count, seats_per_sortie, total_seats, booked_seats, available_seats, created_at, updated_at`

type PGQuotaRepository struct {
	db querier
}

func NewQuotaRepository(db *pgxpool.Pool) QuotaReader {
	return &PGQuotaRepository{db: db}
}

func (r *PGQuotaRepository) GetByDate(ctx context.Context, date string) (*domain.FlightQuota, error) {
	day, err := dateArg(date)
	if err != nil {
		return nil, err
	}
	return scanQuota(r.db.QueryRow(ctx, `SELECT `+quotaColumns+` FROM flight_quotas WHERE flight_date=$1`, day))
}

func (r *PGQuotaRepository) ListRange(ctx context.Context, from, to string) ([]domain.FlightQuota, error) {
	start, err := dateArg(from)
	if err != nil {
		return nil, err
	}
	end, err := dateArg(to)
	if err != nil {
		return nil, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+quotaColumns+` FROM flight_quotas WHERE flight_date BETWEEN $1 AND $2 ORDER BY flight_date`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	quotas := make([]domain.FlightQuota, 0)
	for rows.Next() {
		q, err := scanQuota(rows)
		if err != nil {
			return nil, err
		}
		quotas = append(quotas, *q)
	}
	return quotas, rows.Err()
}

func (r *PGQuotaRepository) Totals(ctx context.Context) (QuotaTotals, error) {
	var t QuotaTotals
	err := r.db.QueryRow(ctx, `SELECT count(*), COALESCE(sum(total_seats), 0), COALESCE(sum(booked_seats), 0), COALESCE(sum(available_seats), 0) FROM flight_quotas`).
		Scan(&t.Dates, &t.TotalSeats, &t.BookedSeats, &t.AvailableSeats)
	return t, err
}

func scanQuota(row pgx.Row) (*domain.FlightQuota, error) {
	var (
		q   domain.FlightQuota
		day time.Time
	)
	if err := row.Scan(&day, &q.SortieCount, &q.SeatsPerSortie, &q.TotalSeats, &q.BookedSeats, &q.AvailableSeats, &q.CreatedAt, &q.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	q.Date = domain.FormatDate(day)
	return &q, nil
}

var _ QuotaReader = (*PGQuotaRepository)(nil)
