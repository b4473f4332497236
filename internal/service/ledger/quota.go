package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/repository"
)

// SetQuota creates or resizes the quota for date. A quota is never shrunk
// below its booked seats.
func (l *SeatLedger) SetQuota(ctx context.Context, p domain.Principal, date string, sortieCount, seatsPerSortie int) (quota *domain.FlightQuota, err error) {
	defer func(start time.Time) { l.observe("set_quota", start, err) }(time.Now())

	if !p.IsAdmin() {
		return nil, domain.NotAuthorized("admin role required")
	}
	if err := validateCapacity(date, sortieCount, seatsPerSortie); err != nil {
		return nil, err
	}

	quota, err = l.applyQuota(ctx, date, sortieCount, seatsPerSortie)
	if err != nil {
		return nil, err
	}

	ctx = afterCommit(ctx)
	l.refresh(ctx, date, quota)
	l.audit(ctx, p, domain.AuditSetQuota, map[string]any{
		"date":             date,
		"sortie_count":     sortieCount,
		"seats_per_sortie": seatsPerSortie,
		"total_seats":      quota.TotalSeats,
	})
	l.log.Infow("quota set", "date", date, "total_seats", quota.TotalSeats, "booked_seats", quota.BookedSeats)
	return quota, nil
}

// SetMonthlyQuota applies SetQuota to every day of the month, each day in
// its own unit of work. Days that would shrink below booked seats are
// skipped; any other failure stops the run and is returned together with
// the progress made so far.
func (l *SeatLedger) SetMonthlyQuota(ctx context.Context, p domain.Principal, year int, month time.Month, sortieCount, seatsPerSortie int) (res MonthlyResult, err error) {
	defer func(start time.Time) { l.observe("set_monthly_quota", start, err) }(time.Now())

	if !p.IsAdmin() {
		return MonthlyResult{}, domain.NotAuthorized("admin role required")
	}
	dates, err := domain.MonthDates(year, month)
	if err != nil {
		return MonthlyResult{}, err
	}
	if err := validateSeats(sortieCount, seatsPerSortie); err != nil {
		return MonthlyResult{}, err
	}

	res.Skipped = []string{}
	updated := make([]*domain.FlightQuota, 0, len(dates))
	for _, date := range dates {
		var quota *domain.FlightQuota
		quota, err = l.applyQuota(ctx, date, sortieCount, seatsPerSortie)
		if errors.Is(err, domain.ErrConflict) {
			res.Skipped = append(res.Skipped, date)
			err = nil
			continue
		}
		if err != nil {
			break
		}
		updated = append(updated, quota)
		res.DaysUpdated++
	}

	actx := afterCommit(ctx)
	for _, q := range updated {
		l.refresh(actx, q.Date, q)
	}
	l.audit(actx, p, domain.AuditSetMonthlyQuota, map[string]any{
		"year":             year,
		"month":            int(month),
		"sortie_count":     sortieCount,
		"seats_per_sortie": seatsPerSortie,
		"days_updated":     res.DaysUpdated,
		"skipped":          res.Skipped,
	})
	if err != nil {
		l.log.Errorw("monthly quota aborted", "year", year, "month", int(month), "days_updated", res.DaysUpdated, "error", err)
		return res, err
	}
	l.log.Infow("monthly quota set", "year", year, "month", int(month), "days_updated", res.DaysUpdated, "skipped", len(res.Skipped))
	return res, nil
}

func (l *SeatLedger) applyQuota(ctx context.Context, date string, sortieCount, seatsPerSortie int) (*domain.FlightQuota, error) {
	var quota *domain.FlightQuota
	var err error
	for attempt := 1; attempt <= quotaInsertAttempts; attempt++ {
		err = l.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			existing, err := lockQuota(ctx, tx, date)
			if err != nil {
				return err
			}
			if existing == nil {
				q := domain.NewFlightQuota(date, sortieCount, seatsPerSortie)
				if err := tx.InsertQuota(ctx, q); err != nil {
					return err
				}
				quota = q
				return nil
			}

			if sortieCount*seatsPerSortie < existing.BookedSeats {
				return domain.Conflict("cannot reduce %s to %d seats, %d already booked",
					date, sortieCount*seatsPerSortie, existing.BookedSeats)
			}
			existing.SetCapacity(sortieCount, seatsPerSortie)
			if err := tx.UpdateQuota(ctx, existing); err != nil {
				return domain.Persistence("update quota", err)
			}
			quota = existing
			return nil
		})
		// A concurrent request created the row between our read and insert.
		if !errors.Is(err, repository.ErrQuotaExists) {
			break
		}
	}
	if err != nil {
		return nil, domain.Persistence("set quota", err)
	}
	return quota, nil
}
