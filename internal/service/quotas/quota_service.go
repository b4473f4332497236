package quotas

import (
	"context"
	"errors"
	"fmt"

	"github.com/Domenick1991/heliseats/internal/cache"
	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"github.com/Domenick1991/heliseats/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	maxRangeDays       = 366
	defaultBookingPage = 500
)

// QuotaUseCase is the read side: availability, listings and reports.
// Nothing here touches seat counters.
type QuotaUseCase interface {
	Availability(ctx context.Context, date string) (Availability, error)
	List(ctx context.Context, from, to string) ([]domain.FlightQuota, error)
	ListBookings(ctx context.Context, filter BookingQuery) ([]domain.Booking, error)
	Summary(ctx context.Context) (Summary, error)
	DateReport(ctx context.Context, date string) (DateReport, error)
	LiveStats(ctx context.Context) (LiveStats, error)
}

type Availability struct {
	Date           string `json:"date"`
	Available      bool   `json:"available"`
	AvailableSeats int    `json:"available_seats"`
	TotalSeats     int    `json:"total_seats"`
	Message        string `json:"message"`
}

type Summary struct {
	TotalBookings     int `json:"total_bookings"`
	ConfirmedBookings int `json:"confirmed_bookings"`
	CancelledBookings int `json:"cancelled_bookings"`
	TotalSeats        int `json:"total_seats"`
	AvailableSeats    int `json:"available_seats"`
}

type DateReport struct {
	Date              string              `json:"date"`
	TotalBookings     int                 `json:"total_bookings"`
	ConfirmedBookings int                 `json:"confirmed_bookings"`
	CancelledBookings int                 `json:"cancelled_bookings"`
	Quota             *domain.FlightQuota `json:"quota"`
}

// LiveStats is safe to show unauthenticated visitors.
type LiveStats struct {
	TotalBookings  int `json:"total_bookings"`
	Confirmed      int `json:"confirmed"`
	TotalSeats     int `json:"total_seats"`
	AvailableSeats int `json:"available_seats"`
}

type BookingQuery struct {
	Date   string
	Status string
	Limit  int
}

type QuotaService struct {
	quotas   repository.QuotaReader
	bookings repository.BookingReader
	cache    cache.QuotaCache
	group    singleflight.Group
	log      *zap.SugaredLogger
	metrics  *metrics.Registry
}

func NewQuotaService(quotas repository.QuotaReader, bookings repository.BookingReader, c cache.QuotaCache, log *zap.SugaredLogger, m *metrics.Registry) *QuotaService {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &QuotaService{quotas: quotas, bookings: bookings, cache: c, log: log, metrics: m}
}

func (s *QuotaService) Availability(ctx context.Context, date string) (Availability, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return Availability{}, err
	}
	q, err := s.quota(ctx, date)
	if err != nil {
		return Availability{}, err
	}
	if q == nil || !q.HasCapacity() {
		res := Availability{Date: date, Message: "No seats available"}
		if q != nil {
			res.TotalSeats = q.TotalSeats
		}
		return res, nil
	}
	return Availability{
		Date:           date,
		Available:      true,
		AvailableSeats: q.AvailableSeats,
		TotalSeats:     q.TotalSeats,
		Message:        fmt.Sprintf("%d seats available", q.AvailableSeats),
	}, nil
}

// quota reads through the cache; concurrent misses for one date share a
// single store lookup. A nil quota means the date has none.
func (s *QuotaService) quota(ctx context.Context, date string) (*domain.FlightQuota, error) {
	if s.cache != nil {
		cached, err := s.cache.GetQuota(ctx, date)
		switch {
		case err != nil:
			s.metrics.CacheLookup("error")
			s.log.Warnw("availability cache read failed", "date", date, "error", err)
		case cached != nil:
			s.metrics.CacheLookup("hit")
			return cached, nil
		default:
			s.metrics.CacheLookup("miss")
		}
	}

	v, err, _ := s.group.Do(date, func() (any, error) {
		q, err := s.quotas.GetByDate(ctx, date)
		if errors.Is(err, repository.ErrNotFound) {
			return (*domain.FlightQuota)(nil), nil
		}
		if err != nil {
			return nil, domain.Persistence("get quota", err)
		}
		if s.cache != nil {
			if err := s.cache.SetQuota(ctx, *q); err != nil {
				s.log.Warnw("availability cache write failed", "date", date, "error", err)
			}
		}
		return q, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.FlightQuota), nil
}

func (s *QuotaService) List(ctx context.Context, from, to string) ([]domain.FlightQuota, error) {
	start, err := domain.ParseDate(from)
	if err != nil {
		return nil, err
	}
	end, err := domain.ParseDate(to)
	if err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, domain.Validation("range end %s is before start %s", to, from)
	}
	if end.Sub(start).Hours()/24 >= maxRangeDays {
		return nil, domain.Validation("range may span at most %d days", maxRangeDays)
	}
	quotas, err := s.quotas.ListRange(ctx, from, to)
	if err != nil {
		return nil, domain.Persistence("list quotas", err)
	}
	return quotas, nil
}

func (s *QuotaService) ListBookings(ctx context.Context, q BookingQuery) ([]domain.Booking, error) {
	filter := repository.BookingFilter{Date: q.Date, Limit: q.Limit}
	if q.Date != "" {
		if _, err := domain.ParseDate(q.Date); err != nil {
			return nil, err
		}
	}
	switch domain.BookingStatus(q.Status) {
	case "":
	case domain.BookingStatusConfirmed, domain.BookingStatusCancelled:
		filter.Status = domain.BookingStatus(q.Status)
	default:
		return nil, domain.Validation("unknown booking status %q", q.Status)
	}
	if filter.Limit <= 0 || filter.Limit > defaultBookingPage {
		filter.Limit = defaultBookingPage
	}

	bookings, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, domain.Persistence("list bookings", err)
	}
	return bookings, nil
}

func (s *QuotaService) Summary(ctx context.Context) (Summary, error) {
	counts, totals, err := s.totals(ctx)
	if err != nil {
		return Summary{}, err
	}
	return Summary{
		TotalBookings:     counts.Total,
		ConfirmedBookings: counts.Confirmed,
		CancelledBookings: counts.Cancelled,
		TotalSeats:        totals.TotalSeats,
		AvailableSeats:    totals.AvailableSeats,
	}, nil
}

func (s *QuotaService) LiveStats(ctx context.Context) (LiveStats, error) {
	counts, totals, err := s.totals(ctx)
	if err != nil {
		return LiveStats{}, err
	}
	return LiveStats{
		TotalBookings:  counts.Total,
		Confirmed:      counts.Confirmed,
		TotalSeats:     totals.TotalSeats,
		AvailableSeats: totals.AvailableSeats,
	}, nil
}

func (s *QuotaService) totals(ctx context.Context) (repository.BookingCounts, repository.QuotaTotals, error) {
	var counts repository.BookingCounts
	var totals repository.QuotaTotals

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		counts, err = s.bookings.Counts(gctx, "")
		return err
	})
	g.Go(func() error {
		var err error
		totals, err = s.quotas.Totals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return counts, totals, domain.Persistence("load totals", err)
	}
	return counts, totals, nil
}

func (s *QuotaService) DateReport(ctx context.Context, date string) (DateReport, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return DateReport{}, err
	}
	counts, err := s.bookings.Counts(ctx, date)
	if err != nil {
		return DateReport{}, domain.Persistence("count bookings", err)
	}
	report := DateReport{
		Date:              date,
		TotalBookings:     counts.Total,
		ConfirmedBookings: counts.Confirmed,
		CancelledBookings: counts.Cancelled,
	}
	q, err := s.quotas.GetByDate(ctx, date)
	switch {
	case errors.Is(err, repository.ErrNotFound):
	case err != nil:
		return DateReport{}, domain.Persistence("get quota", err)
	default:
		report.Quota = q
	}
	return report, nil
}

var _ QuotaUseCase = (*QuotaService)(nil)
