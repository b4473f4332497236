package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/repository"
)

// CreateBooking reserves one seat on in.Date for the calling passenger.
func (l *SeatLedger) CreateBooking(ctx context.Context, p domain.Principal, in CreateBookingInput) (out Outcome, err error) {
	defer func(start time.Time) { l.observe("create_booking", start, err) }(time.Now())

	if p.IsAdmin() {
		return Outcome{}, domain.NotAuthorized("bookings are created by passengers")
	}
	if !p.IsPassenger() {
		return Outcome{}, domain.NotAuthenticated("passenger identity required")
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return Outcome{}, err
	}

	budget := &ticketBudget{left: l.ticketAttempts}
	var booking *domain.Booking
	var snapshot domain.FlightQuota
	for {
		booking = nil
		err = l.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			quota, err := lockQuota(ctx, tx, in.Date)
			if err != nil {
				return err
			}
			if quota == nil || !quota.HasCapacity() {
				return domain.NoCapacity(in.Date)
			}

			ticket, err := l.allocateTicket(ctx, tx, budget)
			if err != nil {
				return err
			}
			b := in.booking(ticket, p.Contact)
			if err := tx.InsertBooking(ctx, b); err != nil {
				return err
			}
			quota.Reserve()
			if err := tx.UpdateQuota(ctx, quota); err != nil {
				return domain.Persistence("update quota", err)
			}
			booking = b
			snapshot = *quota
			return nil
		})
		// Another request committed the same ticket number first.
		if errors.Is(err, repository.ErrDuplicateTicket) && budget.left > 0 {
			l.log.Debugw("ticket number collision, retrying", "date", in.Date)
			continue
		}
		break
	}
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateTicket) {
			return Outcome{}, domain.Persistence("allocate ticket number", errTicketsExhausted)
		}
		return Outcome{}, domain.Persistence("create booking", err)
	}

	ctx = afterCommit(ctx)
	l.refresh(ctx, booking.Date, &snapshot)
	l.audit(ctx, p, domain.AuditBook, map[string]any{
		"ticket_number": booking.TicketNumber,
		"date":          booking.Date,
	})
	out = Outcome{Booking: booking, Degraded: !l.notify(ctx, domain.EventBookingCreated, booking, "")}
	l.log.Infow("booking created",
		"ticket_number", booking.TicketNumber,
		"date", booking.Date,
		"degraded", out.Degraded)
	return out, nil
}

// ModifyBooking moves a confirmed booking to another date and/or updates
// its contact fields. Only the owning passenger may modify a booking.
func (l *SeatLedger) ModifyBooking(ctx context.Context, p domain.Principal, ticket string, in ModifyBookingInput) (out Outcome, err error) {
	defer func(start time.Time) { l.observe("modify_booking", start, err) }(time.Now())

	if p.IsAdmin() {
		return Outcome{}, domain.NotAuthorized("bookings are modified by their owner")
	}
	if !p.IsPassenger() {
		return Outcome{}, domain.NotAuthenticated("passenger identity required")
	}
	if err := validateTicket(ticket); err != nil {
		return Outcome{}, err
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return Outcome{}, err
	}

	var booking *domain.Booking
	var previousDate string
	var origin, destination *domain.FlightQuota
	changed := false
	err = l.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := lockBooking(ctx, tx, ticket)
		if err != nil {
			return err
		}
		if !b.OwnedBy(p.Contact) {
			return domain.NotAuthorized("booking belongs to another passenger")
		}
		if !b.Active() {
			return domain.NotFound("no active booking " + ticket)
		}

		if in.NewDate != "" && in.NewDate != b.Date {
			from, to, err := l.moveSeat(ctx, tx, b.Date, in.NewDate)
			if err != nil {
				return err
			}
			origin, destination = from, to
			previousDate = b.Date
			b.Date = in.NewDate
		}
		contactChanged := false
		if in.Phone != "" && in.Phone != b.Phone {
			b.Phone = in.Phone
			contactChanged = true
		}
		if in.Email != "" && in.Email != b.Email {
			b.Email = in.Email
			contactChanged = true
		}
		booking = b
		changed = previousDate != "" || contactChanged
		if !changed {
			return nil
		}
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return domain.Persistence("update booking", err)
		}
		return nil
	})
	if err != nil {
		return Outcome{}, domain.Persistence("modify booking", err)
	}
	if !changed {
		return Outcome{Booking: booking}, nil
	}

	ctx = afterCommit(ctx)
	if previousDate != "" {
		l.refresh(ctx, previousDate, origin)
		l.refresh(ctx, booking.Date, destination)
	}
	l.audit(ctx, p, domain.AuditModify, map[string]any{
		"ticket_number": booking.TicketNumber,
		"date":          booking.Date,
		"previous_date": previousDate,
	})
	out = Outcome{Booking: booking, Degraded: !l.notify(ctx, domain.EventBookingModified, booking, previousDate)}
	l.log.Infow("booking modified",
		"ticket_number", booking.TicketNumber,
		"date", booking.Date,
		"previous_date", previousDate,
		"degraded", out.Degraded)
	return out, nil
}

// moveSeat transfers one booked seat from origin to destination. Both quota
// rows are locked in ascending date order before either is checked. The
// origin snapshot is nil when that date has no quota row.
func (l *SeatLedger) moveSeat(ctx context.Context, tx repository.Tx, origin, destination string) (from, to *domain.FlightQuota, err error) {
	first, second := origin, destination
	if dateLess(destination, origin) {
		first, second = destination, origin
	}
	locked := make(map[string]*domain.FlightQuota, 2)
	for _, date := range []string{first, second} {
		q, err := lockQuota(ctx, tx, date)
		if err != nil {
			return nil, nil, err
		}
		locked[date] = q
	}

	to = locked[destination]
	if to == nil || !to.HasCapacity() {
		return nil, nil, domain.NoCapacity(destination)
	}
	to.Reserve()
	if err := tx.UpdateQuota(ctx, to); err != nil {
		return nil, nil, domain.Persistence("update quota", err)
	}
	if from = locked[origin]; from != nil {
		from.Release()
		if err := tx.UpdateQuota(ctx, from); err != nil {
			return nil, nil, domain.Persistence("update quota", err)
		}
	}
	return from, to, nil
}

// CancelBooking releases the seat held by ticket. Passengers may cancel
// only their own bookings; admins may cancel any. Cancelling twice is a
// no-op.
func (l *SeatLedger) CancelBooking(ctx context.Context, p domain.Principal, ticket string) (out Outcome, err error) {
	defer func(start time.Time) { l.observe("cancel_booking", start, err) }(time.Now())

	if !p.IsAdmin() && !p.IsPassenger() {
		return Outcome{}, domain.NotAuthenticated("caller identity required")
	}
	if err := validateTicket(ticket); err != nil {
		return Outcome{}, err
	}

	var booking *domain.Booking
	var snapshot *domain.FlightQuota
	changed := false
	err = l.store.WithinTx(ctx, func(ctx context.Context, tx repository.Tx) error {
		b, err := lockBooking(ctx, tx, ticket)
		if err != nil {
			return err
		}
		if p.IsPassenger() && !b.OwnedBy(p.Contact) {
			return domain.NotAuthorized("booking belongs to another passenger")
		}
		booking = b
		if !b.Active() {
			return nil
		}

		b.Status = domain.BookingStatusCancelled
		b.CancelledBy = p.Role
		if err := tx.UpdateBooking(ctx, b); err != nil {
			return domain.Persistence("update booking", err)
		}
		quota, err := lockQuota(ctx, tx, b.Date)
		if err != nil {
			return err
		}
		if quota != nil {
			quota.Release()
			if err := tx.UpdateQuota(ctx, quota); err != nil {
				return domain.Persistence("update quota", err)
			}
			snapshot = quota
		} else {
			l.log.Warnw("cancelled booking has no quota row", "ticket_number", ticket, "date", b.Date)
		}
		changed = true
		return nil
	})
	if err != nil {
		return Outcome{}, domain.Persistence("cancel booking", err)
	}
	if !changed {
		return Outcome{Booking: booking}, nil
	}

	ctx = afterCommit(ctx)
	l.refresh(ctx, booking.Date, snapshot)
	l.audit(ctx, p, domain.AuditCancel, map[string]any{
		"ticket_number": booking.TicketNumber,
		"date":          booking.Date,
		"cancelled_by":  booking.CancelledBy,
	})
	out = Outcome{Booking: booking, Degraded: !l.notify(ctx, domain.EventBookingCancelled, booking, "")}
	l.log.Infow("booking cancelled",
		"ticket_number", booking.TicketNumber,
		"date", booking.Date,
		"cancelled_by", booking.CancelledBy)
	return out, nil
}

// GetBooking returns a booking visible to p. Passengers see only their own.
func (l *SeatLedger) GetBooking(ctx context.Context, p domain.Principal, ticket string) (*domain.Booking, error) {
	if !p.IsAdmin() && !p.IsPassenger() {
		return nil, domain.NotAuthenticated("caller identity required")
	}
	if err := validateTicket(ticket); err != nil {
		return nil, err
	}
	b, err := l.store.Bookings().GetByTicket(ctx, ticket)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NotFound("booking not found")
	}
	if err != nil {
		return nil, domain.Persistence("get booking", err)
	}
	if p.IsPassenger() && !b.OwnedBy(p.Contact) {
		return nil, domain.NotFound("booking not found")
	}
	return b, nil
}

func lockQuota(ctx context.Context, tx repository.Tx, date string) (*domain.FlightQuota, error) {
	q, err := tx.LockQuota(ctx, date)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Persistence("lock quota", err)
	}
	return q, nil
}

func lockBooking(ctx context.Context, tx repository.Tx, ticket string) (*domain.Booking, error) {
	b, err := tx.LockBooking(ctx, ticket)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, domain.NotFound("booking " + ticket + " not found")
	}
	if err != nil {
		return nil, domain.Persistence("lock booking", err)
	}
	return b, nil
}

// dateLess compares canonical dates on the calendar.
func dateLess(a, b string) bool {
	ta, errA := domain.ParseDate(a)
	tb, errB := domain.ParseDate(b)
	if errA != nil || errB != nil {
		return a < b
	}
	return ta.Before(tb)
}
