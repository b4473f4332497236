package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/repository"
)

var errTicketsExhausted = errors.New("could not allocate a unique ticket number")

// TicketGenerator returns a candidate ticket number in HC-NNNNNN form.
type TicketGenerator func() string

func RandomTickets() string {
	return fmt.Sprintf("%s%06d", domain.TicketPrefix, 100000+rand.IntN(900000))
}

// ticketBudget is shared by every attempt of one CreateBooking call.
type ticketBudget struct {
	left int
}

func (b *ticketBudget) take() bool {
	if b.left <= 0 {
		return false
	}
	b.left--
	return true
}

func (l *SeatLedger) allocateTicket(ctx context.Context, tx repository.Tx, budget *ticketBudget) (string, error) {
	for budget.take() {
		ticket := l.tickets()
		exists, err := tx.TicketExists(ctx, ticket)
		if err != nil {
			return "", domain.Persistence("check ticket number", err)
		}
		if !exists {
			return ticket, nil
		}
	}
	return "", domain.Persistence("allocate ticket number", errTicketsExhausted)
}
