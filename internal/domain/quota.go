package domain

import (
	"math"
	"time"
)

// MaxTotalSeats bounds sortieCount*seatsPerSortie for one date.
const MaxTotalSeats = math.MaxInt32

// FlightQuota is the seat capacity for one flight date.
type FlightQuota struct {
	Date           string    `json:"date"`
	SortieCount    int       `json:"sortie_count"`
	SeatsPerSortie int       `json:"seats_per_sortie"`
	TotalSeats     int       `json:"total_seats"`
	BookedSeats    int       `json:"booked_seats"`
	AvailableSeats int       `json:"available_seats"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func NewFlightQuota(date string, sortieCount, seatsPerSortie int) *FlightQuota {
	q := &FlightQuota{Date: date}
	q.SetCapacity(sortieCount, seatsPerSortie)
	return q
}

// Recompute derives TotalSeats and AvailableSeats from the capacity inputs
// and BookedSeats. Every write path calls it before persisting.
func (q *FlightQuota) Recompute() {
	q.TotalSeats = q.SortieCount * q.SeatsPerSortie
	q.AvailableSeats = q.TotalSeats - q.BookedSeats
}

func (q *FlightQuota) SetCapacity(sortieCount, seatsPerSortie int) {
	q.SortieCount = sortieCount
	q.SeatsPerSortie = seatsPerSortie
	q.Recompute()
}

func (q *FlightQuota) HasCapacity() bool { return q.AvailableSeats > 0 }

func (q *FlightQuota) Reserve() {
	q.BookedSeats++
	q.Recompute()
}

// Release frees one seat; BookedSeats never drops below zero.
func (q *FlightQuota) Release() {
	if q.BookedSeats > 0 {
		q.BookedSeats--
	}
	q.Recompute()
}

// Consistent reports whether the stored counters satisfy the quota invariant.
func (q FlightQuota) Consistent() bool {
	return q.BookedSeats >= 0 &&
		q.BookedSeats <= q.TotalSeats &&
		q.TotalSeats == q.SortieCount*q.SeatsPerSortie &&
		q.AvailableSeats == q.TotalSeats-q.BookedSeats
}
