package domain

import "time"

type BookingEventType string

const (
	EventBookingCreated   BookingEventType = "booking_created"
	EventBookingModified  BookingEventType = "booking_modified"
	EventBookingCancelled BookingEventType = "booking_cancelled"
)

// BookingEvent is the post-commit snapshot handed to the notification sink.
type BookingEvent struct {
	EventID       string           `json:"event_id"`
	Type          BookingEventType `json:"type"`
	TicketNumber  string           `json:"ticket_number"`
	Date          string           `json:"date"`
	PreviousDate  string           `json:"previous_date,omitempty"`
	PassengerName string           `json:"passenger_name"`
	From          string           `json:"from"`
	To            string           `json:"to"`
	Status        BookingStatus    `json:"status"`
	Channel       ContactKind      `json:"channel"`
	Recipient     string           `json:"recipient"`
	CancelledBy   Role             `json:"cancelled_by,omitempty"`
	OccurredAt    time.Time        `json:"occurred_at"`
}

// NeedsTicket reports whether the event should produce a ticket document.
func (e BookingEvent) NeedsTicket() bool {
	return e.Type == EventBookingCreated || e.Type == EventBookingModified
}
