package domain

import (
	"regexp"
	"time"
)

type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
)

// TicketPrefix precedes the six digits of every ticket number.
const TicketPrefix = "HC-"

var ticketPattern = regexp.MustCompile(`^HC-\d{6}$`)

func ValidTicketNumber(s string) bool { return ticketPattern.MatchString(s) }

type EmergencyContact struct {
	Name     string `json:"name,omitempty"`
	Relation string `json:"relation,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type Booking struct {
	TicketNumber           string           `json:"ticket_number"`
	Owner                  Contact          `json:"owner"`
	Date                   string           `json:"date"`
	Status                 BookingStatus    `json:"status"`
	CancelledBy            Role             `json:"cancelled_by,omitempty"`
	PassengerName          string           `json:"passenger_name"`
	Age                    int              `json:"age,omitempty"`
	Phone                  string           `json:"phone,omitempty"`
	Email                  string           `json:"email,omitempty"`
	Address                string           `json:"address,omitempty"`
	From                   string           `json:"from"`
	To                     string           `json:"to"`
	IDType                 string           `json:"id_type,omitempty"`
	IDNumber               string           `json:"id_number,omitempty"`
	IDDocumentPath         string           `json:"id_document_path,omitempty"`
	SupportingDocumentPath string           `json:"supporting_document_path,omitempty"`
	Emergency              EmergencyContact `json:"emergency_contact"`
	CreatedAt              time.Time        `json:"created_at"`
	UpdatedAt              time.Time        `json:"updated_at"`
}

func (b *Booking) Active() bool { return b.Status == BookingStatusConfirmed }

func (b *Booking) OwnedBy(c Contact) bool { return b.Owner.Equal(c) }

// DeliveryChannel picks where ticket documents go: the booking email when
// one was given, otherwise the owner's verified contact.
func (b *Booking) DeliveryChannel() Contact {
	if b.Email != "" {
		return Contact{Kind: ContactEmail, Value: b.Email}
	}
	return b.Owner
}
