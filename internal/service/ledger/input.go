package ledger

import (
	"strings"

	"github.com/Domenick1991/heliseats/internal/domain"
)

type CreateBookingInput struct {
	PassengerName          string                  `json:"passenger_name"`
	Age                    int                     `json:"age,omitempty"`
	Phone                  string                  `json:"phone,omitempty"`
	Email                  string                  `json:"email,omitempty"`
	Address                string                  `json:"address,omitempty"`
	Date                   string                  `json:"date"`
	From                   string                  `json:"from"`
	To                     string                  `json:"to"`
	IDType                 string                  `json:"id_type,omitempty"`
	IDNumber               string                  `json:"id_number,omitempty"`
	IDDocumentPath         string                  `json:"id_document_path,omitempty"`
	SupportingDocumentPath string                  `json:"supporting_document_path,omitempty"`
	Emergency              domain.EmergencyContact `json:"emergency_contact"`
}

func (in *CreateBookingInput) normalize() {
	in.PassengerName = strings.TrimSpace(in.PassengerName)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Date = strings.TrimSpace(in.Date)
	in.From = strings.TrimSpace(in.From)
	in.To = strings.TrimSpace(in.To)
}

func (in CreateBookingInput) validate() error {
	switch {
	case in.PassengerName == "":
		return domain.Validation("passenger name is required")
	case in.Date == "":
		return domain.Validation("date is required")
	case in.From == "" || in.To == "":
		return domain.Validation("from and to are required")
	}
	if _, err := domain.ParseDate(in.Date); err != nil {
		return err
	}
	if in.Phone != "" && !domain.ValidPhone(in.Phone) {
		return domain.Validation("invalid phone number")
	}
	if in.Email != "" && !domain.ValidEmail(in.Email) {
		return domain.Validation("invalid email address")
	}
	if in.Age != 0 && (in.Age < 1 || in.Age > 120) {
		return domain.Validation("age must be between 1 and 120")
	}
	return nil
}

func (in CreateBookingInput) booking(ticket string, owner domain.Contact) *domain.Booking {
	return &domain.Booking{
		TicketNumber:           ticket,
		Owner:                  owner,
		Date:                   in.Date,
		Status:                 domain.BookingStatusConfirmed,
		PassengerName:          in.PassengerName,
		Age:                    in.Age,
		Phone:                  in.Phone,
		Email:                  in.Email,
		Address:                in.Address,
		From:                   in.From,
		To:                     in.To,
		IDType:                 in.IDType,
		IDNumber:               in.IDNumber,
		IDDocumentPath:         in.IDDocumentPath,
		SupportingDocumentPath: in.SupportingDocumentPath,
		Emergency:              in.Emergency,
	}
}

// ModifyBookingInput leaves a field untouched when it is empty.
type ModifyBookingInput struct {
	NewDate string `json:"new_date,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
}

func (in *ModifyBookingInput) normalize() {
	in.NewDate = strings.TrimSpace(in.NewDate)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
}

func (in ModifyBookingInput) validate() error {
	if in.Phone != "" && !domain.ValidPhone(in.Phone) {
		return domain.Validation("invalid phone number")
	}
	if in.Email != "" && !domain.ValidEmail(in.Email) {
		return domain.Validation("invalid email address")
	}
	if in.NewDate != "" {
		if _, err := domain.ParseDate(in.NewDate); err != nil {
			return err
		}
	}
	return nil
}

func validateTicket(ticket string) error {
	if !domain.ValidTicketNumber(ticket) {
		return domain.Validation("invalid ticket number")
	}
	return nil
}

func validateCapacity(date string, sortieCount, seatsPerSortie int) error {
	if _, err := domain.ParseDate(date); err != nil {
		return err
	}
	return validateSeats(sortieCount, seatsPerSortie)
}

// validateSeats keeps the product within the INT columns of flight_quotas.
func validateSeats(sortieCount, seatsPerSortie int) error {
	if sortieCount <= 0 || seatsPerSortie <= 0 {
		return domain.Validation("sortie count and seats per sortie must be positive")
	}
	if sortieCount > domain.MaxTotalSeats/seatsPerSortie {
		return domain.Validation("total seats may not exceed %d", domain.MaxTotalSeats)
	}
	return nil
}
