package api

import (
	"net/http"
	"strings"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/service/ledger"
	"github.com/gin-gonic/gin"
)

// TicketRenderer produces the ticket document for a booking.
type TicketRenderer interface {
	Render(event domain.BookingEvent) (string, []byte, error)
}

// BookingHandler serves the passenger booking routes.
type BookingHandler struct {
	service ledger.BookingUseCase
	tickets TicketRenderer
}

type createBookingRequest struct {
	PassengerName          string                  `json:"passenger_name"`
	Age                    int                     `json:"age"`
	Phone                  string                  `json:"phone"`
	Email                  string                  `json:"email"`
	Address                string                  `json:"address"`
	Date                   string                  `json:"date"`
	From                   string                  `json:"from"`
	To                     string                  `json:"to"`
	IDType                 string                  `json:"id_type"`
	IDNumber               string                  `json:"id_number"`
	IDDocumentPath         string                  `json:"id_document_path"`
	SupportingDocumentPath string                  `json:"supporting_document_path"`
	Emergency              domain.EmergencyContact `json:"emergency_contact"`
}

type modifyBookingRequest struct {
	NewDate string `json:"new_date"`
	Phone   string `json:"phone"`
	Email   string `json:"email"`
}

func NewBookingHandler(service ledger.BookingUseCase, tickets TicketRenderer) *BookingHandler {
	return &BookingHandler{service: service, tickets: tickets}
}

// Register mounts the routes. create may carry extra middleware such as a
// rate limiter.
func (h *BookingHandler) Register(router *gin.RouterGroup, create ...gin.HandlerFunc) {
	router.POST("", append(create, h.create)...)
	router.GET("/:ticket", h.get)
	router.PATCH("/:ticket", h.modify)
	router.DELETE("/:ticket", h.cancel)
	if h.tickets != nil {
		router.GET("/:ticket/document", h.document)
	}
}

func (h *BookingHandler) create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	out, err := h.service.CreateBooking(c.Request.Context(), principalFrom(c), ledger.CreateBookingInput{
		PassengerName:          req.PassengerName,
		Age:                    req.Age,
		Phone:                  req.Phone,
		Email:                  req.Email,
		Address:                req.Address,
		Date:                   req.Date,
		From:                   req.From,
		To:                     req.To,
		IDType:                 req.IDType,
		IDNumber:               req.IDNumber,
		IDDocumentPath:         req.IDDocumentPath,
		SupportingDocumentPath: req.SupportingDocumentPath,
		Emergency:              req.Emergency,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, out)
}

func (h *BookingHandler) get(c *gin.Context) {
	booking, err := h.service.GetBooking(c.Request.Context(), principalFrom(c), ticketParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

func (h *BookingHandler) modify(c *gin.Context) {
	var req modifyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}

	out, err := h.service.ModifyBooking(c.Request.Context(), principalFrom(c), ticketParam(c), ledger.ModifyBookingInput{
		NewDate: req.NewDate,
		Phone:   req.Phone,
		Email:   req.Email,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *BookingHandler) cancel(c *gin.Context) {
	out, err := h.service.CancelBooking(c.Request.Context(), principalFrom(c), ticketParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// document re-renders the ticket on demand, so a lost or never delivered
// file can always be fetched again.
func (h *BookingHandler) document(c *gin.Context) {
	booking, err := h.service.GetBooking(c.Request.Context(), principalFrom(c), ticketParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	if !booking.Active() {
		respondError(c, domain.NotFound("no active booking "+booking.TicketNumber))
		return
	}

	channel := booking.DeliveryChannel()
	_, body, err := h.tickets.Render(domain.BookingEvent{
		Type:          domain.EventBookingModified,
		TicketNumber:  booking.TicketNumber,
		Date:          booking.Date,
		PassengerName: booking.PassengerName,
		From:          booking.From,
		To:            booking.To,
		Status:        booking.Status,
		Channel:       channel.Kind,
		Recipient:     channel.Value,
		OccurredAt:    booking.UpdatedAt,
	})
	if err != nil {
		respondError(c, domain.Persistence("render ticket", err))
		return
	}
	c.Header("Content-Disposition", `attachment; filename="Ticket-`+booking.TicketNumber+`.txt"`)
	c.Data(http.StatusOK, "text/plain; charset=utf-8", body)
}

func ticketParam(c *gin.Context) string {
	return strings.ToUpper(strings.TrimSpace(c.Param("ticket")))
}
