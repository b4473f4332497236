package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/service/ledger"
	"github.com/Domenick1991/heliseats/internal/service/quotas"
	"github.com/gin-gonic/gin"
)

type AdminHandler struct {
	quotas   ledger.QuotaAdminUseCase
	bookings ledger.BookingUseCase
	reports  quotas.QuotaUseCase
}

type setQuotaRequest struct {
	SortieCount    int `json:"sortie_count"`
	SeatsPerSortie int `json:"seats_per_sortie"`
}

type setMonthlyQuotaRequest struct {
	Year           int `json:"year"`
	Month          int `json:"month"`
	SortieCount    int `json:"sortie_count"`
	SeatsPerSortie int `json:"seats_per_sortie"`
}

func NewAdminHandler(q ledger.QuotaAdminUseCase, b ledger.BookingUseCase, r quotas.QuotaUseCase) *AdminHandler {
	return &AdminHandler{quotas: q, bookings: b, reports: r}
}

func (h *AdminHandler) Register(router *gin.RouterGroup) {
	router.GET("/quotas", h.listQuotas)
	router.PUT("/quotas/monthly", h.setMonthlyQuota)
	router.PUT("/quotas/:date", h.setQuota)
	router.GET("/bookings", h.listBookings)
	router.DELETE("/bookings/:ticket", h.cancelBooking)
	router.GET("/reports/summary", h.summary)
	router.GET("/reports/date/:date", h.dateReport)
}

func (h *AdminHandler) setQuota(c *gin.Context) {
	var req setQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	quota, err := h.quotas.SetQuota(c.Request.Context(), principalFrom(c), c.Param("date"), req.SortieCount, req.SeatsPerSortie)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quota)
}

func (h *AdminHandler) setMonthlyQuota(c *gin.Context) {
	var req setMonthlyQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	res, err := h.quotas.SetMonthlyQuota(c.Request.Context(), principalFrom(c), req.Year, time.Month(req.Month), req.SortieCount, req.SeatsPerSortie)
	if err != nil {
		if res.DaysUpdated > 0 {
			kind := domain.KindOf(err)
			_ = c.Error(err)
			c.JSON(statusFor(kind), gin.H{
				"result": res,
				"error":  errorDetail{Kind: string(kind), Message: "monthly update stopped early"},
			})
			return
		}
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *AdminHandler) listQuotas(c *gin.Context) {
	list, err := h.reports.List(c.Request.Context(), c.Query("from"), c.Query("to"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) listBookings(c *gin.Context) {
	query := quotas.BookingQuery{Date: c.Query("date"), Status: c.Query("status")}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			badRequest(c, "limit must be a positive integer")
			return
		}
		query.Limit = limit
	}
	list, err := h.reports.ListBookings(c.Request.Context(), query)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

func (h *AdminHandler) cancelBooking(c *gin.Context) {
	out, err := h.bookings.CancelBooking(c.Request.Context(), principalFrom(c), ticketParam(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) summary(c *gin.Context) {
	summary, err := h.reports.Summary(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (h *AdminHandler) dateReport(c *gin.Context) {
	report, err := h.reports.DateReport(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
