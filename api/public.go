package api

import (
	"net/http"

	"github.com/Domenick1991/heliseats/internal/service/quotas"
	"github.com/gin-gonic/gin"
)

// PublicHandler serves unauthenticated read-only routes.
type PublicHandler struct {
	service quotas.QuotaUseCase
}

func NewPublicHandler(service quotas.QuotaUseCase) *PublicHandler {
	return &PublicHandler{service: service}
}

func (h *PublicHandler) Register(router *gin.RouterGroup) {
	router.GET("/availability/:date", h.availability)
	router.GET("/stats/live", h.liveStats)
}

func (h *PublicHandler) availability(c *gin.Context) {
	res, err := h.service.Availability(c.Request.Context(), c.Param("date"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PublicHandler) liveStats(c *gin.Context) {
	stats, err := h.service.LiveStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
