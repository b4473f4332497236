package api

import (
	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"github.com/Domenick1991/heliseats/internal/service/ledger"
	"github.com/Domenick1991/heliseats/internal/service/quotas"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Log      *zap.SugaredLogger
	Metrics  *metrics.Registry
	Verifier TokenVerifier
	Auditor  ledger.Auditor
	Bookings ledger.BookingUseCase
	Quotas   ledger.QuotaAdminUseCase
	Reports  quotas.QuotaUseCase
	Tickets  TicketRenderer
	Limiter  *RateLimiter
}

// NewRouter wires the /api/v1 routes onto a fresh engine.
func NewRouter(d RouterDeps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), ClientContext(), Instrument(d.Metrics))
	if d.Log != nil {
		router.Use(RequestLogger(d.Log))
	}

	v1 := router.Group("/api/v1")
	NewPublicHandler(d.Reports).Register(v1)

	var createMW []gin.HandlerFunc
	if d.Limiter != nil {
		createMW = append(createMW, d.Limiter.Middleware())
	}
	passenger := v1.Group("/passenger/bookings", Authenticate(d.Verifier, domain.RolePassenger, d.Auditor))
	NewBookingHandler(d.Bookings, d.Tickets).Register(passenger, createMW...)

	admin := v1.Group("/admin", Authenticate(d.Verifier, domain.RoleAdmin, d.Auditor))
	NewAdminHandler(d.Quotas, d.Bookings, d.Reports).Register(admin)

	return router
}
