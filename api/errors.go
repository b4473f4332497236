package api

import (
	"net/http"

	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/gin-gonic/gin"
)

type errorDetail struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return http.StatusBadRequest
	case domain.KindNotAuthenticated:
		return http.StatusUnauthorized
	case domain.KindNotAuthorized:
		return http.StatusForbidden
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindNoCapacity, domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusServiceUnavailable
	}
}

// respondError writes err as {"error":{"kind","message"}} and aborts the
// chain. Store failures are reported without their internals.
func respondError(c *gin.Context, err error) {
	kind := domain.KindOf(err)
	msg := err.Error()
	if kind == domain.KindPersistence {
		_ = c.Error(err)
		msg = "service temporarily unavailable, please retry"
	}
	c.AbortWithStatusJSON(statusFor(kind), errorResponse{Error: errorDetail{Kind: string(kind), Message: msg}})
}

func badRequest(c *gin.Context, msg string) {
	respondError(c, domain.Validation("%s", msg))
}
