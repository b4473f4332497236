package api

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Domenick1991/heliseats/internal/audit"
	"github.com/Domenick1991/heliseats/internal/domain"
	"github.com/Domenick1991/heliseats/internal/metrics"
	"github.com/Domenick1991/heliseats/internal/service/ledger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	requestIDHeader = "X-Request-ID"
	requestIDKey    = "request_id"
	principalKey    = "principal"
)

// TokenVerifier turns a bearer token into a principal of the given role.
type TokenVerifier interface {
	Verify(raw string, role domain.Role) (domain.Principal, error)
}

func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(requestIDKey, id)
		c.Header(requestIDHeader, id)
		c.Next()
	}
}

// ClientContext makes the caller's address visible to the audit sink.
func ClientContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := audit.WithClient(c.Request.Context(), c.ClientIP(), c.Request.UserAgent())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func RequestLogger(log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		fields := []any{
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
			"request_id", c.GetString(requestIDKey),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, "errors", c.Errors.String())
		}
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			log.Errorw("request failed", fields...)
		case c.Writer.Status() >= http.StatusBadRequest:
			log.Warnw("request rejected", fields...)
		default:
			log.Infow("request handled", fields...)
		}
	}
}

func Instrument(m *metrics.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.ObserveHTTP(route, c.Request.Method, strconv.Itoa(c.Writer.Status()), time.Since(start).Seconds())
	}
}

// Authenticate admits only requests bearing a valid token for role.
// Rejections are audited.
func Authenticate(verifier TokenVerifier, role domain.Role, auditor ledger.Auditor) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.GetHeader("Authorization"))
		principal, err := verifier.Verify(raw, role)
		if err != nil {
			if auditor != nil {
				auditor.Record(c.Request.Context(), domain.AuditEntry{
					ActorType: role,
					Action:    domain.AuditAuthRejected,
					Details: map[string]any{
						"path":   c.Request.URL.Path,
						"reason": err.Error(),
					},
				})
			}
			respondError(c, err)
			return
		}
		c.Set(principalKey, principal)
		c.Next()
	}
}

func bearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func principalFrom(c *gin.Context) domain.Principal {
	if v, ok := c.Get(principalKey); ok {
		if p, ok := v.(domain.Principal); ok {
			return p
		}
	}
	return domain.Principal{}
}

// RateLimiter hands out a token bucket per client IP. Idle buckets expire.
type RateLimiter struct {
	limit    rate.Limit
	burst    int
	limiters *gocache.Cache
}

func NewRateLimiter(perMinute, burst int) *RateLimiter {
	return &RateLimiter{
		limit:    rate.Limit(float64(perMinute) / 60),
		burst:    burst,
		limiters: gocache.New(10*time.Minute, 20*time.Minute),
	}
}

func (r *RateLimiter) limiter(ip string) *rate.Limiter {
	if v, ok := r.limiters.Get(ip); ok {
		return v.(*rate.Limiter)
	}
	l := rate.NewLimiter(r.limit, r.burst)
	if err := r.limiters.Add(ip, l, gocache.DefaultExpiration); err != nil {
		// lost the race to another request from the same IP
		if v, ok := r.limiters.Get(ip); ok {
			return v.(*rate.Limiter)
		}
	}
	return l
}

func (r *RateLimiter) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !r.limiter(c.ClientIP()).Allow() {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, errorResponse{Error: errorDetail{
				Kind:    "rate_limited",
				Message: "too many booking requests, slow down",
			}})
			return
		}
		c.Next()
	}
}
