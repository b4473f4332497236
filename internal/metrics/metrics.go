package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "heliseats"

// Registry holds the service metrics. A nil *Registry is valid and records
// nothing.
type Registry struct {
	LedgerOps           *prometheus.CounterVec
	LedgerDuration      *prometheus.HistogramVec
	NotificationsQueued *prometheus.CounterVec
	NotificationsFailed *prometheus.CounterVec
	TicketsDelivered    *prometheus.CounterVec
	AuditDropped        prometheus.Counter
	CacheLookups        *prometheus.CounterVec
	HTTPRequests        *prometheus.CounterVec
	HTTPDuration        *prometheus.HistogramVec
}

func New(reg prometheus.Registerer) *Registry {
	f := promauto.With(reg)
	return &Registry{
		LedgerOps: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_operations_total",
			Help:      "Seat ledger operations by operation and outcome kind",
		}, []string{"operation", "outcome"}),
		LedgerDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ledger_operation_duration_seconds",
			Help:      "Seat ledger operation latency in seconds",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"operation"}),
		NotificationsQueued: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_queued_total",
			Help:      "Booking events accepted by the notification dispatcher",
		}, []string{"type"}),
		NotificationsFailed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_failed_total",
			Help:      "Booking events that could not be queued or published",
		}, []string{"stage"}),
		TicketsDelivered: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tickets_delivered_total",
			Help:      "Ticket documents rendered and dispatched by channel",
		}, []string{"channel", "outcome"}),
		AuditDropped: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "audit_entries_dropped_total",
			Help:      "Audit entries dropped because the sink was full or failing",
		}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "quota_cache_lookups_total",
			Help:      "Availability cache lookups by result",
		}, []string{"result"}),
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route, method and status code",
		}, []string{"route", "method", "status_code"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"route", "method"}),
	}
}

func (r *Registry) ObserveLedger(op, outcome string, seconds float64) {
	if r == nil {
		return
	}
	r.LedgerOps.WithLabelValues(op, outcome).Inc()
	r.LedgerDuration.WithLabelValues(op).Observe(seconds)
}

func (r *Registry) NotificationQueued(eventType string) {
	if r == nil {
		return
	}
	r.NotificationsQueued.WithLabelValues(eventType).Inc()
}

func (r *Registry) NotificationFailed(stage string) {
	if r == nil {
		return
	}
	r.NotificationsFailed.WithLabelValues(stage).Inc()
}

func (r *Registry) TicketDelivered(channel, outcome string) {
	if r == nil {
		return
	}
	r.TicketsDelivered.WithLabelValues(channel, outcome).Inc()
}

func (r *Registry) AuditDrop() {
	if r == nil {
		return
	}
	r.AuditDropped.Inc()
}

func (r *Registry) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.CacheLookups.WithLabelValues(result).Inc()
}

func (r *Registry) ObserveHTTP(route, method, status string, seconds float64) {
	if r == nil {
		return
	}
	r.HTTPRequests.WithLabelValues(route, method, status).Inc()
	r.HTTPDuration.WithLabelValues(route, method).Observe(seconds)
}
