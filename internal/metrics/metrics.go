// Package metrics holds the Prometheus collectors of the API.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Settlement outcomes.
const (
	OutcomeCredited       = "credited"
	OutcomeDuplicate      = "duplicate"
	OutcomeRecorded       = "recorded"
	OutcomeProjectMissing = "project_missing"
)

// Metrics methods are safe on a nil receiver so services can run without it.
type Metrics struct {
	gatherer prometheus.Gatherer

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	checkoutSessions *prometheus.CounterVec
	settlements      *prometheus.CounterVec
	webhookEvents    *prometheus.CounterVec
}

// New registers the collectors on a fresh registry together with the Go and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: g,
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: "together_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "together_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route"}),
		checkoutSessions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "together_checkout_sessions_total",
			Help: "Checkout sessions requested from the payment provider.",
		}, []string{"result"}),
		settlements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "together_settlements_total",
			Help: "Settlement attempts by source and outcome.",
		}, []string{"source", "outcome"}),
		webhookEvents: f.NewCounterVec(prometheus.CounterOpts{
			Name: "together_webhook_events_total",
			Help: "Provider webhook deliveries by normalized type and result.",
		}, []string{"type", "result"}),
	}
}

func (m *Metrics) ObserveHTTP(method, route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	if route == "" {
		route = "unmatched"
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func (m *Metrics) CheckoutSession(result string) {
	if m == nil {
		return
	}
	m.checkoutSessions.WithLabelValues(result).Inc()
}

func (m *Metrics) Settlement(source, outcome string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(source, outcome).Inc()
}

func (m *Metrics) WebhookEvent(eventType, result string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(eventType, result).Inc()
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
