package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns the service's Prometheus collectors. A nil *Metrics is a no-op.
type Metrics struct {
	registry        *prometheus.Registry
	requestTotal    *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorTotal      *prometheus.CounterVec
	autoClosed      prometheus.Counter
	webhookEvents   *prometheus.CounterVec
	externalCalls   *prometheus.CounterVec
	emailsSent      prometheus.Counter
}

// NewMetrics registers collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		requestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path"}),
		errorTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "HTTP errors by domain error code",
		}, []string{"method", "path", "code"}),
		autoClosed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_auto_closed_tickets_total",
			Help: "Tickets closed by the pending validation sweep",
		}),
		webhookEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_webhook_events_total",
			Help: "Inbound webhook events by reconciliation action",
		}, []string{"action"}),
		externalCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_external_calls_total",
			Help: "Outbound external API calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		emailsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_emails_sent_total",
			Help: "Transactional emails delivered to the mail server",
		}),
	}
	registry.MustRegister(
		m.requestTotal,
		m.requestDuration,
		m.errorTotal,
		m.autoClosed,
		m.webhookEvents,
		m.externalCalls,
		m.emailsSent,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorTotal.WithLabelValues(method, path, code).Inc()
}

// RecordAutoClosed counts tickets closed by one sweep.
func (m *Metrics) RecordAutoClosed(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.autoClosed.Add(float64(n))
}

// RecordWebhook counts an inbound webhook by outcome.
func (m *Metrics) RecordWebhook(action string) {
	if m == nil {
		return
	}
	m.webhookEvents.WithLabelValues(action).Inc()
}

// RecordExternalCall counts an outbound call.
func (m *Metrics) RecordExternalCall(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.externalCalls.WithLabelValues(operation, outcome).Inc()
}

// RecordEmailSent counts delivered emails.
func (m *Metrics) RecordEmailSent() {
	if m == nil {
		return
	}
	m.emailsSent.Inc()
}
