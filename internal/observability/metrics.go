package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce             sync.Once
	apiRequestsTotal         *prometheus.CounterVec
	apiLatencySeconds        *prometheus.HistogramVec
	apiErrorsTotal           *prometheus.CounterVec
	checkoutSessionsTotal    *prometheus.CounterVec
	webhookEventsTotal       *prometheus.CounterVec
	paymentTransitionsTotal  *prometheus.CounterVec
	reportsCacheRequests     *prometheus.CounterVec
	paymentStreamClientsLive prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 15.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		checkoutSessionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_checkout_sessions_total",
			Help: "Checkout session attempts grouped by outcome.",
		}, []string{"outcome"})

		webhookEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_webhook_events_total",
			Help: "Provider webhook events grouped by type and outcome.",
		}, []string{"type", "outcome"})

		paymentTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "payments_status_transitions_total",
			Help: "Payment status transitions applied by the webhook receiver.",
		}, []string{"from", "to"})

		reportsCacheRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "reports_cache_requests_total",
			Help: "Reports overview cache lookups grouped by result.",
		}, []string{"result"})

		paymentStreamClientsLive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "payments_stream_clients_active",
			Help: "Number of websocket clients subscribed to payment status events.",
		})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			checkoutSessionsTotal,
			webhookEventsTotal,
			paymentTransitionsTotal,
			reportsCacheRequests,
			paymentStreamClientsLive,
		)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// CheckoutSessions exposes the checkout outcome counter.
func CheckoutSessions() *prometheus.CounterVec {
	RegisterMetrics()
	return checkoutSessionsTotal
}

// WebhookEvents exposes the webhook event counter.
func WebhookEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return webhookEventsTotal
}

// PaymentTransitions exposes the payment status transition counter.
func PaymentTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return paymentTransitionsTotal
}

// ReportsCacheRequests exposes the reports cache hit/miss counter.
func ReportsCacheRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return reportsCacheRequests
}

// PaymentStreamClients exposes the active websocket subscriber gauge.
func PaymentStreamClients() prometheus.Gauge {
	RegisterMetrics()
	return paymentStreamClientsLive
}
