package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels shared by the counters below.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
	OutcomeIgnored = "ignored"
	OutcomeInvalid = "invalid"
)

// PaymentMetrics records intent creation, webhook handling, store RPCs and
// HTTP traffic. A nil *PaymentMetrics is a valid no-op recorder.
type PaymentMetrics struct {
	intents      *prometheus.CounterVec
	webhooks     *prometheus.CounterVec
	storeCalls   *prometheus.HistogramVec
	httpRequests *prometheus.HistogramVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	intents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_intents_total",
		Help: "Payment intent create calls by outcome.",
	}, []string{"outcome"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "webhook_events_total",
		Help: "Processor webhook deliveries by event type and outcome.",
	}, []string{"event_type", "outcome"})
	storeCalls := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "store_rpc_duration_seconds",
		Help:    "Duration of transaction store RPCs in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"rpc", "outcome"})
	httpRequests := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route", "method", "status"})
	reg.MustRegister(intents, webhooks, storeCalls, httpRequests)
	return &PaymentMetrics{
		intents:      intents,
		webhooks:     webhooks,
		storeCalls:   storeCalls,
		httpRequests: httpRequests,
	}
}

// IncIntent counts one payment intent create attempt.
func (m *PaymentMetrics) IncIntent(outcome string) {
	if m == nil || m.intents == nil {
		return
	}
	m.intents.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncWebhook counts one webhook delivery.
func (m *PaymentMetrics) IncWebhook(eventType, outcome string) {
	if m == nil || m.webhooks == nil {
		return
	}
	m.webhooks.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

// ObserveStoreCall records the duration of a store RPC.
func (m *PaymentMetrics) ObserveStoreCall(rpc, outcome string, duration time.Duration) {
	if m == nil || m.storeCalls == nil {
		return
	}
	m.storeCalls.WithLabelValues(normalizeLabel(rpc), normalizeLabel(outcome)).Observe(duration.Seconds())
}

// ObserveRequest records the duration of a served HTTP request.
func (m *PaymentMetrics) ObserveRequest(route, method string, status int, duration time.Duration) {
	if m == nil || m.httpRequests == nil {
		return
	}
	m.httpRequests.WithLabelValues(normalizeLabel(route), method, strconv.Itoa(status)).Observe(duration.Seconds())
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
