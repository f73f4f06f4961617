// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "freelancehub"

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		},
		[]string{"method", "path", "status"},
	)

	// op: create_order, verify, release, refund, webhook
	PaymentOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "payment_operations_total",
			Help:      "Payment gateway operations by outcome",
		},
		[]string{"op", "status"},
	)

	EscrowSweepReleases = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escrow_sweep_releases_total",
			Help:      "Payments processed by the escrow sweep",
		},
		[]string{"result"}, // released, failed, skipped
	)

	EscrowSweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "escrow_sweep_duration_seconds",
			Help:      "Wall time of a full escrow sweep",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		},
	)

	WebsocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "websocket_connections",
			Help:      "Open chat websocket connections on this instance",
		},
	)

	NotificationsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_delivered_total",
			Help:      "Notifications delivered by channel",
		},
		[]string{"channel", "status"}, // channel: inapp, sse, ws, email, im
	)

	DomainEventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "domain_events_published_total",
			Help:      "Domain events handed to the event publisher",
		},
		[]string{"routing_key", "status"},
	)

	LLMCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "llm_call_latency_ms",
			Help:      "LLM provider call latency in milliseconds",
			Buckets:   prometheus.ExponentialBuckets(100, 2, 10), // 100ms to ~100s
		},
		[]string{"provider", "status"},
	)
)

// RegisterGaugeFunc exposes a value sampled at scrape time, e.g. SSE client counts.
func RegisterGaugeFunc(name, help string, fn func() float64) {
	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{Namespace: namespace, Name: name, Help: help},
		fn,
	))
}

func RecordHTTPRequestDuration(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncPayment(op string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	PaymentOperations.WithLabelValues(op, status).Inc()
}

func IncNotification(channel string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	NotificationsDelivered.WithLabelValues(channel, status).Inc()
}

func IncDomainEvent(routingKey string, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	DomainEventsPublished.WithLabelValues(routingKey, status).Inc()
}

func RecordLLMCallLatency(provider string, err error, duration time.Duration) {
	status := "success"
	if err != nil {
		status = "error"
	}
	LLMCallLatency.WithLabelValues(provider, status).Observe(float64(duration.Milliseconds()))
}
