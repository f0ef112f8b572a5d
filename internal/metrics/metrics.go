// Package metrics defines the Prometheus metrics exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Webhook metrics
	WebhookDurationSeconds *prometheus.HistogramVec
	WebhookRequestsTotal   *prometheus.CounterVec
	TextIntentsTotal       *prometheus.CounterVec

	// Vision metrics
	VisionRequestsTotal   *prometheus.CounterVec
	VisionDurationSeconds *prometheus.HistogramVec
	VisionFallbackTotal   *prometheus.CounterVec
	VisionBreakerState    *prometheus.GaugeVec

	// LINE API metrics
	LineAPIRequestsTotal   *prometheus.CounterVec
	LineAPIDurationSeconds *prometheus.HistogramVec

	// Session metrics
	SessionsActive     prometheus.Gauge
	SessionsSweptTotal prometheus.Counter

	// Business metrics
	ProfitYen prometheus.Histogram

	// Rate limiter metrics
	RateLimiterDropped *prometheus.CounterVec

	// Archive metrics
	ArchiveWritesTotal *prometheus.CounterVec
}

// New creates a new Metrics instance with all metrics registered
func New(registry *prometheus.Registry) *Metrics {
	factory := promauto.With(registry)

	m := &Metrics{
		WebhookDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sedori_webhook_duration_seconds",
				Help:    "Event processing duration in seconds by event type",
				Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 20, 40}, // image events include the vision call
			},
			[]string{"event_type"}, // event_type: text, image, other
		),

		WebhookRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sedori_webhook_requests_total",
				Help: "Total number of webhook events by event type and status",
			},
			[]string{"event_type", "status"}, // status: success, error, skipped, rate_limited
		),

		TextIntentsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sedori_text_intents_total",
				Help: "Total number of text messages by recognized intent",
			},
			[]string{"intent"}, // intent: size, weight, price, no_session, unrecognized
		),

		VisionRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sedori_vision_requests_total",
				Help: "Total number of vision provider calls by provider and status",
			},
			[]string{"provider", "status"}, // status: success, timeout, invalid_json, unavailable, error
		),

		VisionDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sedori_vision_duration_seconds",
				Help:    "Vision provider call duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30}, // matches 30s vision timeout
			},
			[]string{"provider"},
		),

		VisionFallbackTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sedori_vision_fallback_total",
				Help: "Total number of fallbacks between vision providers",
			},
			[]string{"from", "to"},
		),

		VisionBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sedori_vision_breaker_state",
				Help: "Circuit breaker state per provider (0=closed, 1=half-open, 2=open)",
			},
			[]string{"provider"},
		),

		LineAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sedori_line_api_requests_total",
				Help: "Total number of LINE API calls by operation and status",
			},
			[]string{"operation", "status"}, // operation: reply, push, content
		),

		LineAPIDurationSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sedori_line_api_duration_seconds",
				Help:    "LINE API call duration in seconds",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
			},
			[]string{"operation"},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "sedori_sessions_active",
				Help: "Number of unexpired user sessions",
			},
		),

		SessionsSweptTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "sedori_sessions_swept_total",
				Help: "Total number of expired sessions removed",
			},
		),

		ProfitYen: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "sedori_profit_yen",
				Help:    "Estimated profit per completed calculation in yen",
				Buckets: []float64{-5000, -1000, 0, 500, 1000, 2000, 5000, 10000, 50000},
			},
		),

		RateLimiterDropped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sedori_rate_limiter_dropped_total",
				Help: "Total number of requests dropped by rate limiter",
			},
			[]string{"limiter_type"}, // limiter_type: analysis
		),

		ArchiveWritesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sedori_archive_writes_total",
				Help: "Total number of analysis archive uploads by status",
			},
			[]string{"status"}, // status: success, error
		),
	}

	return m
}

// RecordWebhook records a processed event
func (m *Metrics) RecordWebhook(eventType, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.WebhookRequestsTotal.WithLabelValues(eventType, status).Inc()
	m.WebhookDurationSeconds.WithLabelValues(eventType).Observe(duration.Seconds())
}

// RecordTextIntent records which handler a text message reached
func (m *Metrics) RecordTextIntent(intent string) {
	if m == nil {
		return
	}
	m.TextIntentsTotal.WithLabelValues(intent).Inc()
}

// RecordAnalysis records one vision provider call
func (m *Metrics) RecordAnalysis(provider, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.VisionRequestsTotal.WithLabelValues(provider, status).Inc()
	m.VisionDurationSeconds.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordVisionFallback records a switch to the next provider
func (m *Metrics) RecordVisionFallback(from, to string) {
	if m == nil {
		return
	}
	m.VisionFallbackTotal.WithLabelValues(from, to).Inc()
}

// RecordBreakerState records a circuit breaker transition
func (m *Metrics) RecordBreakerState(provider, state string) {
	if m == nil {
		return
	}
	var v float64
	switch state {
	case "half-open":
		v = 1
	case "open":
		v = 2
	}
	m.VisionBreakerState.WithLabelValues(provider).Set(v)
}

// RecordLineCall records an outbound LINE API call
func (m *Metrics) RecordLineCall(operation, status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.LineAPIRequestsTotal.WithLabelValues(operation, status).Inc()
	m.LineAPIDurationSeconds.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetSessions sets the active session gauge
func (m *Metrics) SetSessions(n int) {
	if m == nil {
		return
	}
	m.SessionsActive.Set(float64(n))
}

// RecordSweep records expired sessions removed by a sweep
func (m *Metrics) RecordSweep(removed int) {
	if m == nil || removed <= 0 {
		return
	}
	m.SessionsSweptTotal.Add(float64(removed))
}

// RecordProfit records a computed profit
func (m *Metrics) RecordProfit(profit int) {
	if m == nil {
		return
	}
	m.ProfitYen.Observe(float64(profit))
}

// RecordRateLimiterDrop records a request dropped by rate limiter
func (m *Metrics) RecordRateLimiterDrop(limiterType string) {
	if m == nil {
		return
	}
	m.RateLimiterDropped.WithLabelValues(limiterType).Inc()
}

// RecordArchiveWrite records an archive upload
func (m *Metrics) RecordArchiveWrite(status string) {
	if m == nil {
		return
	}
	m.ArchiveWritesTotal.WithLabelValues(status).Inc()
}
