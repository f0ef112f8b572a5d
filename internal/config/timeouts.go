package config

import "time"

// HTTP server timeouts. LINE posts small JSON batches and expects a quick
// 200, so reads are short; processing happens after the response.
const (
	WebhookHTTPRead  = 10 * time.Second
	WebhookHTTPWrite = 15 * time.Second
	WebhookHTTPIdle  = 120 * time.Second
)

// Outbound call defaults.
const (
	// LineAPICall bounds a single reply or push.
	LineAPICall = 20 * time.Second

	// ContentFetch bounds downloading an image from the content endpoint.
	ContentFetch = 30 * time.Second

	// VisionCall bounds one analysis request to a vision provider.
	VisionCall = 30 * time.Second
)

// Storage timeouts.
const (
	// DatabaseBusyTimeout is the SQLite busy_timeout pragma value.
	DatabaseBusyTimeout = 30 * time.Second

	// RedisDial bounds the startup ping against REDIS_URL.
	RedisDial = 3 * time.Second
)

// Background job intervals.
const (
	// SessionGaugeInterval is how often the active session gauge is refreshed.
	SessionGaugeInterval = time.Minute

	// RateLimiterCleanupInterval is how often idle per-user buckets are evicted.
	RateLimiterCleanupInterval = 10 * time.Minute
)

// Shutdown budgets.
const (
	GracefulShutdown = 30 * time.Second
	SentryFlush      = 2 * time.Second
)
