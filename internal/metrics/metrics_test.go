package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNew(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := New(registry)

	if m == nil {
		t.Fatal("New() returned nil")
	}
	if m.WebhookRequestsTotal == nil || m.VisionRequestsTotal == nil || m.LineAPIRequestsTotal == nil {
		t.Error("counter vectors not initialized")
	}
	if m.SessionsActive == nil || m.ProfitYen == nil {
		t.Error("gauges/histograms not initialized")
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Registering twice on one registry panics; separate registries must not.
	New(prometheus.NewRegistry())
	New(prometheus.NewRegistry())
}

func TestRecordWebhook(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordWebhook("image", "success", 3*time.Second)
	m.RecordWebhook("image", "success", time.Second)
	m.RecordWebhook("text", "error", time.Millisecond)

	if got := testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("image", "success")); got != 2 {
		t.Errorf("image/success = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.WebhookRequestsTotal.WithLabelValues("text", "error")); got != 1 {
		t.Errorf("text/error = %v, want 1", got)
	}
}

func TestRecordVision(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordAnalysis("openai", "unavailable", time.Second)
	m.RecordVisionFallback("openai", "gemini")
	m.RecordAnalysis("gemini", "success", 2*time.Second)

	if got := testutil.ToFloat64(m.VisionFallbackTotal.WithLabelValues("openai", "gemini")); got != 1 {
		t.Errorf("fallback = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.VisionRequestsTotal.WithLabelValues("gemini", "success")); got != 1 {
		t.Errorf("gemini success = %v, want 1", got)
	}
}

func TestRecordBreakerState(t *testing.T) {
	m := New(prometheus.NewRegistry())

	tests := []struct {
		state string
		want  float64
	}{
		{"open", 2},
		{"half-open", 1},
		{"closed", 0},
	}
	for _, tt := range tests {
		m.RecordBreakerState("openai", tt.state)
		if got := testutil.ToFloat64(m.VisionBreakerState.WithLabelValues("openai")); got != tt.want {
			t.Errorf("state %s = %v, want %v", tt.state, got, tt.want)
		}
	}
}

func TestSessions(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetSessions(7)
	m.RecordSweep(3)
	m.RecordSweep(0)

	if got := testutil.ToFloat64(m.SessionsActive); got != 7 {
		t.Errorf("active = %v, want 7", got)
	}
	if got := testutil.ToFloat64(m.SessionsSweptTotal); got != 3 {
		t.Errorf("swept = %v, want 3", got)
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics

	// Should not panic
	m.RecordWebhook("text", "success", time.Second)
	m.RecordTextIntent("size")
	m.RecordAnalysis("openai", "success", time.Second)
	m.RecordVisionFallback("openai", "gemini")
	m.RecordBreakerState("openai", "open")
	m.RecordLineCall("reply", "success", time.Second)
	m.SetSessions(1)
	m.RecordSweep(1)
	m.RecordProfit(100)
	m.RecordRateLimiterDrop("analysis")
	m.RecordArchiveWrite("success")
}
