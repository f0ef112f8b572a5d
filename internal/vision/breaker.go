package vision

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
)

// BreakerSettings configures the per-provider circuit breaker.
type BreakerSettings struct {
	// MaxFailures is the consecutive failure count that opens the breaker.
	MaxFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
}

// DefaultBreakerSettings opens after 5 consecutive failures for one minute.
var DefaultBreakerSettings = BreakerSettings{MaxFailures: 5, OpenTimeout: time.Minute}

// breakerAnalyzer guards an Analyzer with a gobreaker circuit.
type breakerAnalyzer struct {
	inner   Analyzer
	breaker *gobreaker.CircuitBreaker
}

// withBreaker wraps inner. onState, if set, observes state transitions.
func withBreaker(inner Analyzer, s BreakerSettings, onState func(provider Provider, state string)) *breakerAnalyzer {
	if s.MaxFailures == 0 {
		s.MaxFailures = DefaultBreakerSettings.MaxFailures
	}
	settings := gobreaker.Settings{
		Name:        inner.Provider().String(),
		MaxRequests: 1,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= s.MaxFailures
		},
		IsSuccessful: func(err error) bool {
			return !countsAsFailure(err)
		},
	}
	if onState != nil {
		settings.OnStateChange = func(_ string, _, to gobreaker.State) {
			onState(inner.Provider(), to.String())
		}
	}
	return &breakerAnalyzer{inner: inner, breaker: gobreaker.NewCircuitBreaker(settings)}
}

// Analyze implements Analyzer.
func (b *breakerAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*Analysis, error) {
	out, err := b.breaker.Execute(func() (interface{}, error) {
		return b.inner.Analyze(ctx, image, mimeType)
	})
	if err != nil {
		return nil, fmt.Errorf("breaker (%s): %w", b.breaker.Name(), err)
	}
	return out.(*Analysis), nil
}

// State reports the current breaker state.
func (b *breakerAnalyzer) State() gobreaker.State {
	return b.breaker.State()
}

// Provider implements Analyzer.
func (b *breakerAnalyzer) Provider() Provider { return b.inner.Provider() }

// Close implements Analyzer.
func (b *breakerAnalyzer) Close() error { return b.inner.Close() }
