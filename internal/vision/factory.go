package vision

import (
	"context"
	"fmt"
	"log/slog"

	"google.golang.org/genai"
)

// Config selects providers and their credentials.
type Config struct {
	Providers    []string // preference order
	OpenAIAPIKey string
	GeminiAPIKey string
	OpenAIModel  string
	GeminiModel  string
	Breaker      BreakerSettings
	Recorder     Recorder
}

// New builds the provider chain in cfg.Providers order, skipping providers
// without an API key. It fails only when no provider can be built.
func New(ctx context.Context, cfg Config) (*FallbackAnalyzer, error) {
	if cfg.Breaker == (BreakerSettings{}) {
		cfg.Breaker = DefaultBreakerSettings
	}
	var onState func(Provider, string)
	if cfg.Recorder != nil {
		onState = func(p Provider, state string) {
			cfg.Recorder.RecordBreakerState(p.String(), state)
		}
	}

	var chain []Analyzer
	for _, name := range cfg.Providers {
		var (
			a   Analyzer
			err error
		)
		switch Provider(name) {
		case ProviderOpenAI:
			if cfg.OpenAIAPIKey == "" {
				continue
			}
			a, err = newOpenAIAnalyzer(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		case ProviderGemini:
			if cfg.GeminiAPIKey == "" {
				continue
			}
			a, err = newGeminiAnalyzer(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, genai.HTTPOptions{})
		default:
			return nil, fmt.Errorf("unknown vision provider %q", name)
		}
		if err != nil {
			slog.WarnContext(ctx, "Skipping vision provider", "provider", name, "error", err)
			continue
		}
		chain = append(chain, withBreaker(a, cfg.Breaker, onState))
	}

	if len(chain) == 0 {
		return nil, fmt.Errorf("no vision provider could be configured from %v", cfg.Providers)
	}
	return NewFallbackAnalyzer(cfg.Recorder, chain...), nil
}
