package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	apperrors "github.com/garyellow/sedori-linebot-go/internal/errors"
)

// Recorder receives analysis outcomes for metrics.
type Recorder interface {
	RecordAnalysis(provider, status string, duration time.Duration)
	RecordVisionFallback(from, to string)
	RecordBreakerState(provider, state string)
}

// FallbackAnalyzer tries providers in order, moving on only when
// ClassifyError says the failure is specific to the provider.
type FallbackAnalyzer struct {
	chain    []Analyzer
	recorder Recorder
}

// NewFallbackAnalyzer builds a chain. recorder may be nil.
func NewFallbackAnalyzer(recorder Recorder, chain ...Analyzer) *FallbackAnalyzer {
	return &FallbackAnalyzer{chain: chain, recorder: recorder}
}

// Analyze implements Analyzer.
func (f *FallbackAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*Analysis, error) {
	if len(f.chain) == 0 {
		return nil, apperrors.ErrVisionUnavailable
	}

	wrap := apperrors.NewWrapper("vision", "analyze", apperrors.KindVision)
	var lastErr error
	for i, analyzer := range f.chain {
		provider := analyzer.Provider().String()
		start := time.Now()
		analysis, err := analyzer.Analyze(ctx, image, mimeType)
		if err == nil {
			f.record(provider, "success", time.Since(start))
			return analysis, nil
		}
		lastErr = err

		action := ClassifyError(err)
		f.record(provider, statusFor(err), time.Since(start))
		slog.WarnContext(ctx, "Vision provider failed",
			"provider", provider,
			"action", action,
			"error", err)

		if action != ActionFallback {
			return nil, wrap.Wrap(err)
		}
		if i+1 < len(f.chain) {
			next := f.chain[i+1].Provider().String()
			slog.InfoContext(ctx, "Falling back to next vision provider", "from", provider, "to", next)
			if f.recorder != nil {
				f.recorder.RecordVisionFallback(provider, next)
			}
		}
	}
	return nil, wrap.Wrap(fmt.Errorf("%w: %w", apperrors.ErrVisionUnavailable, lastErr))
}

func (f *FallbackAnalyzer) record(provider, status string, d time.Duration) {
	if f.recorder != nil {
		f.recorder.RecordAnalysis(provider, status, d)
	}
}

func statusFor(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, apperrors.ErrInvalidAnalysis):
		return "invalid_json"
	case ClassifyError(err) == ActionFallback:
		return "unavailable"
	default:
		return "error"
	}
}

// Provider implements Analyzer, naming the first provider in the chain.
func (f *FallbackAnalyzer) Provider() Provider {
	if len(f.chain) == 0 {
		return ""
	}
	return f.chain[0].Provider()
}

// Providers lists the chain in order.
func (f *FallbackAnalyzer) Providers() []Provider {
	out := make([]Provider, len(f.chain))
	for i, a := range f.chain {
		out[i] = a.Provider()
	}
	return out
}

// Close implements Analyzer, closing every provider.
func (f *FallbackAnalyzer) Close() error {
	var errs []error
	for _, a := range f.chain {
		errs = append(errs, a.Close())
	}
	return errors.Join(errs...)
}
