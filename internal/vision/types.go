// Package vision identifies products in photos using vision-capable LLM
// APIs and turns their loosely formatted replies into an Analysis.
//
// Providers:
//   - OpenAI: github.com/openai/openai-go/v3 chat completions with an
//     inline data URL image part
//   - Gemini: google.golang.org/genai with an inline bytes part
//
// Providers are tried in configured order. Each one sits behind its own
// circuit breaker, and the next provider is only tried when the previous
// one is out of quota, rate limited or its breaker is open. A failed call is
// never retried against the same provider.
package vision

import (
	"context"
)

// Provider names a vision backend.
type Provider string

const (
	ProviderOpenAI Provider = "openai"
	ProviderGemini Provider = "gemini"
)

// String returns the provider name.
func (p Provider) String() string {
	return string(p)
}

// Analyzer turns image bytes into a structured Analysis.
type Analyzer interface {
	Analyze(ctx context.Context, image []byte, mimeType string) (*Analysis, error)
	// Provider names the backend, or the first backend of a chain.
	Provider() Provider
	Close() error
}

// PriceRange is an estimated resale range in yen with Low <= High.
type PriceRange struct {
	Low  int `json:"low"`
	High int `json:"high"`
}

// Tips holds listing suggestions.
type Tips struct {
	TitleExample string   `json:"title_example,omitempty"`
	DescPoints   []string `json:"desc_points,omitempty"`
}

// Analysis is what the model reported about a photo. Every field is
// optional: empty strings, nil pointers and empty slices mean unknown.
type Analysis struct {
	Name           string      `json:"name,omitempty"`
	Brand          string      `json:"brand,omitempty"`
	Model          string      `json:"model,omitempty"`
	JAN            string      `json:"jan,omitempty"`
	Category       string      `json:"category,omitempty"`
	ConditionGuess string      `json:"condition_guess,omitempty"`
	Keywords       []string    `json:"keywords,omitempty"`
	ShippingGuess  *int        `json:"shipping_yen_guess,omitempty"`
	PriceRange     *PriceRange `json:"price_range_yen,omitempty"`
	Tips           *Tips       `json:"tips,omitempty"`

	// Provider that produced the analysis.
	Provider Provider `json:"provider,omitempty"`
}
