package vision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// geminiAnalyzer sends the image as an inline bytes part.
type geminiAnalyzer struct {
	client *genai.Client
	model  string
}

func newGeminiAnalyzer(ctx context.Context, apiKey, model string, httpOpts genai.HTTPOptions) (*geminiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	if model == "" {
		model = DefaultGeminiModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return &geminiAnalyzer{client: client, model: model}, nil
}

// Analyze implements Analyzer.
func (a *geminiAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*Analysis, error) {
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(analysisPrompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	}

	start := time.Now()
	result, err := a.client.Models.GenerateContent(ctx, a.model, contents, config)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "Vision API call failed",
			"provider", ProviderGemini,
			"model", a.model,
			"image_bytes", len(image),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, wrapProviderError(fmt.Errorf("generate content failed: %w", err), ProviderGemini)
	}

	analysis, err := ParseAnalysis(result.Text())
	if err != nil {
		return nil, err
	}
	analysis.Provider = ProviderGemini

	if result.UsageMetadata != nil {
		slog.DebugContext(ctx, "Vision analysis completed",
			"provider", ProviderGemini,
			"model", a.model,
			"input_tokens", result.UsageMetadata.PromptTokenCount,
			"output_tokens", result.UsageMetadata.CandidatesTokenCount,
			"duration_ms", duration.Milliseconds())
	}
	return analysis, nil
}

// Provider implements Analyzer.
func (a *geminiAnalyzer) Provider() Provider { return ProviderGemini }

// Close implements Analyzer.
func (a *geminiAnalyzer) Close() error { return nil }
