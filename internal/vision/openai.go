package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4.1-mini"

// openaiAnalyzer sends the image as a base64 data URL in a chat completion.
type openaiAnalyzer struct {
	client openai.Client
	model  string
}

func newOpenAIAnalyzer(apiKey, model string, opts ...option.RequestOption) (*openaiAnalyzer, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey), option.WithMaxRetries(0)}, opts...)
	return &openaiAnalyzer{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Analyze implements Analyzer.
func (a *openaiAnalyzer) Analyze(ctx context.Context, image []byte, mimeType string) (*Analysis, error) {
	dataURL := "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(image)

	params := openai.ChatCompletionNewParams{
		Model: a.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(analysisPrompt),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
					URL: dataURL,
				}),
			}),
		},
	}

	start := time.Now()
	resp, err := a.client.Chat.Completions.New(ctx, params)
	duration := time.Since(start)
	if err != nil {
		slog.WarnContext(ctx, "Vision API call failed",
			"provider", ProviderOpenAI,
			"model", a.model,
			"image_bytes", len(image),
			"duration_ms", duration.Milliseconds(),
			"error", err)
		return nil, wrapProviderError(fmt.Errorf("chat completion failed: %w", err), ProviderOpenAI)
	}
	if len(resp.Choices) == 0 {
		return nil, wrapProviderError(errors.New("empty response from model"), ProviderOpenAI)
	}

	analysis, err := ParseAnalysis(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	analysis.Provider = ProviderOpenAI

	slog.DebugContext(ctx, "Vision analysis completed",
		"provider", ProviderOpenAI,
		"model", a.model,
		"input_tokens", resp.Usage.PromptTokens,
		"output_tokens", resp.Usage.CompletionTokens,
		"duration_ms", duration.Milliseconds())
	return analysis, nil
}

// Provider implements Analyzer.
func (a *openaiAnalyzer) Provider() Provider { return ProviderOpenAI }

// Close implements Analyzer. The HTTP client needs no teardown.
func (a *openaiAnalyzer) Close() error { return nil }
