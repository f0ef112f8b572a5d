package vision

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

const sampleReply = `{"name":"ポケモンカード","keywords":["ポケカ","SR"],"price_range_yen":[1200,2400]}`

func TestOpenAIAnalyzer_Analyze(t *testing.T) {
	var gotBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		b, _ := io.ReadAll(r.Body)
		gotBody = string(b)

		content, _ := json.Marshal("結果:\n" + sampleReply)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-4.1-mini",`+
			`"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":`+string(content)+`}}],`+
			`"usage":{"prompt_tokens":10,"completion_tokens":5,"total_tokens":15}}`)
	}))
	defer srv.Close()

	a, err := newOpenAIAnalyzer("sk-test", "", option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	assert.Equal(t, "ポケモンカード", analysis.Name)
	assert.Equal(t, ProviderOpenAI, analysis.Provider)
	assert.Contains(t, gotBody, "data:image/jpeg;base64,/9g=")
	assert.Contains(t, gotBody, DefaultOpenAIModel)
}

func TestOpenAIAnalyzer_QuotaFallsBack(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = io.WriteString(w, `{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`)
	}))
	defer srv.Close()

	a, err := newOpenAIAnalyzer("sk-test", "gpt-test", option.WithBaseURL(srv.URL+"/"))
	require.NoError(t, err)

	_, err = a.Analyze(context.Background(), []byte("x"), "image/png")
	require.Error(t, err)
	assert.Equal(t, ActionFallback, ClassifyError(err))
	assert.Equal(t, 1, calls, "retries are disabled")

	var pErr *ProviderError
	require.ErrorAs(t, err, &pErr)
	assert.Equal(t, http.StatusTooManyRequests, pErr.StatusCode)
}

func TestGeminiAnalyzer_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "gemini-test:generateContent")
		w.Header().Set("Content-Type", "application/json")
		text, _ := json.Marshal(sampleReply)
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":`+string(text)+`}]}}],`+
			`"usageMetadata":{"promptTokenCount":10,"candidatesTokenCount":5}}`)
	}))
	defer srv.Close()

	a, err := newGeminiAnalyzer(context.Background(), "g-test", "gemini-test", genai.HTTPOptions{BaseURL: srv.URL + "/"})
	require.NoError(t, err)

	analysis, err := a.Analyze(context.Background(), []byte("img"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, []string{"ポケカ", "SR"}, analysis.Keywords)
	require.NotNil(t, analysis.PriceRange)
	assert.Equal(t, 1200, analysis.PriceRange.Low)
	assert.Equal(t, ProviderGemini, analysis.Provider)
}

func TestNew_BuildsChainInOrder(t *testing.T) {
	ctx := context.Background()

	f, err := New(ctx, Config{
		Providers:    []string{"gemini", "openai"},
		OpenAIAPIKey: "sk-test",
		GeminiAPIKey: "g-test",
	})
	require.NoError(t, err)
	assert.Equal(t, []Provider{ProviderGemini, ProviderOpenAI}, f.Providers())

	f, err = New(ctx, Config{Providers: []string{"openai", "gemini"}, GeminiAPIKey: "g-test"})
	require.NoError(t, err)
	assert.Equal(t, []Provider{ProviderGemini}, f.Providers(), "providers without keys are skipped")

	_, err = New(ctx, Config{Providers: []string{"openai"}})
	require.Error(t, err)

	_, err = New(ctx, Config{Providers: []string{"claude"}, OpenAIAPIKey: "k"})
	require.Error(t, err)
}
