package app

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/sedori-linebot-go/internal/bot"
	"github.com/garyellow/sedori-linebot-go/internal/config"
	"github.com/garyellow/sedori-linebot-go/internal/logger"
	"github.com/garyellow/sedori-linebot-go/internal/messenger"
	"github.com/garyellow/sedori-linebot-go/internal/metrics"
	"github.com/garyellow/sedori-linebot-go/internal/session"
	"github.com/garyellow/sedori-linebot-go/internal/vision"
	"github.com/garyellow/sedori-linebot-go/internal/webhook"
)

const testSecret = "channel-secret"

type stubAnalyzer struct {
	result *vision.Analysis
}

func (s *stubAnalyzer) Analyze(context.Context, []byte, string) (*vision.Analysis, error) {
	a := *s.result
	return &a, nil
}

func (s *stubAnalyzer) Provider() vision.Provider { return vision.ProviderGemini }
func (s *stubAnalyzer) Close() error              { return nil }

// lineAPI fakes the reply, push and content endpoints.
type lineAPI struct {
	mu     sync.Mutex
	sent   []string // "reply:<text>" or "push:<to>:<text>"
	images int
}

func (l *lineAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasSuffix(r.URL.Path, "/content"):
		l.mu.Lock()
		l.images++
		l.mu.Unlock()
		w.Header().Set("Content-Type", "image/jpeg")
		_, _ = w.Write([]byte{0xff, 0xd8, 0xff, 0xe0})
		return
	case r.URL.Path == "/v2/bot/message/reply", r.URL.Path == "/v2/bot/message/push":
	default:
		http.NotFound(w, r)
		return
	}

	var body struct {
		To       string `json:"to"`
		Messages []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	raw, _ := io.ReadAll(r.Body)
	_ = json.Unmarshal(raw, &body)

	l.mu.Lock()
	for _, m := range body.Messages {
		if body.To != "" {
			l.sent = append(l.sent, "push:"+body.To+":"+m.Text)
		} else {
			l.sent = append(l.sent, "reply:"+m.Text)
		}
	}
	l.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"sentMessages":[]}`))
}

func (l *lineAPI) messages() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.sent...)
}

func testConfig() *config.Config {
	return &config.Config{
		LineChannelToken:  "token",
		LineChannelSecret: testSecret,
		Port:              "0",
		LogLevel:          "error",
		ShutdownTimeout:   5 * time.Second,
		Vision: config.VisionConfig{
			OpenAIAPIKey: "sk-test",
			Providers:    []string{config.ProviderOpenAI},
			OpenAIModel:  "gpt-4.1-mini",
			Timeout:      5 * time.Second,
		},
		Session: config.SessionConfig{Backend: config.SessionBackendMemory, TTL: time.Hour},
		Limits:  config.LimitConfig{MaxConcurrentAnalyses: 2},
		Observe: config.ObservabilityConfig{MetricsUsername: "prometheus", MetricsPassword: "secret"},
		FeeRate: 0.10,
		LineAPI: 5 * time.Second, FetchAPI: 5 * time.Second,
	}
}

// setupTestApp wires the real processor and webhook handler against a fake
// LINE API and a stub analyzer.
func setupTestApp(t *testing.T) (*Application, *lineAPI) {
	t.Helper()

	api := &lineAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	cfg := testConfig()
	log := logger.New("error")
	registry := prometheus.NewRegistry()
	m := metrics.New(registry)
	store := session.NewMemoryStore(session.WithTTL(cfg.Session.TTL))

	line, err := messenger.NewLine(messenger.LineConfig{
		ChannelToken: cfg.LineChannelToken,
		CallTimeout:  cfg.LineAPI,
		FetchTimeout: cfg.FetchAPI,
		Endpoint:     srv.URL,
		BlobEndpoint: srv.URL,
		Metrics:      m,
	})
	require.NoError(t, err)

	analyzer := &stubAnalyzer{result: &vision.Analysis{
		Name:       "DVD box set",
		Keywords:   []string{"DVD BOX"},
		PriceRange: &vision.PriceRange{Low: 1800, High: 3500},
	}}

	handler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.LineChannelSecret,
		Processor: bot.NewProcessor(bot.ProcessorConfig{
			Store:     store,
			Messenger: line,
			Analyzer:  analyzer,
			Logger:    log,
			Metrics:   m,
		}),
		Logger:  log,
		Metrics: m,
	})
	require.NoError(t, err)

	app := &Application{
		cfg:            cfg,
		logger:         log,
		metrics:        m,
		registry:       registry,
		store:          store,
		analyzer:       analyzer,
		webhookHandler: handler,
	}
	app.router = app.newRouter()
	return app, api
}

func deliver(t *testing.T, app *Application, events ...string) {
	t.Helper()
	body := []byte(`{"destination":"Ubot","events":[` + strings.Join(events, ",") + `]}`)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(body)

	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader(body))
	req.Header.Set("X-Line-Signature", base64.StdEncoding.EncodeToString(mac.Sum(nil)))
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, app.webhookHandler.Shutdown(ctx))
}

func userEvent(token, message string) string {
	return `{"type":"message","mode":"active","timestamp":1,"webhookEventId":"e-` + token + `",` +
		`"deliveryContext":{"isRedelivery":false},"replyToken":"` + token + `",` +
		`"source":{"type":"user","userId":"U1"},"message":` + message + `}`
}

func TestWebhookConversation(t *testing.T) {
	t.Parallel()
	app, api := setupTestApp(t)

	deliver(t, app, userEvent("rt-1", `{"type":"image","id":"900","contentProvider":{"type":"line"}}`))

	sent := api.messages()
	require.Len(t, sent, 2)
	assert.True(t, strings.HasPrefix(sent[0], "reply:画像を受け取りました"), sent[0])
	assert.True(t, strings.HasPrefix(sent[1], "push:U1:【商品推定】DVD box set"), sent[1])
	assert.Contains(t, sent[1], "230円")
	assert.Contains(t, sent[1], "1800〜3500円")
	assert.Equal(t, 1, api.images)

	deliver(t, app,
		userEvent("rt-2", `{"type":"text","id":"901","text":"L","quoteToken":"q"}`),
		userEvent("rt-3", `{"type":"text","id":"902","text":"仕入れ 980","quoteToken":"q"}`),
	)

	sent = api.messages()
	require.Len(t, sent, 4)
	assert.True(t, strings.HasPrefix(sent[2], "reply:OK！サイズL"), sent[2])
	assert.Equal(t, "reply:利益目安：635円（売値2650円・送料770円・手数料10%）", sent[3])
}

func TestWebhookRejectsUnsignedRequest(t *testing.T) {
	t.Parallel()
	app, api := setupTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"events":[]}`))
	req.Header.Set("X-Line-Signature", "bogus")
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, api.messages())
}

func TestProbeEndpoints(t *testing.T) {
	t.Parallel()
	app, _ := setupTestApp(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantBody string
	}{
		{"index", "/", http.StatusOK, "LINE Bot is running"},
		{"liveness", "/livez", http.StatusOK, `"status":"alive"`},
		{"readiness", "/readyz", http.StatusOK, `"vision":"gemini"`},
		{"metrics requires auth", "/metrics", http.StatusUnauthorized, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			w := httptest.NewRecorder()
			app.Handler().ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
			assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
		})
	}
}

func TestMetricsWithCredentials(t *testing.T) {
	t.Parallel()
	app, _ := setupTestApp(t)
	app.metrics.SetSessions(3)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.SetBasicAuth("prometheus", "secret")
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "sedori_sessions_active 3")
}

func TestRefreshSessionGauge(t *testing.T) {
	t.Parallel()
	app, _ := setupTestApp(t)

	now := time.Now()
	require.NoError(t, app.store.Save(context.Background(), session.New("U1", now)))
	require.NoError(t, app.store.Save(context.Background(), session.New("U2", now)))

	app.refreshSessionGauge(context.Background())

	assert.InDelta(t, 2, gaugeValue(t, app.registry, "sedori_sessions_active"), 0)
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name && len(f.GetMetric()) > 0 {
			return f.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestNewStore(t *testing.T) {
	t.Parallel()

	t.Run("memory", func(t *testing.T) {
		t.Parallel()
		store, err := newStore(context.Background(), testConfig())
		require.NoError(t, err)
		assert.IsType(t, &session.MemoryStore{}, store)
	})

	t.Run("sqlite", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Session.Backend = config.SessionBackendSQLite
		cfg.Session.DataDir = t.TempDir()

		store, err := newStore(context.Background(), cfg)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		assert.IsType(t, &session.SQLiteStore{}, store)
		assert.NoError(t, store.Ping(context.Background()))
	})

	t.Run("unknown", func(t *testing.T) {
		t.Parallel()
		cfg := testConfig()
		cfg.Session.Backend = "etcd"
		_, err := newStore(context.Background(), cfg)
		assert.Error(t, err)
	})
}

func TestInitialize(t *testing.T) {
	cfg := testConfig()

	app, err := Initialize(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { app.closeResources(context.Background()) })

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	app.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"vision":"openai"`)
	assert.Contains(t, w.Body.String(), `"archive":"disabled"`)
	assert.Nil(t, app.limiter, "zero burst disables the analysis limiter")
}
