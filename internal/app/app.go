// Package app provides application initialization and lifecycle management.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/garyellow/sedori-linebot-go/internal/archive"
	"github.com/garyellow/sedori-linebot-go/internal/bot"
	"github.com/garyellow/sedori-linebot-go/internal/buildinfo"
	"github.com/garyellow/sedori-linebot-go/internal/config"
	"github.com/garyellow/sedori-linebot-go/internal/logger"
	"github.com/garyellow/sedori-linebot-go/internal/messenger"
	"github.com/garyellow/sedori-linebot-go/internal/metrics"
	"github.com/garyellow/sedori-linebot-go/internal/r2client"
	"github.com/garyellow/sedori-linebot-go/internal/ratelimit"
	"github.com/garyellow/sedori-linebot-go/internal/sentry"
	"github.com/garyellow/sedori-linebot-go/internal/session"
	"github.com/garyellow/sedori-linebot-go/internal/storage"
	"github.com/garyellow/sedori-linebot-go/internal/vision"
	"github.com/garyellow/sedori-linebot-go/internal/webhook"
)

// Application manages the application lifecycle and dependencies.
type Application struct {
	cfg            *config.Config
	logger         *logger.Logger
	metrics        *metrics.Metrics
	registry       *prometheus.Registry
	store          session.Store
	analyzer       vision.Analyzer
	limiter        *ratelimit.KeyedLimiter
	archive        *r2client.Client
	webhookHandler *webhook.Handler
	router         *gin.Engine
	server         *http.Server
	wg             sync.WaitGroup // background jobs
}

// Initialize creates and initializes a new application with all dependencies.
func Initialize(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.NewWithOptions(cfg.LogLevel, os.Stdout, logger.Options{
		BetterStackToken: cfg.Observe.BetterStackToken,
	})
	log = log.WithField("service", "sedori-linebot-go")
	if host, err := os.Hostname(); err == nil && host != "" {
		log = log.WithField("instance_id", host)
	}

	// Package-level slog calls (vision provider setup) share the context handler.
	slog.SetDefault(log.Logger)

	log.WithField("version", buildinfo.String()).Info("Initializing application...")

	if err := sentry.Initialize(sentry.Config{
		DSN:         cfg.Observe.SentryDSN,
		Token:       cfg.Observe.SentryToken,
		Host:        cfg.Observe.SentryHost,
		Environment: cfg.Observe.SentryEnvironment,
		Release:     buildinfo.Version,
		SampleRate:  cfg.Observe.SentrySampleRate,
	}); err != nil {
		log.WithError(err).Warn("Sentry initialization failed; error reporting disabled")
	} else if sentry.IsEnabled() {
		log.Info("Sentry error reporting enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)
	m := metrics.New(registry)

	store, err := newStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("session store: %w", err)
	}
	log.WithField("backend", cfg.Session.Backend).
		WithField("ttl", cfg.Session.TTL).
		Info("Session store ready")

	line, err := messenger.NewLine(messenger.LineConfig{
		ChannelToken: cfg.LineChannelToken,
		CallTimeout:  cfg.LineAPI,
		FetchTimeout: cfg.FetchAPI,
		Metrics:      m,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("messenger: %w", err)
	}

	analyzer, err := vision.New(ctx, vision.Config{
		Providers:    cfg.Vision.Providers,
		OpenAIAPIKey: cfg.Vision.OpenAIAPIKey,
		GeminiAPIKey: cfg.Vision.GeminiAPIKey,
		OpenAIModel:  cfg.Vision.OpenAIModel,
		GeminiModel:  cfg.Vision.GeminiModel,
		Recorder:     m,
	})
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("vision: %w", err)
	}
	log.WithField("providers", analyzer.Providers()).Info("Vision providers ready")

	var limiter *ratelimit.KeyedLimiter
	if cfg.Limits.AnalysisBurst > 0 {
		limiter = ratelimit.NewKeyedLimiter(ratelimit.KeyedConfig{
			Name:          "analysis",
			Burst:         cfg.Limits.AnalysisBurst,
			RefillRate:    cfg.Limits.AnalysisRefillPerHour / 3600.0, // hourly to per-second
			CleanupPeriod: config.RateLimiterCleanupInterval,
			Metrics:       m,
		})
	}

	app := &Application{
		cfg:      cfg,
		logger:   log,
		metrics:  m,
		registry: registry,
		store:    store,
		analyzer: analyzer,
		limiter:  limiter,
	}

	procCfg := bot.ProcessorConfig{
		Store:                 store,
		Messenger:             line,
		Analyzer:              analyzer,
		Logger:                log,
		Limiter:               limiter,
		Metrics:               m,
		FeeRate:               cfg.FeeRate,
		MaxConcurrentAnalyses: cfg.Limits.MaxConcurrentAnalyses,
		AnalysisTimeout:       cfg.Vision.Timeout,
	}
	if cfg.Archive.Enabled() {
		client, err := r2client.New(ctx, r2client.Config{
			Endpoint:    cfg.Archive.Endpoint,
			AccessKeyID: cfg.Archive.AccessKeyID,
			SecretKey:   cfg.Archive.SecretAccessKey,
			BucketName:  cfg.Archive.Bucket,
		})
		if err != nil {
			log.WithError(err).Warn("Analysis archive disabled")
		} else {
			app.archive = client
			procCfg.Archiver = archive.New(client, cfg.Archive.Prefix, m)
			log.WithField("bucket", client.Bucket()).Info("Analysis archive enabled")
		}
	}

	webhookHandler, err := webhook.NewHandler(webhook.HandlerConfig{
		ChannelSecret: cfg.LineChannelSecret,
		Processor:     bot.NewProcessor(procCfg),
		Logger:        log,
		Metrics:       m,
	})
	if err != nil {
		app.closeResources(ctx)
		return nil, fmt.Errorf("webhook: %w", err)
	}
	app.webhookHandler = webhookHandler

	gin.SetMode(gin.ReleaseMode)
	app.router = app.newRouter()
	app.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           app.router,
		ReadHeaderTimeout: config.WebhookHTTPRead,
		ReadTimeout:       config.WebhookHTTPRead,
		WriteTimeout:      config.WebhookHTTPWrite,
		IdleTimeout:       config.WebhookHTTPIdle,
	}

	log.Info("Initialization complete")
	return app, nil
}

// newStore opens the configured session backend.
func newStore(ctx context.Context, cfg *config.Config) (session.Store, error) {
	opts := []session.Option{session.WithTTL(cfg.Session.TTL)}

	switch cfg.Session.Backend {
	case config.SessionBackendSQLite:
		db, err := storage.New(ctx, cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		return session.NewSQLiteStore(db, opts...), nil
	case config.SessionBackendRedis:
		client, err := session.DialRedis(ctx, cfg.Session.RedisURL, config.RedisDial)
		if err != nil {
			return nil, err
		}
		return session.NewRedisStore(client, opts...), nil
	case config.SessionBackendMemory, "":
		return session.NewMemoryStore(opts...), nil
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Session.Backend)
	}
}

// Handler exposes the router, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.router
}

// Run starts the HTTP server and background jobs, then blocks until
// SIGINT or SIGTERM and shuts down gracefully.
func (a *Application) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.startBackgroundJobs(ctx)

	serverErr := make(chan error, 1)
	go func() {
		a.logger.WithField("port", a.cfg.Port).Info("Starting HTTP server")
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	var runErr error
	select {
	case sig := <-quit:
		a.logger.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErr:
		a.logger.WithError(err).Error("HTTP server error")
		runErr = err
	}

	cancel()
	a.wg.Wait()

	a.shutdown()
	return runErr
}

func (a *Application) shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	a.logger.Info("Stopping HTTP server...")
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Error("HTTP server shutdown error")
	}

	a.logger.Info("Waiting for webhook events to complete...")
	if err := a.webhookHandler.Shutdown(shutdownCtx); err != nil {
		a.logger.WithError(err).Warn("Webhook handler shutdown timeout")
	}

	a.closeResources(shutdownCtx)
	a.logger.Info("Shutdown complete")
}

// closeResources releases everything Initialize opened, last to first.
func (a *Application) closeResources(ctx context.Context) {
	if a.limiter != nil {
		a.limiter.Stop()
	}
	if a.analyzer != nil {
		if err := a.analyzer.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "vision").Error("Component close error")
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.logger.WithError(err).WithField("component", "session_store").Error("Component close error")
		}
	}
	if sentry.IsEnabled() && !sentry.Flush(config.SentryFlush) {
		a.logger.Warn("Sentry flush timed out")
	}
	if err := a.logger.Shutdown(ctx); err != nil {
		a.logger.WithError(err).Warn("Logger shutdown timed out")
	}
}

func (a *Application) startBackgroundJobs(ctx context.Context) {
	a.wg.Go(func() {
		a.updateSessionMetrics(ctx)
	})
}

// updateSessionMetrics refreshes the active session gauge until ctx ends.
func (a *Application) updateSessionMetrics(ctx context.Context) {
	ticker := time.NewTicker(config.SessionGaugeInterval)
	defer ticker.Stop()

	for {
		a.refreshSessionGauge(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (a *Application) refreshSessionGauge(ctx context.Context) {
	countCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	n, err := a.store.Count(countCtx)
	if err != nil {
		if ctx.Err() == nil {
			a.logger.WithError(err).Warn("Failed to count sessions")
		}
		return
	}
	a.metrics.SetSessions(n)
}
