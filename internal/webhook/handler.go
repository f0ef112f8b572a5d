// Package webhook receives LINE webhook deliveries and hands their events
// to the bot one batch at a time.
package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"github.com/garyellow/sedori-linebot-go/internal/ctxutil"
	"github.com/garyellow/sedori-linebot-go/internal/logger"
	"github.com/garyellow/sedori-linebot-go/internal/metrics"
)

const (
	// DefaultMaxEventsPerWebhook caps the events processed from one delivery.
	DefaultMaxEventsPerWebhook = 100

	// DefaultMaxBodyBytes caps the request body read for verification.
	DefaultMaxBodyBytes = 1 << 20

	requestIDHeader = "X-Request-ID"
)

// EventProcessor consumes the events of a webhook batch.
type EventProcessor interface {
	// BeginBatch runs once before the events of a delivery.
	BeginBatch(ctx context.Context)
	// ProcessEvent handles one event. Errors are already reported to the
	// user; the handler only logs them.
	ProcessEvent(ctx context.Context, event webhook.EventInterface) error
}

// Handler handles LINE webhook events
type Handler struct {
	channelSecret string
	processor     EventProcessor
	logger        *logger.Logger
	metrics       *metrics.Metrics
	wg            sync.WaitGroup // tracks async batch processing

	maxEventsPerWebhook int
	maxBodyBytes        int64
}

// HandlerConfig holds configuration for creating a new Handler
type HandlerConfig struct {
	// ChannelSecret enables X-Line-Signature verification when non-empty.
	ChannelSecret string
	Processor     EventProcessor
	Logger        *logger.Logger
	Metrics       *metrics.Metrics

	MaxEventsPerWebhook int
	MaxBodyBytes        int64
}

// NewHandler creates a new webhook handler.
func NewHandler(cfg HandlerConfig) (*Handler, error) {
	if cfg.Processor == nil {
		return nil, errors.New("webhook: processor is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.New("info")
	}
	if cfg.MaxEventsPerWebhook <= 0 {
		cfg.MaxEventsPerWebhook = DefaultMaxEventsPerWebhook
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = DefaultMaxBodyBytes
	}

	h := &Handler{
		channelSecret:       cfg.ChannelSecret,
		processor:           cfg.Processor,
		logger:              cfg.Logger.WithModule("webhook"),
		metrics:             cfg.Metrics,
		maxEventsPerWebhook: cfg.MaxEventsPerWebhook,
		maxBodyBytes:        cfg.MaxBodyBytes,
	}
	if h.channelSecret == "" {
		h.logger.Warn("LINE channel secret not set; webhook signatures are not verified")
	}
	return h, nil
}

// Handle is the Gin handler for the webhook endpoint
func (h *Handler) Handle(c *gin.Context) {
	requestID := c.GetHeader(requestIDHeader)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	log := h.logger.WithRequestID(requestID)

	// 1. Parse request
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxBodyBytes)
	cb, err := h.parse(c.Request)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, webhook.ErrInvalidSignature):
			log.Warn("Invalid webhook signature")
			c.Status(http.StatusBadRequest)
		case errors.As(err, &tooLarge):
			log.WithField("limit", tooLarge.Limit).Warn("Webhook body too large")
			c.Status(http.StatusRequestEntityTooLarge)
		default:
			log.WithError(err).Warn("Failed to parse webhook request")
			c.Status(http.StatusBadRequest)
		}
		h.metrics.RecordWebhook("batch", "rejected", 0)
		return
	}

	// 2. Return 200 OK immediately (LINE requirement)
	c.Header(requestIDHeader, requestID)
	c.Status(http.StatusOK)
	h.metrics.RecordWebhook("batch", "received", 0)

	if len(cb.Events) > h.maxEventsPerWebhook {
		log.WithField("event_count", len(cb.Events)).
			WithField("limit", h.maxEventsPerWebhook).
			Warn("Too many events in webhook batch; truncating")
		cb.Events = cb.Events[:h.maxEventsPerWebhook]
	}

	// Copy events so nothing refers to request memory after the response.
	events := make([]webhook.EventInterface, len(cb.Events))
	copy(events, cb.Events)

	// 3. Process events asynchronously, in delivery order
	ctx := ctxutil.PreserveTracing(ctxutil.WithRequestID(c.Request.Context(), requestID))
	h.wg.Go(func() {
		h.processBatch(ctx, log, events)
	})
}

// parse verifies the signature when a secret is configured and decodes the
// callback body.
func (h *Handler) parse(r *http.Request) (*webhook.CallbackRequest, error) {
	if h.channelSecret != "" {
		return webhook.ParseRequest(h.channelSecret, r)
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("decode callback: %w", err)
	}
	return &cb, nil
}

func (h *Handler) processBatch(ctx context.Context, log *logger.Logger, events []webhook.EventInterface) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			log.WithField("panic", r).Error("Panic in async event processing")
		}
	}()

	h.processor.BeginBatch(ctx)

	failed := 0
	for _, event := range events {
		if err := h.processor.ProcessEvent(ctx, event); err != nil {
			failed++
		}
	}

	log.WithField("event_count", len(events)).
		WithField("failed", failed).
		WithField("batch_duration_ms", time.Since(start).Milliseconds()).
		Info("Webhook batch processed")
}

// Shutdown waits for all async event processing to complete.
// It returns an error if the context is canceled before completion.
func (h *Handler) Shutdown(ctx context.Context) error {
	c := make(chan struct{})
	go func() {
		defer close(c)
		h.wg.Wait()
	}()

	select {
	case <-c:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
