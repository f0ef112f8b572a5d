package messenger

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	apperrors "github.com/garyellow/sedori-linebot-go/internal/errors"
	"github.com/garyellow/sedori-linebot-go/internal/metrics"
)

// LineConfig configures the LINE API client.
type LineConfig struct {
	ChannelToken   string
	CallTimeout    time.Duration // reply and push
	FetchTimeout   time.Duration // content download
	MaxContentSize int64

	// Endpoints override the API hosts; empty uses the SDK defaults.
	Endpoint     string
	BlobEndpoint string
	HTTPClient   *http.Client
	Metrics      *metrics.Metrics
}

// Line implements Messenger with the official SDK.
type Line struct {
	api          *messaging_api.MessagingApiAPI
	blob         *messaging_api.MessagingApiBlobAPI
	callTimeout  time.Duration
	fetchTimeout time.Duration
	maxContent   int64
	metrics      *metrics.Metrics
}

// NewLine creates a LINE messenger.
func NewLine(cfg LineConfig) (*Line, error) {
	if cfg.ChannelToken == "" {
		return nil, errors.New("channel access token is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if cfg.MaxContentSize <= 0 {
		cfg.MaxContentSize = MaxContentBytes
	}

	apiOpts := []messaging_api.MessagingApiAPIOption{messaging_api.WithHTTPClient(cfg.HTTPClient)}
	if cfg.Endpoint != "" {
		apiOpts = append(apiOpts, messaging_api.WithEndpoint(cfg.Endpoint))
	}
	api, err := messaging_api.NewMessagingApiAPI(cfg.ChannelToken, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging API client: %w", err)
	}

	blobOpts := []messaging_api.MessagingApiBlobAPIOption{messaging_api.WithBlobHTTPClient(cfg.HTTPClient)}
	if cfg.BlobEndpoint != "" {
		blobOpts = append(blobOpts, messaging_api.WithBlobEndpoint(cfg.BlobEndpoint))
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(cfg.ChannelToken, blobOpts...)
	if err != nil {
		return nil, fmt.Errorf("create messaging API blob client: %w", err)
	}

	return &Line{
		api:          api,
		blob:         blob,
		callTimeout:  cfg.CallTimeout,
		fetchTimeout: cfg.FetchTimeout,
		maxContent:   cfg.MaxContentSize,
		metrics:      cfg.Metrics,
	}, nil
}

// Reply implements Messenger.
func (l *Line) Reply(ctx context.Context, replyToken string, messages ...messaging_api.MessageInterface) error {
	ctx, cancel := withTimeout(ctx, l.callTimeout)
	defer cancel()

	start := time.Now()
	_, err := l.api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   messages,
	})
	l.metrics.RecordLineCall("reply", callStatus(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// Push implements Messenger. Each push carries a fresh retry key so LINE
// can drop duplicates if the request is resent.
func (l *Line) Push(ctx context.Context, to string, messages ...messaging_api.MessageInterface) error {
	ctx, cancel := withTimeout(ctx, l.callTimeout)
	defer cancel()

	start := time.Now()
	_, err := l.api.WithContext(ctx).PushMessage(&messaging_api.PushMessageRequest{
		To:       to,
		Messages: messages,
	}, uuid.NewString())
	l.metrics.RecordLineCall("push", callStatus(err), time.Since(start))
	if err != nil {
		return fmt.Errorf("push message: %w", err)
	}
	return nil
}

// FetchContent implements Messenger. Failures are tagged as content fetch
// errors; a deadline stays recognizable as a timeout.
func (l *Line) FetchContent(ctx context.Context, messageID string) ([]byte, string, error) {
	wrap := apperrors.NewWrapper("messenger", "fetch_content", apperrors.KindContentFetch)

	ctx, cancel := withTimeout(ctx, l.fetchTimeout)
	defer cancel()

	start := time.Now()
	data, mimeType, err := l.fetch(ctx, messageID)
	l.metrics.RecordLineCall("content", callStatus(err), time.Since(start))
	if err != nil {
		return nil, "", wrap.Wrapf(err, "message %s", messageID)
	}
	return data, mimeType, nil
}

func (l *Line) fetch(ctx context.Context, messageID string) ([]byte, string, error) {
	resp, err := l.blob.WithContext(ctx).GetMessageContent(messageID)
	if err != nil {
		if resp != nil && resp.Body != nil {
			_ = resp.Body.Close()
		}
		return nil, "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, l.maxContent+1))
	if err != nil {
		return nil, "", fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > l.maxContent {
		return nil, "", apperrors.ErrContentTooLarge
	}
	return data, detectMIME(resp.Header.Get("Content-Type"), data), nil
}

// detectMIME prefers the declared image type, then sniffs the bytes.
func detectMIME(declared string, data []byte) string {
	if mt, _, err := mime.ParseMediaType(declared); err == nil && strings.HasPrefix(mt, "image/") {
		return mt
	}
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		return sniffed
	}
	return DefaultImageMIME
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func callStatus(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	default:
		return "error"
	}
}
