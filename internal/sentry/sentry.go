// Package sentry initializes error reporting. Events go to a plain Sentry
// DSN or to Better Stack's Sentry-compatible ingest.
package sentry

import (
	"context"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/garyellow/sedori-linebot-go/internal/ctxutil"
)

// Config holds Sentry configuration.
type Config struct {
	// DSN is a full Sentry DSN. It takes precedence over Token/Host.
	DSN string

	// Token is the Better Stack Errors application token.
	Token string

	// Host is the Better Stack Errors ingesting host (e.g., "errors.betterstack.com").
	Host string

	Environment string
	Release     string

	// SampleRate controls error sampling (0.0-1.0, default 1.0 = 100%).
	SampleRate float64

	Debug bool
}

// ResolveDSN returns the DSN to use, or "" when reporting is disabled.
func (c Config) ResolveDSN() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.Token == "" {
		return "", nil
	}
	if c.Host == "" {
		return "", fmt.Errorf("sentry host is required when token is provided")
	}
	// The project ID (/1) is required by the SDK but ignored by Better Stack.
	return fmt.Sprintf("https://%s@%s/1", c.Token, c.Host), nil
}

// Initialize sets up the Sentry SDK. With neither DSN nor Token it does
// nothing and returns nil.
func Initialize(cfg Config) error {
	dsn, err := cfg.ResolveDSN()
	if err != nil || dsn == "" {
		return err
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 {
		sampleRate = 1.0
	}

	return sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      cfg.Environment,
		Release:          cfg.Release,
		SampleRate:       sampleRate,
		Debug:            cfg.Debug,
		AttachStacktrace: true,
	})
}

// Flush waits for buffered events to be sent to the server.
// Returns true if all events were sent within the timeout.
func Flush(timeout time.Duration) bool {
	return sentry.Flush(timeout)
}

// IsEnabled returns true if Sentry is initialized and active.
func IsEnabled() bool {
	return sentry.CurrentHub().Client() != nil
}

// CaptureExceptionWithContext reports err tagged with the identifiers
// carried in ctx and any extra tags.
func CaptureExceptionWithContext(ctx context.Context, err error, tags map[string]string) {
	if err == nil || !IsEnabled() {
		return
	}
	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	hub.WithScope(func(scope *sentry.Scope) {
		if userID := ctxutil.GetUserID(ctx); userID != "" {
			scope.SetUser(sentry.User{ID: userID})
		}
		if chatID := ctxutil.GetChatID(ctx); chatID != "" {
			scope.SetTag("chat_id", chatID)
		}
		if requestID, ok := ctxutil.GetRequestID(ctx); ok {
			scope.SetTag("request_id", requestID)
		}
		if eventID := ctxutil.GetEventID(ctx); eventID != "" {
			scope.SetTag("event_id", eventID)
		}
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		hub.CaptureException(err)
	})
}
