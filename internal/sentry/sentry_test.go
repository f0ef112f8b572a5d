package sentry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/garyellow/sedori-linebot-go/internal/ctxutil"
)

func TestResolveDSN(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr bool
	}{
		{"disabled", Config{}, "", false},
		{"dsn wins", Config{DSN: "https://k@o1.ingest.sentry.io/2", Token: "t", Host: "h"}, "https://k@o1.ingest.sentry.io/2", false},
		{"better stack", Config{Token: "tok", Host: "errors.betterstack.com"}, "https://tok@errors.betterstack.com/1", false},
		{"missing host", Config{Token: "tok"}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.cfg.ResolveDSN()
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveDSN() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ResolveDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestInitialize_Disabled(t *testing.T) {
	if err := Initialize(Config{}); err != nil {
		t.Errorf("Expected nil error for empty config, got %v", err)
	}
	// Must not panic when nothing is configured.
	CaptureExceptionWithContext(context.Background(), errors.New("ignored"), nil)
}

func TestInitialize_MissingHost(t *testing.T) {
	if err := Initialize(Config{Token: "test-token"}); err == nil {
		t.Error("Expected error when host is missing")
	}
}

func TestInitialize_ValidConfig(t *testing.T) {
	// Cannot use t.Parallel() as Sentry uses global state
	err := Initialize(Config{
		DSN:         "http://key@127.0.0.1:1/1",
		Environment: "test",
	})
	if err != nil {
		t.Fatalf("Expected nil error, got %v", err)
	}
	if !IsEnabled() {
		t.Error("Expected IsEnabled() to return true after initialization")
	}

	ctx := ctxutil.WithUserID(context.Background(), "U1")
	ctx = ctxutil.WithRequestID(ctx, "evt-1")
	CaptureExceptionWithContext(ctx, errors.New("boom"), map[string]string{"tag": "VisionError"})

	Flush(100 * time.Millisecond)
}
