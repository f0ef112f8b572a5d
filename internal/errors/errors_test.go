package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestTag(t *testing.T) {
	fetch := NewWrapper("messenger", "fetch_content", KindContentFetch)
	vision := NewWrapper("vision", "analyze", KindVision)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"content fetch", fetch.Wrap(errors.New("status 404")), TagContentFetch},
		{"vision", vision.Wrapf(errors.New("500"), "provider %s", "openai"), TagVision},
		{"deadline inside collaborator", fetch.Wrap(fmt.Errorf("get: %w", context.DeadlineExceeded)), TagTimeout},
		{"explicit timeout", ErrTimeout, TagTimeout},
		{"bad json", vision.Wrap(ErrInvalidAnalysis), TagJSONDecode},
		{"all providers failed", fmt.Errorf("analyze: %w", ErrVisionUnavailable), TagVision},
		{"unknown", errors.New("boom"), TagInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Tag(tt.err); got != tt.want {
				t.Errorf("Tag(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestUserMessage(t *testing.T) {
	err := NewWrapper("vision", "analyze", KindVision).Wrap(errors.New("quota"))
	if got := UserMessage(err); got != "エラー：VisionError" {
		t.Errorf("UserMessage() = %q", got)
	}
}

func TestWrapper(t *testing.T) {
	w := NewWrapper("messenger", "push", KindInternal)

	if w.Wrap(nil) != nil || w.Wrapf(nil, "x") != nil {
		t.Fatal("wrapping nil should return nil")
	}

	base := errors.New("connection reset")
	err := w.Wrapf(base, "to %s", "U1")

	var op *OpError
	if !errors.As(err, &op) {
		t.Fatal("expected *OpError")
	}
	if op.Module != "messenger" || op.Operation != "push" {
		t.Errorf("unexpected op fields: %+v", op)
	}
	if !errors.Is(err, base) {
		t.Error("cause should be reachable with errors.Is")
	}
	if want := "[messenger:push] to U1: connection reset"; err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
}

func TestPredicates(t *testing.T) {
	if !IsRateLimitExceeded(fmt.Errorf("user: %w", ErrRateLimitExceeded)) {
		t.Error("IsRateLimitExceeded should see wrapped sentinel")
	}
	if !IsNoSession(errors.Join(ErrNoSession, errors.New("ctx"))) {
		t.Error("IsNoSession should see joined sentinel")
	}
	if IsNoSession(ErrTimeout) {
		t.Error("IsNoSession false positive")
	}
}
