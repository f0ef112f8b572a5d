package vision

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/sony/gobreaker"
	"google.golang.org/genai"

	apperrors "github.com/garyellow/sedori-linebot-go/internal/errors"
)

// ErrorAction decides what the fallback chain does after a failure.
type ErrorAction int

const (
	// ActionFail stops the chain and reports the error.
	ActionFail ErrorAction = iota
	// ActionFallback moves on to the next provider.
	ActionFallback
)

// String returns a human-readable action name.
func (a ErrorAction) String() string {
	switch a {
	case ActionFail:
		return "fail"
	case ActionFallback:
		return "fallback"
	default:
		return "unknown"
	}
}

// ProviderError carries the provider and HTTP status of a failed call.
type ProviderError struct {
	Err        error
	StatusCode int
	Provider   Provider
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return string(e.Provider) + ": " + e.Err.Error() + " (status: " + strconv.Itoa(e.StatusCode) + ")"
	}
	return string(e.Provider) + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// wrapProviderError attaches the HTTP status the SDKs expose, if any.
func wrapProviderError(err error, provider Provider) error {
	if err == nil {
		return nil
	}
	status := 0
	var oaErr *openai.Error
	var gErr genai.APIError
	switch {
	case errors.As(err, &oaErr):
		status = oaErr.StatusCode
	case errors.As(err, &gErr):
		status = gErr.Code
	}
	return &ProviderError{Err: err, StatusCode: status, Provider: provider}
}

// ClassifyError decides whether another provider should be tried.
//
// Only conditions specific to one provider fall back: exhausted quota, rate
// limiting, and an open breaker. Timeouts, cancellations, bad requests and
// undecodable replies fail immediately.
func ClassifyError(err error) ErrorAction {
	if err == nil {
		return ActionFail
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ActionFail
	}
	if errors.Is(err, apperrors.ErrInvalidAnalysis) {
		return ActionFail
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return ActionFallback
	}

	var pErr *ProviderError
	if errors.As(err, &pErr) && pErr.StatusCode == http.StatusTooManyRequests {
		return ActionFallback
	}

	msg := strings.ToLower(err.Error())
	if containsAny(msg, "quota", "insufficient_quota", "resource_exhausted", "billing", "rate limit", "too many requests") {
		return ActionFallback
	}
	return ActionFail
}

// countsAsFailure reports whether err should trip the provider's breaker.
// Caller cancellations and malformed replies say nothing about provider health.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, apperrors.ErrInvalidAnalysis) {
		return false
	}
	var pErr *ProviderError
	if errors.As(err, &pErr) && pErr.StatusCode >= 400 && pErr.StatusCode < 500 &&
		pErr.StatusCode != http.StatusTooManyRequests && pErr.StatusCode != http.StatusRequestTimeout {
		return false
	}
	return true
}

func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
