// Package errors provides sentinel errors and the mapping from failures to
// the short tags shown to users.
package errors

import (
	"context"
	"errors"
)

// Sentinel errors. Check with errors.Is.
var (
	// ErrMissingImageID means an image event arrived without a message id.
	ErrMissingImageID = errors.New("image message id missing")

	// ErrNoSession means a price message arrived before any analyzed item.
	ErrNoSession = errors.New("no active session")

	// ErrRateLimitExceeded means the user spent their analysis budget.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrTimeout indicates an outbound call exceeded its deadline.
	ErrTimeout = errors.New("operation timed out")

	// ErrInvalidAnalysis means the vision reply held no decodable JSON object.
	ErrInvalidAnalysis = errors.New("analysis result is not a JSON object")

	// ErrVisionUnavailable means every configured vision provider failed.
	ErrVisionUnavailable = errors.New("no vision provider available")

	// ErrContentTooLarge means the downloaded image exceeded the size limit.
	ErrContentTooLarge = errors.New("content exceeds size limit")
)

// Tags sent to the user after 「エラー：」.
const (
	TagContentFetch = "ContentFetchError"
	TagVision       = "VisionError"
	TagJSONDecode   = "JSONDecodeError"
	TagTimeout      = "TimeoutError"
	TagInternal     = "InternalError"
)

// Tag maps err to a short user-facing tag. Deadlines win over the failing
// collaborator; unknown errors are InternalError.
func Tag(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, ErrTimeout):
		return TagTimeout
	case errors.Is(err, ErrInvalidAnalysis):
		return TagJSONDecode
	}
	var op *OpError
	if errors.As(err, &op) && op.Kind != "" {
		return string(op.Kind)
	}
	if errors.Is(err, ErrVisionUnavailable) {
		return TagVision
	}
	return TagInternal
}

// UserMessage is the reply text for a failed event.
func UserMessage(err error) string {
	return "エラー：" + Tag(err)
}

// IsRateLimitExceeded checks for ErrRateLimitExceeded.
func IsRateLimitExceeded(err error) bool {
	return errors.Is(err, ErrRateLimitExceeded)
}

// IsNoSession checks for ErrNoSession.
func IsNoSession(err error) bool {
	return errors.Is(err, ErrNoSession)
}
