package errors

import (
	"fmt"
)

// Kind classifies which collaborator failed. Its value doubles as the tag.
type Kind string

const (
	KindContentFetch Kind = TagContentFetch
	KindVision       Kind = TagVision
	KindInternal     Kind = TagInternal
)

// ErrorWrapper stamps errors with the module and operation that produced them.
type ErrorWrapper struct {
	module    string
	operation string
	kind      Kind
}

// NewWrapper creates a wrapper for one collaborator operation.
func NewWrapper(module, operation string, kind Kind) *ErrorWrapper {
	return &ErrorWrapper{module: module, operation: operation, kind: kind}
}

// Wrap returns nil for a nil err.
func (w *ErrorWrapper) Wrap(err error) error {
	if err == nil {
		return nil
	}
	return &OpError{Module: w.module, Operation: w.operation, Kind: w.kind, Cause: err}
}

// Wrapf adds a formatted detail in front of err.
func (w *ErrorWrapper) Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return w.Wrap(fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err))
}

// OpError records where a collaborator call failed.
type OpError struct {
	Module    string // e.g. "messenger", "vision"
	Operation string // e.g. "fetch_content", "analyze"
	Kind      Kind
	Cause     error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("[%s:%s] %v", e.Module, e.Operation, e.Cause)
}

func (e *OpError) Unwrap() error {
	return e.Cause
}
