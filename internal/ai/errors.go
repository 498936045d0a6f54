package ai

import (
	"context"
	"errors"
)

var (
	// ErrTransient marks network, timeout and 5xx failures. Callers may retry.
	ErrTransient = errors.New("transient generative backend failure")
	// ErrCredential marks authentication and quota failures. Never retried.
	ErrCredential = errors.New("generative backend rejected credential")
	// ErrMalformedOutput marks empty responses or output that does not fit the
	// expected shape.
	ErrMalformedOutput = errors.New("malformed generative output")
)

// Outcome labels a completion result for logs and metrics.
func Outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrCredential):
		return "credential"
	case errors.Is(err, ErrMalformedOutput):
		return "malformed"
	case errors.Is(err, ErrTransient):
		return "transient"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
