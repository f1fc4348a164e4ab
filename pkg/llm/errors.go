package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorKind classifies provider failures so callers can decide whether a
// retry is worth attempting.
type ErrorKind string

const (
	// KindTransient covers timeouts, rate limits and 5xx responses.
	KindTransient ErrorKind = "transient"
	// KindPolicy covers safety/content rejections. Never retried.
	KindPolicy ErrorKind = "policy"
	// KindInvalid covers malformed requests (bad image, oversized payload).
	KindInvalid ErrorKind = "invalid"
)

// ProviderError is the common failure type returned by every AI provider
// in this codebase (language, vision and embedding backends).
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Message  string
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Message, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Provider, e.Message, e.Kind)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, kind ErrorKind, message string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Kind:     kind,
		Message:  message,
		Err:      err,
	}
}

// IsTransient reports whether err is a provider failure that may succeed
// on a later attempt.
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == KindTransient
	}
	return false
}

// IsPolicy reports whether err is a content/safety rejection.
func IsPolicy(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Kind == KindPolicy
	}
	return false
}

// ClassifyHTTPStatus maps an HTTP status code to an error kind.
// 429 and 5xx are transient, everything else terminal.
func ClassifyHTTPStatus(status int) ErrorKind {
	if status == http.StatusTooManyRequests || status >= 500 {
		return KindTransient
	}
	return KindInvalid
}

// ClassifyTransportError maps request-level failures (no HTTP response at
// all) to an error kind. Network and deadline failures are transient.
func ClassifyTransportError(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTransient
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransient
	}
	return KindInvalid
}
