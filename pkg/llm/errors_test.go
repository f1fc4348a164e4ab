package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestClassifyHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorKind
	}{
		{http.StatusTooManyRequests, KindTransient},
		{http.StatusInternalServerError, KindTransient},
		{http.StatusBadGateway, KindTransient},
		{http.StatusServiceUnavailable, KindTransient},
		{http.StatusBadRequest, KindInvalid},
		{http.StatusUnauthorized, KindInvalid},
		{http.StatusNotFound, KindInvalid},
		{http.StatusRequestEntityTooLarge, KindInvalid},
	}

	for _, tt := range tests {
		if got := ClassifyHTTPStatus(tt.status); got != tt.want {
			t.Errorf("ClassifyHTTPStatus(%d) = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestClassifyTransportError(t *testing.T) {
	if got := ClassifyTransportError(context.DeadlineExceeded); got != KindTransient {
		t.Errorf("deadline exceeded classified as %q, want transient", got)
	}
	if got := ClassifyTransportError(errors.New("connection refused")); got != KindInvalid {
		t.Errorf("plain error classified as %q, want invalid", got)
	}
}

func TestIsTransientAndIsPolicy(t *testing.T) {
	transient := NewProviderError("ollama", KindTransient, "rate limited", nil)
	policy := NewProviderError("gemini", KindPolicy, "blocked", nil)
	wrapped := fmt.Errorf("stage identify: %w", transient)

	if !IsTransient(transient) || !IsTransient(wrapped) {
		t.Error("transient provider errors must be detected through wrapping")
	}
	if IsTransient(policy) || IsPolicy(transient) {
		t.Error("kind predicates must not cross")
	}
	if !IsPolicy(policy) {
		t.Error("policy provider error not detected")
	}
	if IsTransient(errors.New("boom")) || IsPolicy(errors.New("boom")) {
		t.Error("plain errors carry no kind")
	}
}
