package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// Synthesizer abstracts text-completion providers used to write reports.
type Synthesizer interface {
	Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error)
}

// SynthesizerFunc adapts a function to the Synthesizer interface.
type SynthesizerFunc func(ctx context.Context, prompt string, maxOutputTokens int) (string, error)

func (f SynthesizerFunc) Complete(ctx context.Context, prompt string, maxOutputTokens int) (string, error) {
	return f(ctx, prompt, maxOutputTokens)
}

// Kind tags a synthesis failure so callers can decide whether to retry.
type Kind string

const (
	KindRateLimit      Kind = "rate_limit"
	KindTimeout        Kind = "timeout"
	KindAuth           Kind = "auth"
	KindInvalidRequest Kind = "invalid_request"
	KindQuota          Kind = "quota"
	KindUnavailable    Kind = "unavailable"
	KindEmptyResponse  Kind = "empty_response"
	KindUnknown        Kind = "unknown"
)

// Error is returned by provider adapters for every failed completion.
type Error struct {
	Provider   string
	Kind       Kind
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "synthesis error"
	}
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider)
		b.WriteString(" ")
	}
	b.WriteString(string(e.Kind))
	if e.StatusCode > 0 {
		fmt.Fprintf(&b, " (http status %d)", e.StatusCode)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Retryable reports whether the failure is transient.
func (e *Error) Retryable() bool {
	if e == nil {
		return false
	}
	return e.Kind == KindRateLimit || e.Kind == KindTimeout
}

// IsRetryable reports whether err carries a retryable synthesis kind.
func IsRetryable(err error) bool {
	var synthErr *Error
	if errors.As(err, &synthErr) {
		return synthErr.Retryable()
	}
	return false
}

// KindOf returns the tagged kind of err, or KindUnknown.
func KindOf(err error) Kind {
	var synthErr *Error
	if errors.As(err, &synthErr) && synthErr.Kind != "" {
		return synthErr.Kind
	}
	return KindUnknown
}

// KindForStatus maps a provider HTTP status and error code to a Kind.
func KindForStatus(status int, code string) Kind {
	code = strings.ToLower(strings.TrimSpace(code))
	switch {
	case status == http.StatusTooManyRequests:
		if code == "insufficient_quota" {
			return KindQuota
		}
		return KindRateLimit
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth
	case status == http.StatusPaymentRequired:
		return KindQuota
	case status >= 500:
		return KindUnavailable
	case status >= 400:
		return KindInvalidRequest
	default:
		return KindUnknown
	}
}

// KindForTransport classifies errors that never produced an HTTP response.
func KindForTransport(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}
	if errors.Is(err, context.Canceled) {
		return KindUnknown
	}
	return KindUnavailable
}
