package task

import (
	"fmt"
	"time"
)

// ErrorType tags the single ErrorDetails variant, replacing what the
// original system modeled as parallel proto/internal enumerations (see
// DESIGN.md). Conversion to any wire representation happens at the
// serialization boundary, not here.
type ErrorType string

const (
	ErrorTypeHTTP       ErrorType = "http"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeConnection ErrorType = "connection"
	ErrorTypeInternal   ErrorType = "internal"
)

// ErrorDetails is a tagged union over the four failure classes a capture
// attempt can produce. Only the fields relevant to Type are meaningful; the
// others are left zero.
type ErrorDetails struct {
	Type ErrorType

	// Message is always populated: a human-readable description of what
	// went wrong, suitable for logs and the status endpoint.
	Message string

	// HTTPStatusCode and HTTPStatusText are set only when Type == http.
	HTTPStatusCode int
	HTTPStatusText string

	// TimeoutMs is set when Type == timeout and the bound that elapsed is
	// known; zero if unknown.
	TimeoutMs int64
}

// NewHTTPError builds an http-classified ErrorDetails. text may be empty, in
// which case callers should have already resolved it against the fallback
// table in httpstatus.go before calling this constructor.
func NewHTTPError(code int, text string) ErrorDetails {
	msg := fmt.Sprintf("HTTP %d", code)
	if text != "" {
		msg = fmt.Sprintf("HTTP %d %s", code, text)
	}
	return ErrorDetails{
		Type:           ErrorTypeHTTP,
		Message:        msg,
		HTTPStatusCode: code,
		HTTPStatusText: text,
	}
}

// NewTimeoutError builds a timeout-classified ErrorDetails for the named
// operation (e.g. "navigation", "png capture").
func NewTimeoutError(d time.Duration, op string) ErrorDetails {
	ms := d.Milliseconds()
	return ErrorDetails{
		Type:      ErrorTypeTimeout,
		Message:   fmt.Sprintf("%s timed out after (%dms)", op, ms),
		TimeoutMs: ms,
	}
}

// NewConnectionError builds a connection-classified ErrorDetails.
func NewConnectionError(reason string) ErrorDetails {
	return ErrorDetails{
		Type:    ErrorTypeConnection,
		Message: reason,
	}
}

// NewInternalError builds an internal-classified ErrorDetails.
func NewInternalError(msg string) ErrorDetails {
	return ErrorDetails{
		Type:    ErrorTypeInternal,
		Message: msg,
	}
}
