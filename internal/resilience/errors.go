// Package resilience provides retry with exponential backoff for calls to
// the CRM and the Memory Analyst, plus classification of which failures are
// worth retrying.
package resilience

import (
	"errors"
	"net"
	"strings"
	"syscall"
)

// RetryableError marks an error as safe to retry. HTTP callers attach the
// response status so the classification survives eris wrapping.
type RetryableError struct {
	Err    error
	Status int
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// MarkRetryable wraps err as retryable. status may be 0 for non-HTTP errors.
func MarkRetryable(err error, status int) *RetryableError {
	return &RetryableError{Err: err, Status: status}
}

// IsRetryable reports whether err should be retried: an explicit
// RetryableError anywhere in the chain, a network timeout, a connection-level
// failure, or one of the transport error strings Go's HTTP client produces.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var re *RetryableError
	if errors.As(err, &re) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// Some transport failures only surface as strings once wrapped.
	msg := strings.ToLower(err.Error())
	for _, p := range []string{
		"connection reset by peer",
		"broken pipe",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
	} {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// RetryableStatus reports whether an HTTP status code indicates a failure
// that a later attempt may not hit again.
func RetryableStatus(status int) bool {
	switch status {
	case 408, 429, 500, 502, 503, 504:
		return true
	default:
		return false
	}
}
