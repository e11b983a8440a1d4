package appstore

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrMissingParameter is returned before any I/O when a required
	// identifying input (id, appId, ids) is absent.
	ErrMissingParameter = errors.New("missing required parameter")

	// ErrNotFound is returned when the remote answered successfully but the
	// app does not exist: empty lookup results or an empty catalog body.
	ErrNotFound = errors.New("app not found (404)")

	// ErrTokenExtraction means the app web page no longer embeds the bearer
	// token in the expected form.
	ErrTokenExtraction = errors.New("bearer token not found in app page")
)

// NetworkError is a transport-level failure (DNS, connect, timeout).
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("request %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPStatusError is returned when the remote responded with status >= 400.
// The response header and body are kept for caller inspection.
type HTTPStatusError struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
}

func (e *HTTPStatusError) Error() string {
	body := strings.TrimSpace(string(e.Body))
	if r := []rune(body); len(r) > 200 {
		body = string(r[:200]) + "…"
	}
	if body == "" {
		return fmt.Sprintf("HTTP %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d from %s: %s", e.StatusCode, e.URL, body)
}

// ParseError means a body that should have been JSON was not.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("decoding response from %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IsRetryable reports whether err is worth retrying by the caller:
// network failures, 429 and 5xx responses.
func IsRetryable(err error) bool {
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return true
	}
	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode == http.StatusTooManyRequests || statusErr.StatusCode >= 500
	}
	return false
}

func missing(name string) error {
	return fmt.Errorf("%w: %s", ErrMissingParameter, name)
}
