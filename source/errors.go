package source

import (
	"fmt"
	"net/http"
	"time"
)

// StatusError reports a response outside the 200 range. Callers can inspect
// Code with errors.As; 5xx and 429 are retried, other codes are not.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("source: unexpected status: %d %s", e.Code, http.StatusText(e.Code))
}

// Error constructors

// ErrFetch wraps a transport-level fetch failure
func ErrFetch(err error) error {
	return fmt.Errorf("source: fetch failed: %w", err)
}

// ErrDecode wraps a response body decode failure
func ErrDecode(err error) error {
	return fmt.Errorf("source: decode failed: %w", err)
}

// ErrInvalidEndpoint wraps an endpoint that cannot form a request
func ErrInvalidEndpoint(endpoint string, err error) error {
	return fmt.Errorf("source: invalid endpoint %q: %w", endpoint, err)
}

// ErrInvalidTimeout returns an error for an invalid per-attempt timeout
func ErrInvalidTimeout(timeout time.Duration) error {
	return fmt.Errorf("source: invalid timeout: %v (must be > 0)", timeout)
}

// ErrInvalidMaxRetries returns an error for an invalid attempt count
func ErrInvalidMaxRetries(retries int) error {
	return fmt.Errorf("source: invalid max retries: %d (must be >= 1)", retries)
}

// ErrInvalidRetryDelay returns an error for an invalid backoff base delay
func ErrInvalidRetryDelay(delay time.Duration) error {
	return fmt.Errorf("source: invalid retry delay: %v (must be > 0)", delay)
}
