package events

import "fmt"

// ErrBadPattern reports a subscription pattern that does not compile
func ErrBadPattern(pattern string, err error) error {
	return fmt.Errorf("events: invalid pattern %q: %w", pattern, err)
}

// ErrInvalidHistorySize reports a non-positive history capacity
func ErrInvalidHistorySize(size int) error {
	return fmt.Errorf("events: invalid history size %d, must be >= 1", size)
}

// ErrInvalidWatchBuffer reports a non-positive watch buffer capacity
func ErrInvalidWatchBuffer(size int) error {
	return fmt.Errorf("events: invalid watch buffer %d, must be >= 1", size)
}
