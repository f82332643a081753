package scheduler

import (
	"fmt"
	"time"
)

// Predefined errors
var (
	// ErrSchedulerClosed is returned when scheduling on a closed scheduler
	ErrSchedulerClosed = fmt.Errorf("scheduler: scheduler is closed")
	// ErrNilTask is returned when a nil task is scheduled
	ErrNilTask = fmt.Errorf("scheduler: nil task")
)

// Error constructors

// ErrInvalidInterval returns an error for a sub-second interval
func ErrInvalidInterval(interval time.Duration) error {
	return fmt.Errorf("scheduler: invalid interval: %v (must be >= 1s)", interval)
}

// ErrBadSpec wraps a cron expression parse failure
func ErrBadSpec(spec string, err error) error {
	return fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
}
