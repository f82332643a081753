package logger

import (
	"fmt"
	"strings"
)

// ErrBuild wraps a zap construction failure
func ErrBuild(err error) error {
	return fmt.Errorf("logger: failed to build logger: %w", err)
}

// ErrInvalidLevel reports a level outside the supported set
func ErrInvalidLevel(level string) error {
	return fmt.Errorf("logger: invalid level %q, must be one of: %s", level, strings.Join(validLevels, ", "))
}

// ErrInvalidEncoding reports an encoding outside the supported set
func ErrInvalidEncoding(encoding string) error {
	return fmt.Errorf("logger: invalid encoding %q, must be one of: %s", encoding, strings.Join(validEncodings, ", "))
}
