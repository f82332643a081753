package routine

import "fmt"

// ErrPanic returns an error wrapping a recovered panic value. Shared by
// packages that convert panics into error returns (scheduler middleware,
// event handler dispatch).
func ErrPanic(recovered any) error {
	return fmt.Errorf("routine: panic recovered: %v", recovered)
}
