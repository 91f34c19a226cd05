package errs

import "fmt"

// Attaches a cause to a sentinel error.
//
// The returned error matches both the sentinel and the cause under
// [errors.Is], so callers can test for the failure class while the full
// chain stays available for diagnostics.
func Wrap(sentinel, cause error) error {
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// Attaches a formatted message to a sentinel error.
//
// The format string may itself contain %w verbs to keep nested causes
// unwrappable.
func Wrapf(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{sentinel}, args...)...)
}
