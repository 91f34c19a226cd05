package cli

import "fmt"

// Reported when a launched application exits non-zero. main turns it
// into the process exit code so shells see what the app saw.
type ExitError struct {
	Code int // Exit code of the application process.
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("application exited with code %d", e.Code)
}
