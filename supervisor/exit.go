package supervisor

import (
	"fmt"
	"syscall"
)

// ExitError reports a kernel that did not exit cleanly. Exactly one of Code
// and Signal is meaningful: Signal is non-zero when the kernel was killed by
// a signal.
type ExitError struct {
	Code   int
	Signal syscall.Signal
}

func (e *ExitError) Error() string {
	if e.Signal != 0 {
		return fmt.Sprintf("kernel terminated by signal: %v", e.Signal)
	}
	return fmt.Sprintf("kernel exited with code %d", e.Code)
}

// ExitCode is the code the launcher exits with when it cannot die by the same
// signal as the kernel: 128+signo for signals, the kernel's code otherwise.
func (e *ExitError) ExitCode() int {
	if e.Signal != 0 {
		return 128 + int(e.Signal)
	}
	return e.Code
}
