//go:build unix

package supervisor

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// fatalSignals terminate a Go program when nothing is listening for them.
// Other signals are reported through ExitCode instead of being re-raised.
var fatalSignals = map[syscall.Signal]bool{
	unix.SIGHUP:  true,
	unix.SIGINT:  true,
	unix.SIGTERM: true,
	unix.SIGKILL: true,
}

// exitErrorFromState converts a finished process state into an ExitError, or
// nil for a clean exit.
func exitErrorFromState(state *os.ProcessState) *ExitError {
	if state == nil {
		return nil
	}
	if status, ok := state.Sys().(syscall.WaitStatus); ok && status.Signaled() {
		return &ExitError{Signal: status.Signal()}
	}
	if state.ExitCode() == 0 {
		return nil
	}
	return &ExitError{Code: state.ExitCode()}
}

// Exit terminates the launcher with the kernel's status. A kernel killed by
// SIGINT, SIGTERM, SIGHUP or SIGKILL takes the launcher down with the same
// signal so the caller sees a signaled process.
func (e *ExitError) Exit() {
	if e.Signal != 0 && fatalSignals[e.Signal] {
		signal.Reset(e.Signal)
		if err := unix.Kill(unix.Getpid(), e.Signal); err == nil {
			// Delivery is asynchronous.
			time.Sleep(100 * time.Millisecond)
		}
	}
	os.Exit(e.ExitCode())
}
