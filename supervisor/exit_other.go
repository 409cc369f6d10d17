//go:build !unix

package supervisor

import (
	"os"
)

func exitErrorFromState(state *os.ProcessState) *ExitError {
	if state == nil || state.ExitCode() == 0 {
		return nil
	}
	return &ExitError{Code: state.ExitCode()}
}

// Exit terminates the launcher with the kernel's exit code.
func (e *ExitError) Exit() {
	os.Exit(e.ExitCode())
}
