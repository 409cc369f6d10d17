package supervisor

// State is a step in the supervisor's lifecycle. States only move forward:
// Init, Resolving, PathReady, Spawning, Running, Terminated.
type State int32

const (
	StateInit State = iota
	StateResolving
	StatePathReady
	StateSpawning
	StateRunning
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "INIT"
	case StateResolving:
		return "RESOLVING"
	case StatePathReady:
		return "PATH_READY"
	case StateSpawning:
		return "SPAWNING"
	case StateRunning:
		return "RUNNING"
	case StateTerminated:
		return "TERMINATED"
	default:
		return "UNKNOWN"
	}
}
