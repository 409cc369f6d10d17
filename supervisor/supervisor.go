// Package supervisor launches the Swift kernel as a child process, forwards
// interrupts to it and reports how it exited.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"sync/atomic"

	"github.com/coder/swiftkernel/environment"
)

// ResolveFunc returns where Swift packages are installed for this run.
type ResolveFunc func(ctx context.Context) environment.Resolution

type Config struct {
	Logger *slog.Logger
	// Interpreter is the executable that runs Script.
	Interpreter string
	// Script is the kernel program handed to Interpreter.
	Script string
	// Args are the launcher's own arguments without its program name. They
	// are passed to the kernel unchanged.
	Args []string
	// Env is the launcher's environment, taken once at startup.
	Env     environment.Snapshot
	Resolve ResolveFunc

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	// Notice receives the "Using Swift packages directory" line. Defaults to
	// Stdout.
	Notice io.Writer

	// Notify and StopNotify default to signal.Notify and signal.Stop.
	Notify     func(c chan<- os.Signal, sig ...os.Signal)
	StopNotify func(c chan<- os.Signal)
}

// Supervisor owns exactly one kernel process from spawn until it exits.
type Supervisor struct {
	config    Config
	logger    *slog.Logger
	state     atomic.Int32
	forwarded atomic.Int64
	pid       atomic.Int64
}

func New(config Config) (*Supervisor, error) {
	if config.Resolve == nil {
		return nil, errors.New("no install base resolver configured")
	}
	if config.Interpreter == "" {
		return nil, errors.New("no interpreter configured")
	}
	if config.Script == "" {
		return nil, errors.New("no kernel script configured")
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if config.Notice == nil {
		config.Notice = config.Stdout
	}
	if config.Notice == nil {
		config.Notice = io.Discard
	}
	if config.Notify == nil {
		config.Notify = signal.Notify
	}
	if config.StopNotify == nil {
		config.StopNotify = signal.Stop
	}

	return &Supervisor{
		config: config,
		logger: config.Logger,
	}, nil
}

// State returns the current lifecycle state.
func (s *Supervisor) State() State {
	return State(s.state.Load())
}

// Forwarded returns how many interrupts were relayed to the kernel.
func (s *Supervisor) Forwarded() int64 {
	return s.forwarded.Load()
}

// Pid returns the kernel's process id, or 0 before it is spawned.
func (s *Supervisor) Pid() int {
	return int(s.pid.Load())
}

func (s *Supervisor) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	s.logger.Debug("supervisor state change", "from", prev, "to", next)
}

// Run prepares the package directory, runs the kernel and blocks until it
// exits. It returns nil when the kernel exits with code 0, an *ExitError when
// it exits otherwise, and a plain error when the kernel could not be started
// or waited on. Interrupts received while the kernel runs are forwarded to
// it; they never stop Run.
func (s *Supervisor) Run(ctx context.Context) error {
	s.setState(StateResolving)
	resolution := s.config.Resolve(ctx)
	searchPath := resolution.SearchPath()
	s.logger.Debug("resolved package install base",
		"kind", resolution.Kind,
		"base", resolution.Base,
		"search_path", searchPath)

	err := EnsureDir(searchPath)
	if err != nil {
		return fmt.Errorf("failed to create module search path %s: %w", searchPath, err)
	}
	s.setState(StatePathReady)

	fmt.Fprintln(s.config.Notice, "Using Swift packages directory:", resolution.Base)

	s.setState(StateSpawning)
	cmd := s.childCommand(searchPath)

	// Registered before Start so an interrupt racing the spawn is queued for
	// the kernel instead of killing the launcher. Buffered so interrupts
	// arriving while one is being forwarded are not dropped.
	sigChan := make(chan os.Signal, 8)
	s.config.Notify(sigChan, os.Interrupt)
	defer s.config.StopNotify(sigChan)

	s.logger.Debug("Executing kernel", "command", strings.Join(cmd.Args, " "))
	err = cmd.Start()
	if err != nil {
		s.logger.Error("Kernel failed to start", "error", err)
		return fmt.Errorf("failed to start kernel: %w", err)
	}
	s.pid.Store(int64(cmd.Process.Pid))
	s.setState(StateRunning)

	waitCh := make(chan error, 1)
	go func() {
		waitCh <- cmd.Wait()
	}()

	s.logger.Debug("waiting on the kernel to finish", "pid", cmd.Process.Pid)
	for {
		select {
		case sig := <-sigChan:
			s.forward(cmd.Process, sig)
		case err := <-waitCh:
			s.setState(StateTerminated)
			return s.exitResult(cmd, err)
		}
	}
}

// forward relays sig to the kernel. A kernel that already exited makes this
// a no-op.
func (s *Supervisor) forward(process *os.Process, sig os.Signal) {
	err := process.Signal(sig)
	if err != nil {
		s.logger.Debug("Could not forward signal, kernel is gone", "signal", sig, "error", err)
		return
	}
	n := s.forwarded.Add(1)
	s.logger.Info("Forwarded signal to kernel", "signal", sig, "pid", process.Pid, "count", n)
}

func (s *Supervisor) exitResult(cmd *exec.Cmd, err error) error {
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			// This is an unexpected error (not just a non-zero exit)
			s.logger.Error("Waiting on kernel failed", "error", err)
			return fmt.Errorf("failed to wait for kernel: %w", err)
		}
	}

	exitErr := exitErrorFromState(cmd.ProcessState)
	if exitErr == nil {
		s.logger.Debug("Kernel completed successfully")
		return nil
	}
	// Log at debug level for non-zero exits (normal behavior)
	s.logger.Debug("Kernel exited abnormally",
		"exit_code", exitErr.Code,
		"signal", exitErr.Signal)
	return exitErr
}

func (s *Supervisor) childCommand(searchPath string) *exec.Cmd {
	argv := ChildArgs(s.config.Interpreter, s.config.Script, s.config.Args)

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = ChildEnv(s.config.Env, searchPath)
	cmd.Stdin = s.config.Stdin
	cmd.Stdout = s.config.Stdout
	cmd.Stderr = s.config.Stderr
	return cmd
}

// ChildArgs builds the kernel's argument vector: the interpreter, the kernel
// script and then args verbatim.
func ChildArgs(interpreter, script string, args []string) []string {
	argv := make([]string, 0, len(args)+2)
	argv = append(argv, interpreter, script)
	return append(argv, args...)
}

// ChildEnv returns env with SWIFT_IMPORT_SEARCH_PATH set to searchPath.
func ChildEnv(env environment.Snapshot, searchPath string) []string {
	return env.With(map[string]string{
		environment.SearchPathEnv: searchPath,
	})
}

// EnsureDir creates path and any missing parents. An existing directory is
// not an error.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o755)
}
