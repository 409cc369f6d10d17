//go:build unix

package cli

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/coder/serpent"
	"github.com/stretchr/testify/require"

	"github.com/coder/swiftkernel/supervisor"
)

// MockPTY provides a simple mock for PTY-like testing
// This is a simplified version inspired by coder/coder's ptytest.
type MockPTY struct {
	t      *testing.T
	stdout strings.Builder
	stderr strings.Builder
}

// NewMockPTY creates a new mock PTY for testing
func NewMockPTY(t *testing.T) *MockPTY {
	return &MockPTY{t: t}
}

func (m *MockPTY) Attach(inv *serpent.Invocation) {
	inv.Stdout = &m.stdout
	inv.Stderr = &m.stderr
}

func (m *MockPTY) Stdout() string {
	return m.stdout.String()
}

func (m *MockPTY) Stderr() string {
	return m.stderr.String()
}

func (m *MockPTY) ExpectMatch(content string) {
	if !strings.Contains(m.stdout.String(), content) {
		m.t.Fatalf("expected \"%s\", got: %s", content, m.stdout.String())
	}
}

func (m *MockPTY) RequireNoError() {
	if m.stderr.String() != "" {
		m.t.Fatalf("expected nothing in stderr, but got: %s", m.stderr.String())
	}
}

// fakePython answers the prefix probe with $FAKE_PREFIX and /usr, and runs
// anything else with /bin/sh so kernel scripts can be shell scripts.
const fakePython = `#!/bin/sh
if [ "$1" = "-c" ]; then
	echo "${FAKE_PREFIX:-/usr}"
	echo /usr
	exit 0
fi
exec /bin/sh "$@"
`

// recordingKernel writes its arguments and search path next to $OUT and
// exits with $KERNEL_EXIT.
const recordingKernel = `printf '%s\n' "$@" > "$OUT.args"
echo "$SWIFT_IMPORT_SEARCH_PATH" > "$OUT.search"
exit "${KERNEL_EXIT:-0}"
`

type kernelFixture struct {
	dir    string
	python string
	script string
	out    string
}

func newKernelFixture(t *testing.T) kernelFixture {
	t.Helper()
	dir := t.TempDir()

	python := filepath.Join(dir, "python3")
	require.NoError(t, os.WriteFile(python, []byte(fakePython), 0o755))

	script := filepath.Join(dir, "swift_kernel.sh")
	require.NoError(t, os.WriteFile(script, []byte(recordingKernel), 0o644))

	return kernelFixture{
		dir:    dir,
		python: python,
		script: script,
		out:    filepath.Join(dir, "out"),
	}
}

// replacePython swaps the fixture's interpreter for one that handles the
// prefix probe with probe and runs kernels like fakePython.
func (f kernelFixture) replacePython(t *testing.T, probe string) {
	t.Helper()
	script := "#!/bin/sh\nif [ \"$1\" = \"-c\" ]; then\n" + probe + "\nfi\nexec /bin/sh \"$@\"\n"
	require.NoError(t, os.WriteFile(f.python, []byte(script), 0o755))
}

func (f kernelFixture) environ(extra ...string) []string {
	return append([]string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + filepath.Join(f.dir, "home"),
		"XDG_CONFIG_HOME=" + filepath.Join(f.dir, "xdg"),
		"SWIFT_KERNEL_PYTHON=" + f.python,
		"SWIFT_KERNEL_SCRIPT=" + f.script,
		"OUT=" + f.out,
	}, extra...)
}

func (f kernelFixture) invoke(t *testing.T, environ []string, args ...string) (*MockPTY, error) {
	t.Helper()
	inv := NewCommand().Invoke(args...)
	inv.Environ = serpent.ParseEnviron(environ, "")

	pty := NewMockPTY(t)
	pty.Attach(inv)
	return pty, inv.Run()
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

func TestCommandOptions(t *testing.T) {
	cmd := NewCommand()
	require.True(t, cmd.RawArgs)

	envs := map[string]bool{}
	for _, opt := range cmd.Options {
		require.Empty(t, opt.Flag, "option %s must not define a flag", opt.Name)
		envs[opt.Env] = true
	}
	for _, env := range []string{
		"SWIFT_KERNEL_CONFIG",
		"SWIFT_KERNEL_LOG_LEVEL",
		"SWIFT_KERNEL_LOG_DIR",
		"SWIFT_KERNEL_PYTHON",
		"SWIFT_KERNEL_SCRIPT",
		"SWIFT_KERNEL_OTLP_ENDPOINT",
	} {
		require.True(t, envs[env], "missing option for %s", env)
	}
}

func TestRunVirtualenvKernel(t *testing.T) {
	f := newKernelFixture(t)
	venv := filepath.Join(f.dir, "projects", "env")

	pty, err := f.invoke(t, f.environ("FAKE_PREFIX="+venv, "KERNEL_EXIT=7"),
		"-f", "/run/user/1000/jupyter/kernel-1.json", "X", "--", "Y Z")

	var exitErr *supervisor.ExitError
	require.True(t, errors.As(err, &exitErr), "expected kernel exit error, got %v", err)
	require.Equal(t, 7, exitErr.Code)

	base := filepath.Join(f.dir, "projects", "swift-env")
	pty.ExpectMatch("Using Swift packages directory: " + base)
	pty.RequireNoError()
	require.DirExists(t, filepath.Join(base, "modules"))

	require.Equal(t, []string{"-f", "/run/user/1000/jupyter/kernel-1.json", "X", "--", "Y Z"}, readLines(t, f.out+".args"))
	require.Equal(t, []string{filepath.Join(base, "modules")}, readLines(t, f.out+".search"))
}

func TestRunCondaKernel(t *testing.T) {
	f := newKernelFixture(t)
	conda := filepath.Join(f.dir, "anaconda3", "envs", "test")
	venv := filepath.Join(f.dir, "projects", "env")

	pty, err := f.invoke(t, f.environ("CONDA_PREFIX="+conda, "FAKE_PREFIX="+venv))
	require.NoError(t, err)

	base := filepath.Join(conda, "swift-env")
	pty.ExpectMatch("Using Swift packages directory: " + base)
	require.Equal(t, []string{filepath.Join(base, "modules")}, readLines(t, f.out+".search"))
}

func TestRunHomeKernel(t *testing.T) {
	f := newKernelFixture(t)

	pty, err := f.invoke(t, f.environ())
	require.NoError(t, err)

	base := filepath.Join(f.dir, "home", "swift-env")
	pty.ExpectMatch("Using Swift packages directory: " + base)
	require.DirExists(t, filepath.Join(base, "modules"))
}

func TestRunConfigFile(t *testing.T) {
	f := newKernelFixture(t)
	configDir := filepath.Join(f.dir, "xdg", "swiftkernel")
	require.NoError(t, os.MkdirAll(configDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "config.yaml"), []byte(
		"python: "+f.python+"\n"+
			"kernel_script: "+f.script+"\n"+
			"log_level: debug\n"), 0o644))

	environ := []string{
		"PATH=" + os.Getenv("PATH"),
		"HOME=" + filepath.Join(f.dir, "home"),
		"XDG_CONFIG_HOME=" + filepath.Join(f.dir, "xdg"),
		"OUT=" + f.out,
	}
	pty, err := f.invoke(t, environ, "A")
	require.NoError(t, err)

	require.Equal(t, []string{"A"}, readLines(t, f.out+".args"))
	// log_level from the file turned on debug logging.
	require.Contains(t, pty.Stderr(), "level=DEBUG")
}

func TestRunMissingInterpreter(t *testing.T) {
	f := newKernelFixture(t)

	_, err := f.invoke(t, f.environ("SWIFT_KERNEL_PYTHON="+filepath.Join(f.dir, "missing")))
	require.Error(t, err)

	var exitErr *supervisor.ExitError
	require.False(t, errors.As(err, &exitErr))
	require.NoFileExists(t, f.out+".args")
}

func TestRunBadConfigFile(t *testing.T) {
	f := newKernelFixture(t)
	path := filepath.Join(f.dir, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("python: [unterminated\n"), 0o644))

	_, err := f.invoke(t, f.environ("SWIFT_KERNEL_CONFIG="+path))
	require.ErrorContains(t, err, "failed to parse YAML")
	require.NoFileExists(t, f.out+".args")
}

func TestResolveKernelScript(t *testing.T) {
	script, err := resolveKernelScript("/opt/swift/swift_kernel.py", "/usr/local/bin/swiftkernel")
	require.NoError(t, err)
	require.Equal(t, "/opt/swift/swift_kernel.py", script)

	script, err = resolveKernelScript("swift_kernel.py", "/usr/local/share/swift/swiftkernel")
	require.NoError(t, err)
	require.Equal(t, "/usr/local/share/swift/swift_kernel.py", script)

	cwd, err := os.Getwd()
	require.NoError(t, err)
	script, err = resolveKernelScript("swift_kernel.py", "./swiftkernel")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(cwd, "swift_kernel.py"), script)

	// Found on PATH: fall back to the running executable's directory.
	exe, err := os.Executable()
	require.NoError(t, err)
	script, err = resolveKernelScript("swift_kernel.py", "swiftkernel")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(filepath.Dir(exe), "swift_kernel.py"), script)
}

func TestRunFindsInterpreterOnEnvironmentPath(t *testing.T) {
	f := newKernelFixture(t)

	// Only the invocation's PATH knows about the fixture interpreter.
	environ := []string{
		"PATH=" + f.dir,
		"HOME=" + filepath.Join(f.dir, "home"),
		"XDG_CONFIG_HOME=" + filepath.Join(f.dir, "xdg"),
		"SWIFT_KERNEL_SCRIPT=" + f.script,
		"OUT=" + f.out,
	}
	pty, err := f.invoke(t, environ, "A")
	require.NoError(t, err, "stderr: %s", pty.Stderr())

	require.Equal(t, []string{"A"}, readLines(t, f.out+".args"))
	pty.ExpectMatch("Using Swift packages directory: " + filepath.Join(f.dir, "home", "swift-env"))
}

func TestRunProbeFailureFallsBackToHome(t *testing.T) {
	f := newKernelFixture(t)
	f.replacePython(t, "echo broken interpreter >&2\nexit 1")

	pty, err := f.invoke(t, f.environ("FAKE_PREFIX="+filepath.Join(f.dir, "projects", "env")))
	require.NoError(t, err)

	base := filepath.Join(f.dir, "home", "swift-env")
	pty.ExpectMatch("Using Swift packages directory: " + base)
	require.Equal(t, []string{filepath.Join(base, "modules")}, readLines(t, f.out+".search"))
	require.Contains(t, pty.Stderr(), "Could not read interpreter prefixes")
	require.Contains(t, pty.Stderr(), "broken interpreter")
}

func TestRunCondaSkipsProbe(t *testing.T) {
	f := newKernelFixture(t)
	f.replacePython(t, "exec sleep 30")
	conda := filepath.Join(f.dir, "anaconda3", "envs", "test")

	start := time.Now()
	pty, err := f.invoke(t, f.environ("CONDA_PREFIX="+conda))
	require.NoError(t, err)
	require.Less(t, time.Since(start), 5*time.Second)

	base := filepath.Join(conda, "swift-env")
	pty.ExpectMatch("Using Swift packages directory: " + base)
	require.Equal(t, []string{filepath.Join(base, "modules")}, readLines(t, f.out+".search"))
	pty.RequireNoError()
}
