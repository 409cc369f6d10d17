// Package interpreter locates the Python interpreter that runs the kernel and
// asks it which installation prefixes it is using.
package interpreter

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/coder/swiftkernel/environment"
)

// DefaultProbeTimeout bounds how long Probe waits for the interpreter.
const DefaultProbeTimeout = 10 * time.Second

// probeScript prints sys.prefix and sys.base_prefix on separate lines.
// Interpreters without base_prefix (Python 2) report the prefix twice, which
// reads as "not a virtualenv".
const probeScript = `import sys; print(sys.prefix); print(getattr(sys, "base_prefix", sys.prefix))`

// candidates are tried in order when no interpreter is configured.
var candidates = []string{"python3", "python"}

// ErrNotFound is returned when no interpreter could be located.
var ErrNotFound = errors.New("python interpreter not found")

// Interpreter is a located Python executable.
type Interpreter struct {
	// Path is the absolute path of the executable.
	Path string
}

// Locate returns the configured interpreter, or the first of python3 and
// python found on the PATH of env when configured is empty. A configured value
// without a path separator is looked up on that PATH as well. The launcher's
// own process environment is never consulted.
func Locate(configured string, env environment.Snapshot) (Interpreter, error) {
	searchPath := env.Get("PATH")
	if configured != "" {
		path, err := lookPath(configured, searchPath)
		if err != nil {
			return Interpreter{}, fmt.Errorf("failed to locate interpreter %q: %w", configured, err)
		}
		return Interpreter{Path: path}, nil
	}

	for _, name := range candidates {
		path, err := lookPath(name, searchPath)
		if err == nil {
			return Interpreter{Path: path}, nil
		}
	}
	return Interpreter{}, fmt.Errorf("%w: tried %s", ErrNotFound, strings.Join(candidates, ", "))
}

// lookPath resolves name the way a shell would with PATH set to searchPath.
// Names containing a separator are not searched for.
func lookPath(name, searchPath string) (string, error) {
	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		if err := checkExecutable(name); err != nil {
			return "", err
		}
		return filepath.Abs(name)
	}

	for _, dir := range filepath.SplitList(searchPath) {
		if dir == "" {
			// An empty PATH entry means the working directory.
			dir = "."
		}
		path := filepath.Join(dir, name)
		if checkExecutable(path) == nil {
			return filepath.Abs(path)
		}
	}
	return "", exec.ErrNotFound
}

func checkExecutable(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fs.ErrPermission
	}
	// Windows has no execute bits.
	if runtime.GOOS != "windows" && info.Mode().Perm()&0o111 == 0 {
		return fs.ErrPermission
	}
	return nil
}

// Probe runs the interpreter with env and returns the prefixes it reports.
func (i Interpreter) Probe(ctx context.Context, env environment.Snapshot) (environment.Prefixes, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultProbeTimeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, i.Path, "-c", probeScript)
	cmd.Env = env.Environ()
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return environment.Prefixes{}, fmt.Errorf("failed to probe %s: %w: %s", i.Path, err, msg)
		}
		return environment.Prefixes{}, fmt.Errorf("failed to probe %s: %w", i.Path, err)
	}

	return parsePrefixes(stdout.String())
}

func parsePrefixes(out string) (environment.Prefixes, error) {
	lines := strings.Split(strings.TrimRight(out, "\r\n"), "\n")
	if len(lines) != 2 {
		return environment.Prefixes{}, fmt.Errorf("unexpected probe output %q: want 2 lines, got %d", out, len(lines))
	}

	// Paths may legitimately start or end with spaces; only CRLF is undone.
	prefix := strings.TrimSuffix(lines[0], "\r")
	base := strings.TrimSuffix(lines[1], "\r")
	if prefix == "" || base == "" {
		return environment.Prefixes{}, fmt.Errorf("unexpected probe output %q: empty prefix", out)
	}

	return environment.Prefixes{Prefix: prefix, BasePrefix: base}, nil
}
