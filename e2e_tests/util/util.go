package util

import (
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// WaitForFile waits until path exists.
func WaitForFile(t *testing.T, path string, timeout time.Duration) {
	t.Helper()
	require.Eventually(t, func() bool {
		_, err := os.Stat(path)
		return err == nil
	}, timeout, 10*time.Millisecond, "file %s never appeared", path)
}

// ReadLines returns the lines of path without the trailing newline.
func ReadLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err, "Failed to read %s", path)
	return strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
}

// CountLines returns the number of lines in path, or -1 if it cannot be read.
func CountLines(path string) int {
	data, err := os.ReadFile(path)
	if err != nil {
		return -1
	}
	return strings.Count(string(data), "\n")
}
