package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/coder/swiftkernel/cli"
	"github.com/coder/swiftkernel/supervisor"
)

// Version information injected at build time
var (
	//nolint:unused
	version = "dev" // Set via -ldflags "-X main.version=v1.0.0"
)

func main() {
	cmd := cli.NewCommand()

	err := cmd.Invoke().WithOS().Run()

	// The kernel's status becomes ours so Jupyter sees kernel failures.
	var exitErr *supervisor.ExitError
	if errors.As(err, &exitErr) {
		exitErr.Exit()
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
