package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/coder/serpent"

	"github.com/coder/swiftkernel/config"
	"github.com/coder/swiftkernel/environment"
	"github.com/coder/swiftkernel/interpreter"
	"github.com/coder/swiftkernel/logging"
	"github.com/coder/swiftkernel/supervisor"
	"github.com/coder/swiftkernel/util"
)

// programPath is the launcher's own invocation path, used to find the kernel
// script next to it.
var programPath = func() string {
	return os.Args[0]
}

// NewCommand creates and returns the root serpent command
func NewCommand() *serpent.Command {
	var cliConfig config.CliConfig

	return &serpent.Command{
		Use:   "swiftkernel [kernel args...]",
		Short: "Launch the Swift Jupyter kernel with a per-environment package directory",
		Long: `swiftkernel picks a directory for user-installed Swift packages, exports
its modules subdirectory as SWIFT_IMPORT_SEARCH_PATH and runs swift_kernel.py
with the same interpreter arguments it was given. SIGINT is forwarded to the
kernel so Jupyter can interrupt running cells.

Package directory:
  $CONDA_PREFIX/swift-env          inside an active conda environment
  <virtualenv parent>/swift-env    when python runs inside a virtualenv
  ~/swift-env                      otherwise

All arguments are passed to the kernel unchanged; configuration comes from
the environment or a YAML config file.`,
		// Every argument belongs to the kernel, including ones that look like
		// flags (Jupyter passes "-f <connection file>").
		RawArgs: true,
		Options: serpent.OptionSet{
			{
				Name:        "config",
				Env:         "SWIFT_KERNEL_CONFIG",
				Description: "Path to YAML config file (default: $XDG_CONFIG_HOME/swiftkernel/config.yaml).",
				Value:       &cliConfig.Config,
			},
			{
				Name:        "log-level",
				Env:         "SWIFT_KERNEL_LOG_LEVEL",
				Description: "Set log level (error, warn, info, debug).",
				Value:       &cliConfig.LogLevel,
			},
			{
				Name:        "log-dir",
				Env:         "SWIFT_KERNEL_LOG_DIR",
				Description: "Write logs to a file in this directory instead of stderr.",
				Value:       &cliConfig.LogDir,
			},
			{
				Name:        "python",
				Env:         "SWIFT_KERNEL_PYTHON",
				Description: "Python interpreter running the kernel (default: python3 or python on PATH).",
				Value:       &cliConfig.Python,
			},
			{
				Name:        "kernel-script",
				Env:         "SWIFT_KERNEL_SCRIPT",
				Description: "Kernel program; relative paths are resolved next to the launcher.",
				Value:       &cliConfig.KernelScript,
			},
			{
				Name:        "otlp-endpoint",
				Env:         "SWIFT_KERNEL_OTLP_ENDPOINT",
				Description: "Also export logs to this OTLP/HTTP endpoint, e.g. http://localhost:4318.",
				Value:       &cliConfig.OTLPEndpoint,
			},
		},
		Handler: func(inv *serpent.Invocation) error {
			return Run(inv, cliConfig)
		},
	}
}

// Run resolves configuration and supervises the kernel until it exits.
func Run(inv *serpent.Invocation, cliConfig config.CliConfig) error {
	ctx := inv.Context()

	env := environment.NewSnapshot(environToOS(inv.Environ))
	homeDir := util.HomeDir(env)

	file, path, err := loadConfigFile(cliConfig.Config.Value(), env, homeDir)
	if err != nil {
		return err
	}
	appConfig := config.NewAppConfigFromCliConfig(mergeConfig(file, cliConfig), inv.Args, env, homeDir)

	logger, shutdownLogging, err := logging.Setup(ctx, logging.Options{
		Level:        appConfig.LogLevel,
		Dir:          appConfig.LogDir,
		OTLPEndpoint: appConfig.OTLPEndpoint,
		Stderr:       inv.Stderr,
	})
	if err != nil {
		return fmt.Errorf("could not set up logging: %w", err)
	}
	defer func() {
		if err := shutdownLogging(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(inv.Stderr, "failed to flush logs: %v\n", err)
		}
	}()
	if path != "" {
		logger.Debug("loaded config file", "path", path)
	}

	interp, err := interpreter.Locate(appConfig.Python, appConfig.Env)
	if err != nil {
		logger.Error("Failed to locate interpreter", "error", err)
		return err
	}

	script, err := resolveKernelScript(appConfig.KernelScript, programPath())
	if err != nil {
		return err
	}

	logger.Debug("launcher configuration",
		"interpreter", interp.Path,
		"kernel_script", script,
		"kernel_args", strings.Join(appConfig.KernelArgs, " "))

	sup, err := supervisor.New(supervisor.Config{
		Logger:      logger,
		Interpreter: interp.Path,
		Script:      script,
		Args:        appConfig.KernelArgs,
		Env:         appConfig.Env,
		Resolve:     resolver(logger, interp, appConfig),
		Stdin:       inv.Stdin,
		Stdout:      inv.Stdout,
		Stderr:      inv.Stderr,
	})
	if err != nil {
		return fmt.Errorf("failed to create supervisor: %w", err)
	}

	return sup.Run(ctx)
}

// resolver picks the package install base. The interpreter is not probed
// while a conda environment is active. A failed probe is logged and treated
// as "no virtualenv".
func resolver(logger *slog.Logger, interp interpreter.Interpreter, appConfig config.AppConfig) supervisor.ResolveFunc {
	return func(ctx context.Context) environment.Resolution {
		var prefixes environment.Prefixes
		if _, conda := appConfig.Env.Lookup(environment.CondaPrefixEnv); !conda {
			var err error
			prefixes, err = interp.Probe(ctx, appConfig.Env)
			if err != nil {
				logger.Warn("Could not read interpreter prefixes", "interpreter", interp.Path, "error", err)
			}
		}
		return environment.Resolve(appConfig.Env, prefixes, appConfig.HomeDir)
	}
}

// resolveKernelScript returns script if it is absolute, otherwise script
// joined to the directory the launcher was started from.
func resolveKernelScript(script, launcher string) (string, error) {
	if filepath.IsAbs(script) {
		return script, nil
	}

	dir, err := launcherDir(launcher)
	if err != nil {
		return "", fmt.Errorf("failed to locate kernel script %s: %w", script, err)
	}
	return filepath.Join(dir, script), nil
}

// launcherDir is the directory of the launcher's invocation path when it has
// one, and of the running executable when the launcher was found on PATH.
func launcherDir(launcher string) (string, error) {
	if strings.ContainsRune(launcher, filepath.Separator) || strings.ContainsRune(launcher, '/') {
		return filepath.Abs(filepath.Dir(launcher))
	}

	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	return filepath.Dir(exe), nil
}

func environToOS(environ serpent.Environ) []string {
	out := make([]string, 0, len(environ))
	for _, ev := range environ {
		out = append(out, ev.Name+"="+ev.Value)
	}
	return out
}
