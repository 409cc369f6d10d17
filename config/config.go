package config

import (
	"strings"

	"github.com/coder/serpent"

	"github.com/coder/swiftkernel/environment"
)

// DefaultKernelScript is the kernel program started next to the launcher.
const DefaultKernelScript = "swift_kernel.py"

// DefaultLogLevel is used when neither the environment nor the config file
// names a level.
const DefaultLogLevel = "warn"

// CliConfig holds the launcher's settings as parsed from the environment.
// The launcher takes no flags: every argument belongs to the kernel.
type CliConfig struct {
	Config       serpent.String `yaml:"-"`
	LogLevel     serpent.String `yaml:"log_level"`
	LogDir       serpent.String `yaml:"log_dir"`
	Python       serpent.String `yaml:"python"`
	KernelScript serpent.String `yaml:"kernel_script"`
	OTLPEndpoint serpent.String `yaml:"otlp_endpoint"`
}

type AppConfig struct {
	LogLevel     string
	LogDir       string
	Python       string
	KernelScript string
	OTLPEndpoint string
	// KernelArgs are passed to the kernel unchanged.
	KernelArgs []string
	// Env is the launcher's environment snapshot.
	Env environment.Snapshot
	// HomeDir is where the package directory lives when no isolated
	// environment is detected.
	HomeDir string
}

func NewAppConfigFromCliConfig(cfg CliConfig, kernelArgs []string, env environment.Snapshot, homeDir string) AppConfig {
	logLevel := strings.TrimSpace(cfg.LogLevel.Value())
	if logLevel == "" {
		logLevel = DefaultLogLevel
	}

	kernelScript := cfg.KernelScript.Value()
	if kernelScript == "" {
		kernelScript = DefaultKernelScript
	}

	return AppConfig{
		LogLevel:     logLevel,
		LogDir:       cfg.LogDir.Value(),
		Python:       cfg.Python.Value(),
		KernelScript: kernelScript,
		OTLPEndpoint: cfg.OTLPEndpoint.Value(),
		KernelArgs:   append([]string(nil), kernelArgs...),
		Env:          env,
		HomeDir:      homeDir,
	}
}
