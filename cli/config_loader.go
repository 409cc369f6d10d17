package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/coder/serpent"
	"gopkg.in/yaml.v3"

	"github.com/coder/swiftkernel/config"
	"github.com/coder/swiftkernel/environment"
	"github.com/coder/swiftkernel/util"
)

type fileConfig struct {
	LogLevel     string `yaml:"log_level"`
	LogDir       string `yaml:"log_dir"`
	Python       string `yaml:"python"`
	KernelScript string `yaml:"kernel_script"`
	OTLPEndpoint string `yaml:"otlp_endpoint"`
}

func loadConfigFile(configPath string, env environment.Snapshot, homeDir string) (fileConfig, string, error) {
	var cfg fileConfig
	path := resolveConfigPath(configPath, env, homeDir)
	if path == "" {
		return cfg, "", nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, "", fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, "", fmt.Errorf("failed to parse YAML in %s: %w", path, err)
	}
	return cfg, path, nil
}

// resolveConfigPath returns the explicit path if one was given, otherwise the
// default config file if it exists, otherwise "".
func resolveConfigPath(configPath string, env environment.Snapshot, homeDir string) string {
	if configPath != "" {
		return configPath
	}
	if homeDir == "" && env.Get("XDG_CONFIG_HOME") == "" {
		return ""
	}
	// XDG default: $XDG_CONFIG_HOME/swiftkernel/config.yaml or ~/.config/swiftkernel/config.yaml
	path := filepath.Join(util.ConfigDir(env, homeDir), "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return path
	}
	return ""
}

// mergeConfig applies the environment over the config file (environment
// wins).
func mergeConfig(file fileConfig, envCfg config.CliConfig) config.CliConfig {
	final := envCfg

	// Fill from file where the environment left zero values
	if final.LogLevel.Value() == "" && file.LogLevel != "" {
		final.LogLevel = serpent.String(file.LogLevel)
	}
	if final.LogDir.Value() == "" && file.LogDir != "" {
		final.LogDir = serpent.String(file.LogDir)
	}
	if final.Python.Value() == "" && file.Python != "" {
		final.Python = serpent.String(file.Python)
	}
	if final.KernelScript.Value() == "" && file.KernelScript != "" {
		final.KernelScript = serpent.String(file.KernelScript)
	}
	if final.OTLPEndpoint.Value() == "" && file.OTLPEndpoint != "" {
		final.OTLPEndpoint = serpent.String(file.OTLPEndpoint)
	}

	return final
}
