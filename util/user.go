package util

import (
	"os/user"
	"path/filepath"

	"github.com/coder/swiftkernel/environment"
)

const configDirName = "swiftkernel"

// lookupCurrentUser is swapped out in tests.
var lookupCurrentUser = user.Current

// HomeDir returns the home directory the same way a shell expands "~": $HOME
// when it is set, otherwise the current user's entry in the user database.
// An empty string means neither source knew.
func HomeDir(env environment.Snapshot) string {
	if home := env.Get("HOME"); home != "" {
		return home
	}

	currentUser, err := lookupCurrentUser()
	if err != nil {
		// Fallback with empty value if we can't get user info
		return ""
	}
	return currentUser.HomeDir
}

// ConfigDir determines the config directory based on XDG_CONFIG_HOME or fallback
func ConfigDir(env environment.Snapshot, homeDir string) string {
	// Use XDG_CONFIG_HOME if set, otherwise fallback to ~/.config/swiftkernel
	if xdgConfigHome := env.Get("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, configDirName)
	}
	return filepath.Join(homeDir, ".config", configDirName)
}
