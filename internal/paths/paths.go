// Package paths provides XDG-compliant path resolution for the timetrack client.
//
// Resolution order:
// 1. TIMETRACK_HOME (portable root) → $TIMETRACK_HOME/{config,state}
// 2. XDG env vars → $XDG_*_HOME/timetrack
// 3. Platform defaults → ~/.config/timetrack, ~/.local/state/timetrack
package paths

import (
	"os"
	"path/filepath"
)

const appDir = "timetrack"

func getConfigHome() string {
	if home := os.Getenv("TIMETRACK_HOME"); home != "" {
		return filepath.Join(home, "config")
	}
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return xdgConfigHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config")
	}
	return ""
}

func getStateHome() string {
	if home := os.Getenv("TIMETRACK_HOME"); home != "" {
		return filepath.Join(home, "state")
	}
	if xdgStateHome := os.Getenv("XDG_STATE_HOME"); xdgStateHome != "" {
		return xdgStateHome
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".local", "state")
	}
	return ""
}

// ConfigDir returns the configuration directory (.env overrides live here).
func ConfigDir() string {
	if home := os.Getenv("TIMETRACK_HOME"); home != "" {
		return getConfigHome()
	}
	base := getConfigHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appDir)
}

// StateDir returns the directory holding the persisted session.
func StateDir() string {
	if home := os.Getenv("TIMETRACK_HOME"); home != "" {
		return getStateHome()
	}
	base := getStateHome()
	if base == "" {
		return ""
	}
	return filepath.Join(base, appDir)
}

// SessionFile is the persisted tier of the session store.
func SessionFile() string {
	return filepath.Join(StateDir(), "session.yml")
}

// SessionKeyFile holds the key material used to seal the session file.
func SessionKeyFile() string {
	return filepath.Join(StateDir(), "session.key")
}

// EnvFile is the optional per-user .env file.
func EnvFile() string {
	return filepath.Join(ConfigDir(), ".env")
}

// EnsureDirs creates the config and state directories if they don't exist.
func EnsureDirs() error {
	for _, dir := range []string{ConfigDir(), StateDir()} {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0700); err != nil {
			return err
		}
	}
	return nil
}
