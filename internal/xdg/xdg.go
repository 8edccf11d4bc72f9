// Package xdg resolves XDG Base Directory paths for forcebridge.
//
// The config dir holds config.yaml; the state dir holds the default SQLite
// cache file. Both fall back to the traditional locations under $HOME when the
// XDG variables are unset.
package xdg

import (
	"os"
	"path/filepath"
)

const appName = "forcebridge"

// ConfigDir returns the XDG config directory for forcebridge.
// The directory is created with private permissions (0700) if missing.
// It falls back to ~/.config/forcebridge when XDG_CONFIG_HOME is unset.
func ConfigDir() (string, error) {
	return ensure("XDG_CONFIG_HOME", ".config")
}

// StateDir returns the XDG state directory for forcebridge.
// It falls back to ~/.local/state/forcebridge when XDG_STATE_HOME is unset.
func StateDir() (string, error) {
	return ensure("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

// CachePath is the default location of the SQLite cache database.
func CachePath() (string, error) {
	dir, err := StateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache.db"), nil
}

func ensure(env, fallback string) (string, error) {
	base := os.Getenv(env)
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		base = filepath.Join(home, fallback)
	}
	dir := filepath.Join(base, appName)
	if err := os.MkdirAll(dir, 0o700); err != nil { // private dir
		return "", err
	}
	return dir, nil
}
