package config

import (
	"os"
	"path/filepath"
)

const appName = "kopra"

// XDGConfigHome returns the XDG config home or a default fallback.
func XDGConfigHome() string {
	return xdgHome("XDG_CONFIG_HOME", ".config")
}

// XDGDataHome returns the XDG data home or a default fallback.
func XDGDataHome() string {
	return xdgHome("XDG_DATA_HOME", ".local", "share")
}

// XDGCacheHome returns the XDG cache home or a default fallback.
func XDGCacheHome() string {
	return xdgHome("XDG_CACHE_HOME", ".cache")
}

func xdgHome(env string, fallback ...string) string {
	if v := os.Getenv(env); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(append([]string{home}, fallback...)...)
}

// DefaultDBPath returns the default path for the SQLite database.
func DefaultDBPath() string {
	return filepath.Join(XDGDataHome(), appName, appName+".db")
}

// DefaultAudioCacheDir returns the directory for cached TTS audio.
func DefaultAudioCacheDir() string {
	return filepath.Join(XDGCacheHome(), appName, "audio")
}

// DefaultConfigPath returns the default TOML config path.
func DefaultConfigPath() string {
	return filepath.Join(XDGConfigHome(), appName, "config.toml")
}
