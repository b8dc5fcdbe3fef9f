// Package config provides configuration helpers and TOML parsing.
package config

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// FileConfig represents the TOML configuration file.
type FileConfig struct {
	Practice PracticeConfig `toml:"practice"`
	Server   ServerConfig   `toml:"server"`
	TTS      TTSConfig      `toml:"tts"`
	Chat     ChatConfig     `toml:"chat"`
	Speech   SpeechConfig   `toml:"speech"`
}

// PracticeConfig maps practice-related settings.
type PracticeConfig struct {
	Mode       *string  `toml:"mode"`
	Blanks     *int     `toml:"blanks"`
	Mute       *bool    `toml:"mute"`
	FocusWeak  *bool    `toml:"focus-weak"`
	WeakTop    *int     `toml:"weak-top"`
	WeakFactor *float64 `toml:"weak-factor"`
	WeakWindow *int     `toml:"weak-window"`
	LearnedAt  *int     `toml:"learned-at"`
}

// ServerConfig maps HTTP server settings.
type ServerConfig struct {
	Addr *string `toml:"addr"`
	// CORSOrigins limits cross-origin callers; unset allows any origin.
	CORSOrigins *[]string `toml:"cors-origins"`
}

// TTSConfig maps speech synthesis proxy settings.
type TTSConfig struct {
	CacheDir   *string `toml:"cache-dir"`
	BaseURL    *string `toml:"base-url"`
	SilenceURL *string `toml:"silence-url"`
	TimeoutSec *int    `toml:"timeout"`
}

// ChatConfig maps completion endpoint settings.
type ChatConfig struct {
	BaseURL     *string  `toml:"base-url"`
	Model       *string  `toml:"model"`
	Temperature *float64 `toml:"temperature"`
	MaxTokens   *int     `toml:"max-tokens"`
	TimeoutSec  *int     `toml:"timeout"`
}

// SpeechConfig maps local playback settings.
type SpeechConfig struct {
	Command     *string  `toml:"command"`
	Lang        *string  `toml:"lang"`
	Rate        *float64 `toml:"rate"`
	Repeat      *int     `toml:"repeat"`
	GapMs       *int     `toml:"gap-ms"`
	PostDelayMs *int     `toml:"post-delay-ms"`
}

// LoadConfig reads a TOML config from the given path. Missing file is not an error.
func LoadConfig(path string) (FileConfig, error) {
	if path == "" {
		return FileConfig{}, fmt.Errorf("config path is empty")
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return FileConfig{}, nil
		}
		return FileConfig{}, fmt.Errorf("failed to stat config: %w", err)
	}
	var cfg FileConfig
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return FileConfig{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return FileConfig{}, fmt.Errorf("unknown config key %q", undecoded[0].String())
	}
	return cfg, nil
}
