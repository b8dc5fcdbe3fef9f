package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Practice.Blanks != nil || cfg.Server.Addr != nil {
		t.Fatalf("expected unset values, got %+v", cfg)
	}
}

func TestLoadConfigSections(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[practice]
mode = "verb"
blanks = 3
focus-weak = true
weak-factor = 2.5

[server]
addr = ":8080"
cors-origins = ["http://localhost:5173"]

[tts]
cache-dir = "/tmp/audio"
timeout = 5

[chat]
model = "test-model"
max-tokens = 256

[speech]
command = "mpv --really-quiet"
repeat = 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Practice.Mode == nil || *cfg.Practice.Mode != "verb" {
		t.Fatalf("mode = %v", cfg.Practice.Mode)
	}
	if cfg.Practice.Blanks == nil || *cfg.Practice.Blanks != 3 {
		t.Fatalf("blanks = %v", cfg.Practice.Blanks)
	}
	if cfg.Practice.Mute != nil {
		t.Fatalf("mute should be unset")
	}
	if cfg.Practice.WeakFactor == nil || *cfg.Practice.WeakFactor != 2.5 {
		t.Fatalf("weak-factor = %v", cfg.Practice.WeakFactor)
	}
	if cfg.Server.Addr == nil || *cfg.Server.Addr != ":8080" {
		t.Fatalf("addr = %v", cfg.Server.Addr)
	}
	if cfg.Server.CORSOrigins == nil || len(*cfg.Server.CORSOrigins) != 1 {
		t.Fatalf("cors-origins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.TTS.TimeoutSec == nil || *cfg.TTS.TimeoutSec != 5 {
		t.Fatalf("tts timeout = %v", cfg.TTS.TimeoutSec)
	}
	if cfg.Chat.Model == nil || *cfg.Chat.Model != "test-model" {
		t.Fatalf("chat model = %v", cfg.Chat.Model)
	}
	if cfg.Speech.Repeat == nil || *cfg.Speech.Repeat != 2 {
		t.Fatalf("speech repeat = %v", cfg.Speech.Repeat)
	}
}

func TestLoadConfigRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte("[practice]\nwords = 10\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	_, err := LoadConfig(path)
	if err == nil || !strings.Contains(err.Error(), "practice.words") {
		t.Fatalf("err = %v, want unknown key error", err)
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	if _, err := LoadConfig(""); err == nil {
		t.Fatalf("expected error for empty path")
	}
}

func TestXDGPaths(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("XDG_CACHE_HOME", "/cache")

	if got := DefaultConfigPath(); got != filepath.Join("/cfg", "kopra", "config.toml") {
		t.Fatalf("config path = %q", got)
	}
	if got := DefaultDBPath(); got != filepath.Join("/data", "kopra", "kopra.db") {
		t.Fatalf("db path = %q", got)
	}
	if got := DefaultAudioCacheDir(); got != filepath.Join("/cache", "kopra", "audio") {
		t.Fatalf("audio cache = %q", got)
	}
}

func TestLoadEnv(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("GROQ_API_KEY", "secret")
	t.Setenv("KOPRA_ENV", "Production")
	t.Setenv("KOPRA_LOG_LEVEL", "debug")
	t.Setenv("KOPRA_DB_PATH", "")

	env, err := LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.GroqAPIKey != "secret" || env.LogLevel != "debug" {
		t.Fatalf("env = %+v", env)
	}
	if !env.Production() || env.DefaultAddr() != ":5000" {
		t.Fatalf("expected production env, got %+v", env)
	}
	if env.DBPath != filepath.Join("/data", "kopra", "kopra.db") {
		t.Fatalf("db path = %q", env.DBPath)
	}

	t.Setenv("KOPRA_ENV", "staging")
	env, err = LoadEnv()
	if err != nil {
		t.Fatalf("LoadEnv: %v", err)
	}
	if env.Production() || env.DefaultAddr() != ":5001" {
		t.Fatalf("expected development env, got %+v", env)
	}
}
