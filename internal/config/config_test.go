package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	if cfg.General.MaxConcurrentSends != 20 {
		t.Errorf("MaxConcurrentSends = %d, want 20", cfg.General.MaxConcurrentSends)
	}
	if !cfg.Channels.CLI.Enabled {
		t.Error("CLI channel should be enabled by default")
	}
	if cfg.Channels.Telegram.Enabled {
		t.Error("telegram should be disabled until a token is configured")
	}
	if cfg.Health.Port != 8000 {
		t.Errorf("health port = %d, want 8000", cfg.Health.Port)
	}
}

func TestLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{
		"general": {"logLevel": "debug", "maxConcurrentSends": 7},
		"channels": {
			"telegram": {"enabled": true, "token": "abc", "allowFrom": ["123", 456]}
		}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.LogLevel != "debug" {
		t.Errorf("logLevel = %q", cfg.General.LogLevel)
	}
	if cfg.General.MaxConcurrentSends != 7 {
		t.Errorf("maxConcurrentSends = %d, want 7", cfg.General.MaxConcurrentSends)
	}
	// Unset fields keep their defaults.
	if cfg.General.MaxConcurrentMessages != 5 {
		t.Errorf("maxConcurrentMessages = %d, want default 5", cfg.General.MaxConcurrentMessages)
	}
	got := cfg.Channels.Telegram.AllowFrom
	if len(got) != 2 || got[0] != "123" || got[1] != "456" {
		t.Errorf("allowFrom = %v, want [123 456]", got)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
general:
  logLevel: warn
channels:
  telegram:
    enabled: true
    token: xyz
    allowFrom: ["1", 2]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.LogLevel != "warn" {
		t.Errorf("logLevel = %q", cfg.General.LogLevel)
	}
	if cfg.Channels.Telegram.Token != "xyz" {
		t.Errorf("token = %q", cfg.Channels.Telegram.Token)
	}
	got := cfg.Channels.Telegram.AllowFrom
	if len(got) != 2 || got[1] != "2" {
		t.Errorf("allowFrom = %v", got)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BOT_TOKEN", "env-token")
	t.Setenv("PORT", "9100")

	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Channels.Telegram.Token != "env-token" {
		t.Errorf("token = %q, want env override", cfg.Channels.Telegram.Token)
	}
	if !cfg.Channels.Telegram.Enabled {
		t.Error("BOT_TOKEN should enable the telegram channel")
	}
	if cfg.Health.Port != 9100 {
		t.Errorf("health port = %d, want 9100", cfg.Health.Port)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	cfg := Defaults()
	cfg.General.LogLevel = "debug"

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.General.LogLevel != "debug" {
		t.Errorf("logLevel = %q after round trip", loaded.General.LogLevel)
	}
}
