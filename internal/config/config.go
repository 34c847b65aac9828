package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for calcbot.
type Config struct {
	General  GeneralConfig  `json:"general" yaml:"general"`
	Channels ChannelsConfig `json:"channels" yaml:"channels"`
	Health   HealthConfig   `json:"health" yaml:"health"`
	Stats    StatsConfig    `json:"stats" yaml:"stats"`
}

type GeneralConfig struct {
	LogLevel              string `json:"logLevel" yaml:"logLevel"`
	MaxConcurrentMessages int    `json:"maxConcurrentMessages" yaml:"maxConcurrentMessages"`
	MaxConcurrentSends    int    `json:"maxConcurrentSends" yaml:"maxConcurrentSends"`
}

type ChannelsConfig struct {
	Telegram  TelegramConfig  `json:"telegram" yaml:"telegram"`
	Discord   DiscordConfig   `json:"discord,omitempty" yaml:"discord"`
	Slack     SlackConfig     `json:"slack,omitempty" yaml:"slack"`
	WebSocket WebSocketConfig `json:"websocket,omitempty" yaml:"websocket"`
	CLI       CLIConfig       `json:"cli" yaml:"cli"`
}

type TelegramConfig struct {
	Enabled    bool           `json:"enabled" yaml:"enabled"`
	Token      string         `json:"token" yaml:"token"`
	AllowFrom  FlexStringList `json:"allowFrom" yaml:"allowFrom"`
	UpdatesURL string         `json:"updatesUrl,omitempty" yaml:"updatesUrl"`
	SupportURL string         `json:"supportUrl,omitempty" yaml:"supportUrl"`
}

type DiscordConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Token   string `json:"token" yaml:"token"`
	GuildID string `json:"guildId,omitempty" yaml:"guildId"` // optional: restrict to specific guild
}

type SlackConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	BotToken string `json:"botToken" yaml:"botToken"`
	AppToken string `json:"appToken" yaml:"appToken"` // required for Socket Mode
}

type WebSocketConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Port    int    `json:"port" yaml:"port"`
	Path    string `json:"path,omitempty" yaml:"path"`
}

type CLIConfig struct {
	Enabled bool `json:"enabled" yaml:"enabled"`
}

type HealthConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Host    string `json:"host" yaml:"host"`
	Port    int    `json:"port" yaml:"port"`
}

type StatsConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	DBPath  string `json:"dbPath" yaml:"dbPath"`
}

// FlexStringList is a []string that can unmarshal from JSON arrays
// containing both strings and numbers (e.g. ["123", 456] both become
// "123", "456"). Telegram user IDs are numeric and people paste them
// unquoted all the time.
type FlexStringList []string

func (f *FlexStringList) UnmarshalJSON(data []byte) error {
	var ss []string
	if err := json.Unmarshal(data, &ss); err == nil {
		*f = ss
		return nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	result := make([]string, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			result = append(result, s)
			continue
		}
		var n float64
		if err := json.Unmarshal(item, &n); err == nil {
			result = append(result, strconv.FormatInt(int64(n), 10))
			continue
		}
		result = append(result, string(item))
	}
	*f = result
	return nil
}

func (f *FlexStringList) UnmarshalYAML(value *yaml.Node) error {
	var ss []string
	if err := value.Decode(&ss); err == nil {
		*f = ss
		return nil
	}
	var mixed []any
	if err := value.Decode(&mixed); err != nil {
		return err
	}
	result := make([]string, 0, len(mixed))
	for _, item := range mixed {
		result = append(result, fmt.Sprint(item))
	}
	*f = result
	return nil
}

// DefaultConfigDir returns ~/.calcbot.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".calcbot"
	}
	return filepath.Join(home, ".calcbot")
}

// DefaultConfigPath returns ~/.calcbot/config.json.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.json")
}

// Load reads a config file (JSON, or YAML for .yaml/.yml paths), applies
// environment overrides, and expands ~ in paths.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	cfg := Defaults()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse json config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Stats.DBPath = expandHome(cfg.Stats.DBPath)
	return cfg, nil
}

// applyEnvOverrides honors the deploy-time environment variables:
// BOT_TOKEN for the Telegram token and PORT for the health server.
func applyEnvOverrides(cfg *Config) {
	if token := os.Getenv("BOT_TOKEN"); token != "" {
		cfg.Channels.Telegram.Token = token
		cfg.Channels.Telegram.Enabled = true
	}
	if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Health.Port = p
		}
	}
}

// Save writes the config as indented JSON.
func Save(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
