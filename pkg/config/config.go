// Package config loads the service configuration from defaults, an
// optional YAML file and SKYADMIN_ environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"

	"github.com/mklimuk/skyadmin/pkg/db"
)

// EnvPrefix prefixes every environment override. Nested keys are joined
// with a double underscore, e.g. SKYADMIN_REMINDER__INTERVAL.
const EnvPrefix = "SKYADMIN_"

type Config struct {
	DB       DBConfig       `koanf:"db" yaml:"db"`
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
	Log      LogConfig      `koanf:"log" yaml:"log"`
	Reminder ReminderConfig `koanf:"reminder" yaml:"reminder"`
	Notify   NotifyConfig   `koanf:"notify" yaml:"notify"`
}

type DBConfig struct {
	Path string `koanf:"path" yaml:"path"`
}

type HTTPConfig struct {
	Addr string `koanf:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level string `koanf:"level" yaml:"level"`
}

type ReminderConfig struct {
	Interval time.Duration `koanf:"interval" yaml:"interval"`
	// MarkUndelivered marks due reminders fired even when no notification
	// could be delivered.
	MarkUndelivered bool     `koanf:"mark_undelivered" yaml:"mark_undelivered"`
	EnabledKinds    []string `koanf:"enabled_kinds" yaml:"enabled_kinds"`
}

// MarshalYAML writes the interval in its human form.
func (c ReminderConfig) MarshalYAML() (interface{}, error) {
	return struct {
		Interval        string   `yaml:"interval"`
		MarkUndelivered bool     `yaml:"mark_undelivered"`
		EnabledKinds    []string `yaml:"enabled_kinds"`
	}{c.Interval.String(), c.MarkUndelivered, c.EnabledKinds}, nil
}

type NotifyConfig struct {
	Desktop  ToggleConfig   `koanf:"desktop" yaml:"desktop"`
	Log      ToggleConfig   `koanf:"log" yaml:"log"`
	Telegram TelegramConfig `koanf:"telegram" yaml:"telegram"`
	Discord  DiscordConfig  `koanf:"discord" yaml:"discord"`
}

type ToggleConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
}

type TelegramConfig struct {
	Token  string `koanf:"token" yaml:"token"`
	ChatID int64  `koanf:"chat_id" yaml:"chat_id"`
}

// Enabled is true when a bot token is set.
func (c TelegramConfig) Enabled() bool { return c.Token != "" }

type DiscordConfig struct {
	Token     string `koanf:"token" yaml:"token"`
	ChannelID string `koanf:"channel_id" yaml:"channel_id"`
}

// Enabled is true when a bot token is set.
func (c DiscordConfig) Enabled() bool { return c.Token != "" }

// Load reads the configuration. A missing file at configPath is not an
// error; the defaults and environment still apply.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file: %w", err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// Defaults returns the built-in configuration without file or
// environment overrides.
func Defaults() (*Config, error) {
	k := koanf.New(".")
	if err := k.Load(NewDefaultProvider(), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}
	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

// envKey maps SKYADMIN_NOTIFY__TELEGRAM__CHAT_ID to notify.telegram.chat_id.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) Validate() error {
	if c.DB.Path == "" {
		return fmt.Errorf("db.path is required")
	}
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log level: %s", c.Log.Level)
	}
	if c.Reminder.Interval <= 0 {
		return fmt.Errorf("reminder.interval must be positive")
	}
	for _, kind := range c.Reminder.EnabledKinds {
		if !slices.Contains(db.Kinds, kind) {
			return fmt.Errorf("unknown reminder kind: %s (supported: %s)", kind, strings.Join(db.Kinds, ", "))
		}
	}
	if c.Notify.Telegram.Enabled() && c.Notify.Telegram.ChatID == 0 {
		return fmt.Errorf("notify.telegram.chat_id is required when a token is set")
	}
	if c.Notify.Discord.Enabled() && c.Notify.Discord.ChannelID == "" {
		return fmt.Errorf("notify.discord.channel_id is required when a token is set")
	}
	return nil
}

// KindEnabled reports whether the poller for kind should run.
func (c *Config) KindEnabled(kind string) bool {
	return slices.Contains(c.Reminder.EnabledKinds, kind)
}

// Save writes the configuration as YAML, creating parent directories.
func (c *Config) Save(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create config dir: %w", err)
		}
	}
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
