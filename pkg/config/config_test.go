package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "./data/skyadmin.db", cfg.DB.Path)
	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 60*time.Second, cfg.Reminder.Interval)
	assert.True(t, cfg.Reminder.MarkUndelivered)
	assert.Equal(t, []string{"notes", "todos"}, cfg.Reminder.EnabledKinds)
	assert.True(t, cfg.Notify.Desktop.Enabled)
	assert.True(t, cfg.Notify.Log.Enabled)
	assert.False(t, cfg.Notify.Telegram.Enabled())
	assert.False(t, cfg.Notify.Discord.Enabled())
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "skyadmin.yaml")
	content := `
db:
  path: /var/lib/skyadmin/app.db
reminder:
  interval: 30s
  mark_undelivered: false
  enabled_kinds: [todos]
notify:
  telegram:
    token: file-token
    chat_id: 1001
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	t.Setenv("SKYADMIN_HTTP__ADDR", "127.0.0.1:9000")
	t.Setenv("SKYADMIN_NOTIFY__TELEGRAM__TOKEN", "env-token")
	t.Setenv("SKYADMIN_LOG__LEVEL", "debug")

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "/var/lib/skyadmin/app.db", cfg.DB.Path)
	assert.Equal(t, "127.0.0.1:9000", cfg.HTTP.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.Reminder.Interval)
	assert.False(t, cfg.Reminder.MarkUndelivered)
	assert.Equal(t, []string{"todos"}, cfg.Reminder.EnabledKinds)
	assert.True(t, cfg.KindEnabled("todos"))
	assert.False(t, cfg.KindEnabled("notes"))
	assert.Equal(t, "env-token", cfg.Notify.Telegram.Token)
	assert.Equal(t, int64(1001), cfg.Notify.Telegram.ChatID)
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("db: [unclosed"), 0600))

	_, err := Load(path)
	require.ErrorContains(t, err, "failed to load config file")
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "reminder.mark_undelivered", envKey("SKYADMIN_REMINDER__MARK_UNDELIVERED"))
	assert.Equal(t, "notify.discord.channel_id", envKey("SKYADMIN_NOTIFY__DISCORD__CHANNEL_ID"))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "zero interval", mutate: func(c *Config) { c.Reminder.Interval = 0 }, wantErr: "interval"},
		{name: "unknown kind", mutate: func(c *Config) { c.Reminder.EnabledKinds = []string{"events"} }, wantErr: "unknown reminder kind"},
		{name: "no kinds", mutate: func(c *Config) { c.Reminder.EnabledKinds = nil }},
		{name: "bad log level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log level"},
		{name: "empty db path", mutate: func(c *Config) { c.DB.Path = "" }, wantErr: "db.path"},
		{name: "telegram without chat", mutate: func(c *Config) { c.Notify.Telegram.Token = "t" }, wantErr: "chat_id"},
		{name: "discord without channel", mutate: func(c *Config) { c.Notify.Discord.Token = "t" }, wantErr: "channel_id"},
		{name: "discord complete", mutate: func(c *Config) {
			c.Notify.Discord.Token = "t"
			c.Notify.Discord.ChannelID = "1"
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Defaults()
			require.NoError(t, err)
			tt.mutate(cfg)
			err = cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Defaults()
	require.NoError(t, err)
	cfg.Reminder.Interval = 90 * time.Second
	cfg.Notify.Discord = DiscordConfig{Token: "abc", ChannelID: "42"}

	path := filepath.Join(t.TempDir(), "conf", "skyadmin.yaml")
	require.NoError(t, cfg.Save(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "interval: 1m30s")

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
