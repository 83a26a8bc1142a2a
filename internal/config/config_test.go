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

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "UTC", cfg.Timezone)
	assert.Equal(t, "en", cfg.Language.Default)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadFileThenEnvironment(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := []byte(`
server:
  port: 9000
  shutdown_timeout: 3s
database:
  path: /var/lib/medjournal/journal.db
timezone: Europe/Berlin
log:
  level: debug
  format: console
redis:
  addr: localhost:6379
`)
	require.NoError(t, os.WriteFile(path, content, 0o600))

	t.Setenv("MEDJOURNAL_SERVER_PORT", "9100")
	t.Setenv("MEDJOURNAL_REDIS_CHANNEL", "journal-events")
	t.Setenv("MEDJOURNAL_METRICS_ENABLED", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, "/var/lib/medjournal/journal.db", cfg.Database.Path)
	assert.Equal(t, "Europe/Berlin", cfg.Location().String())
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "journal-events", cfg.Redis.Channel)
	assert.False(t, cfg.Metrics.Enabled)
}

func TestEnvKeySplitsOnFirstUnderscore(t *testing.T) {
	assert.Equal(t, "server.shutdown_timeout", envKey("MEDJOURNAL_SERVER_SHUTDOWN_TIMEOUT"))
	assert.Equal(t, "language.default", envKey("MEDJOURNAL_LANGUAGE_DEFAULT"))
	assert.Equal(t, "timezone", envKey("MEDJOURNAL_TIMEZONE"))
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(cfg *Config)
	}{
		{name: "port", mutate: func(cfg *Config) { cfg.Server.Port = 70000 }},
		{name: "timezone", mutate: func(cfg *Config) { cfg.Timezone = "Mars/Olympus" }},
		{name: "language", mutate: func(cfg *Config) { cfg.Language.Default = "de" }},
		{name: "log format", mutate: func(cfg *Config) { cfg.Log.Format = "xml" }},
		{name: "database path", mutate: func(cfg *Config) { cfg.Database.Path = " " }},
	}
	for _, testCase := range tests {
		t.Run(testCase.name, func(t *testing.T) {
			cfg := Defaults()
			testCase.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	_, err := LoadBytes([]byte("timezone: Nowhere/City\n"))
	assert.Error(t, err)
}
