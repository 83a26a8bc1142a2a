// Package config loads medjournal settings from defaults, an optional YAML
// file and MEDJOURNAL_* environment variables, in that order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	EnvPrefix         = "MEDJOURNAL_"
	maxConfigFileSize = 1024 * 1024
)

var supportedLanguages = map[string]struct{}{"en": {}, "ru": {}}

type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Timezone string         `koanf:"timezone"`
	Log      LogConfig      `koanf:"log"`
	Language LanguageConfig `koanf:"language"`
	Redis    RedisConfig    `koanf:"redis"`
	Metrics  MetricsConfig  `koanf:"metrics"`
}

type ServerConfig struct {
	Port            int           `koanf:"port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `koanf:"path"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

type LanguageConfig struct {
	Default string `koanf:"default"`
}

// RedisConfig enables publishing journal changes when Addr is set.
type RedisConfig struct {
	Addr     string `koanf:"addr"`
	Password string `koanf:"password"`
	DB       int    `koanf:"db"`
	Channel  string `koanf:"channel"`
}

type MetricsConfig struct {
	Enabled bool `koanf:"enabled"`
}

func Defaults() Config {
	return Config{
		Server:   ServerConfig{Port: 8080, ShutdownTimeout: 10 * time.Second},
		Database: DatabaseConfig{Path: "data/medjournal.db"},
		Timezone: "UTC",
		Log:      LogConfig{Level: "info", Format: "json"},
		Language: LanguageConfig{Default: "en"},
		Redis:    RedisConfig{Channel: "medjournal:changes"},
		Metrics:  MetricsConfig{Enabled: true},
	}
}

// Load reads configPath when it is non-empty and exists, then applies the
// environment. A missing file is not an error.
func Load(configPath string) (*Config, error) {
	content, err := readConfigFile(configPath)
	if err != nil {
		return nil, err
	}
	return LoadBytes(content)
}

// LoadBytes is Load with the YAML document already in memory.
func LoadBytes(content []byte) (*Config, error) {
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps MEDJOURNAL_SERVER_SHUTDOWN_TIMEOUT to server.shutdown_timeout:
// the first underscore separates the section, the rest stay in the field name.
func envKey(key string) string {
	lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	section, field, found := strings.Cut(lower, "_")
	if !found {
		return section
	}
	return section + "." + field
}

func readConfigFile(configPath string) ([]byte, error) {
	if configPath == "" {
		return nil, nil
	}
	info, err := os.Stat(configPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}
	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func (cfg Config) Validate() error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", cfg.Server.Port)
	}
	if cfg.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout %s", cfg.Server.ShutdownTimeout)
	}
	if strings.TrimSpace(cfg.Database.Path) == "" {
		return errors.New("database path is required")
	}
	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	if _, ok := supportedLanguages[strings.ToLower(cfg.Language.Default)]; !ok {
		return fmt.Errorf("unsupported default language %q", cfg.Language.Default)
	}
	switch cfg.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported log format %q", cfg.Log.Format)
	}
	return nil
}

// Location returns the configured default zone; Validate has already vetted it.
func (cfg Config) Location() *time.Location {
	location, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return time.UTC
	}
	return location
}
