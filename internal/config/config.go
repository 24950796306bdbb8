// Package config provides configuration management for the noticeboard server.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Config represents the server configuration
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	SQLite    SQLiteConfig    `koanf:"sqlite"`
	Scheduler SchedulerConfig `koanf:"scheduler"`
	Alerts    AlertsConfig    `koanf:"alerts"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Listen            string        `koanf:"listen"`
	Timezone          string        `koanf:"timezone"`
	HTTPServerTimeout time.Duration `koanf:"http_server_timeout"`
}

// SQLiteConfig holds database settings
type SQLiteConfig struct {
	Path string `koanf:"path"`
}

// SchedulerConfig holds reminder scheduler settings
type SchedulerConfig struct {
	Enabled      bool          `koanf:"enabled"`
	Interval     time.Duration `koanf:"interval"`
	RetryEnabled bool          `koanf:"retry_enabled"`
}

// AlertsConfig holds alert defaults applied at creation time
type AlertsConfig struct {
	DefaultReminderIntervalHours int `koanf:"default_reminder_interval_hours"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `koanf:"level"`
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:            ":8080",
			Timezone:          "UTC",
			HTTPServerTimeout: 30 * time.Second,
		},
		SQLite: SQLiteConfig{
			Path: "noticeboard.db",
		},
		Scheduler: SchedulerConfig{
			Enabled:      true,
			Interval:     30 * time.Minute,
			RetryEnabled: true,
		},
		Alerts: AlertsConfig{
			DefaultReminderIntervalHours: 2,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from file and environment
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start with defaults
	cfg := Default()

	// Load from file if it exists
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	// Load from environment variables (NOTICEBOARD_*)
	if err := k.Load(env.Provider("NOTICEBOARD_", ".", func(s string) string {
		// NOTICEBOARD_SERVER__LISTEN -> server.listen
		return envToKey(s[len("NOTICEBOARD_"):])
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// Unmarshal into config struct
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given path as TOML
func (c *Config) Save(path string) error {
	k := koanf.New(".")
	if err := k.Load(confmap{c}, nil); err != nil {
		return err
	}

	data, err := k.Marshal(toml.Parser())
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Location resolves the configured timezone. Day boundaries, such as
// snooze expiry, are computed in this zone.
func (c *Config) Location() (*time.Location, error) {
	tz := c.Server.Timezone
	if tz == "" || tz == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", tz, err)
	}
	return loc, nil
}

// envToKey converts an environment variable suffix to a config key,
// e.g. SERVER__LISTEN -> server.listen. Double underscores separate
// nesting levels so keys like http_server_timeout stay intact.
func envToKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), "__", ".")
}

// confmap implements koanf.Provider for Config struct
type confmap struct {
	cfg *Config
}

func (c confmap) ReadBytes() ([]byte, error) { return nil, nil }
func (c confmap) Read() (map[string]any, error) {
	return map[string]any{
		"server": map[string]any{
			"listen":              c.cfg.Server.Listen,
			"timezone":            c.cfg.Server.Timezone,
			"http_server_timeout": c.cfg.Server.HTTPServerTimeout.String(),
		},
		"sqlite": map[string]any{
			"path": c.cfg.SQLite.Path,
		},
		"scheduler": map[string]any{
			"enabled":       c.cfg.Scheduler.Enabled,
			"interval":      c.cfg.Scheduler.Interval.String(),
			"retry_enabled": c.cfg.Scheduler.RetryEnabled,
		},
		"alerts": map[string]any{
			"default_reminder_interval_hours": c.cfg.Alerts.DefaultReminderIntervalHours,
		},
		"logging": map[string]any{
			"level": c.cfg.Logging.Level,
		},
	}, nil
}
