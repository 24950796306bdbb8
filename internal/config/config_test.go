package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Listen != ":8080" {
		t.Errorf("Server.Listen = %q, want %q", cfg.Server.Listen, ":8080")
	}
	if cfg.Server.Timezone != "UTC" {
		t.Errorf("Server.Timezone = %q, want %q", cfg.Server.Timezone, "UTC")
	}
	if cfg.Server.HTTPServerTimeout != 30*time.Second {
		t.Errorf("Server.HTTPServerTimeout = %v, want 30s", cfg.Server.HTTPServerTimeout)
	}
	if cfg.SQLite.Path != "noticeboard.db" {
		t.Errorf("SQLite.Path = %q, want %q", cfg.SQLite.Path, "noticeboard.db")
	}
	if !cfg.Scheduler.Enabled || !cfg.Scheduler.RetryEnabled {
		t.Errorf("Scheduler = %+v, want enabled with retries", cfg.Scheduler)
	}
	if cfg.Scheduler.Interval != 30*time.Minute {
		t.Errorf("Scheduler.Interval = %v, want 30m", cfg.Scheduler.Interval)
	}
	if cfg.Alerts.DefaultReminderIntervalHours != 2 {
		t.Errorf("Alerts.DefaultReminderIntervalHours = %d, want 2", cfg.Alerts.DefaultReminderIntervalHours)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "info")
	}
}

func TestEnvToKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"SERVER__LISTEN", "server.listen"},
		{"SERVER__HTTP_SERVER_TIMEOUT", "server.http_server_timeout"},
		{"SQLITE__PATH", "sqlite.path"},
		{"SCHEDULER__RETRY_ENABLED", "scheduler.retry_enabled"},
		{"ALERTS__DEFAULT_REMINDER_INTERVAL_HOURS", "alerts.default_reminder_interval_hours"},
		{"LOGGING__LEVEL", "logging.level"},
	}
	for _, tt := range tests {
		if got := envToKey(tt.in); got != tt.want {
			t.Errorf("envToKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `[server]
listen = ":7070"
timezone = "Asia/Kolkata"

[scheduler]
interval = "5m"

[alerts]
default_reminder_interval_hours = 4
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	// Environment overrides the file; double underscores separate the
	// nesting levels.
	t.Setenv("NOTICEBOARD_SERVER__LISTEN", ":9090")
	t.Setenv("NOTICEBOARD_SCHEDULER__RETRY_ENABLED", "false")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Listen != ":9090" {
		t.Errorf("Server.Listen = %q, want env override %q", cfg.Server.Listen, ":9090")
	}
	if cfg.Server.Timezone != "Asia/Kolkata" {
		t.Errorf("Server.Timezone = %q, want %q", cfg.Server.Timezone, "Asia/Kolkata")
	}
	if cfg.Scheduler.Interval != 5*time.Minute {
		t.Errorf("Scheduler.Interval = %v, want 5m", cfg.Scheduler.Interval)
	}
	if cfg.Scheduler.RetryEnabled {
		t.Error("Scheduler.RetryEnabled = true, want env override false")
	}
	if cfg.Alerts.DefaultReminderIntervalHours != 4 {
		t.Errorf("Alerts.DefaultReminderIntervalHours = %d, want 4", cfg.Alerts.DefaultReminderIntervalHours)
	}

	// Anything the file and environment leave out keeps its default.
	if cfg.SQLite.Path != "noticeboard.db" {
		t.Errorf("SQLite.Path = %q, want default", cfg.SQLite.Path)
	}
	if !cfg.Scheduler.Enabled {
		t.Error("Scheduler.Enabled = false, want default true")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default", cfg.Logging.Level)
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Load() without file = %+v, want defaults", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.Listen = ":9191"
	cfg.Server.Timezone = "America/New_York"
	cfg.SQLite.Path = "/var/lib/noticeboard/data.db"
	cfg.Scheduler.Enabled = false
	cfg.Scheduler.Interval = 15 * time.Minute
	cfg.Logging.Level = "debug"

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded, cfg) {
		t.Errorf("round trip = %+v, want %+v", loaded, cfg)
	}
}

func TestLocation(t *testing.T) {
	tests := []struct {
		name     string
		timezone string
		want     *time.Location
		wantErr  bool
	}{
		{"explicit utc", "UTC", time.UTC, false},
		{"empty falls back to local", "", time.Local, false},
		{"local keyword", "Local", time.Local, false},
		{"unknown zone", "Not/AZone", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			cfg.Server.Timezone = tt.timezone

			loc, err := cfg.Location()
			if tt.wantErr {
				if err == nil {
					t.Fatal("Location() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Location() error = %v", err)
			}
			if loc != tt.want {
				t.Errorf("Location() = %v, want %v", loc, tt.want)
			}
		})
	}
}
