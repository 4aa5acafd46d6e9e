package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Ensure a clean environment for the keys we read
	keys := []string{
		"SERVER_PORT", "DATABASE_URL", "POLL_ENABLED", "POLL_INTERVAL_SECONDS",
		"POLL_LIMIT", "SPC_AUTO_REFRESH", "SPC_ONCE", "SPC_INTERVAL_MINUTES",
		"LOAD_EXAMPLE_JSON", "ADMIN_KEY", "CSRF_SECRET", "NWS_ALERTS_URL",
		"CORS_ALLOWED_ORIGINS",
	}
	for _, k := range keys {
		os.Unsetenv(k)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Poller.Enabled {
		t.Error("expected poller disabled by default")
	}
	if cfg.Poller.Interval != 300*time.Second {
		t.Errorf("expected default poll interval 300s, got %v", cfg.Poller.Interval)
	}
	if cfg.Poller.Limit != 100 {
		t.Errorf("expected default poll limit 100, got %d", cfg.Poller.Limit)
	}
	if !cfg.Outlook.Enabled {
		t.Error("expected outlook poller enabled by default")
	}
	if cfg.Outlook.Interval != 0 {
		t.Errorf("expected zero outlook interval (top-of-hour mode), got %v", cfg.Outlook.Interval)
	}
	if cfg.Feed.AlertsURL != "https://api.weather.gov/alerts" {
		t.Errorf("unexpected alerts URL: %s", cfg.Feed.AlertsURL)
	}
	if cfg.Feed.UserAgent != "weather-alert-router/1.0" {
		t.Errorf("unexpected user agent: %s", cfg.Feed.UserAgent)
	}
	if len(cfg.Server.CORSOrigins) != 1 || cfg.Server.CORSOrigins[0] != "*" {
		t.Errorf("expected wildcard CORS default, got %v", cfg.Server.CORSOrigins)
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("POLL_ENABLED", "true")
	os.Setenv("POLL_INTERVAL_SECONDS", "60")
	os.Setenv("POLL_LIMIT", "25")
	os.Setenv("SPC_ONCE", "1")
	os.Setenv("SPC_INTERVAL_MINUTES", "30")
	os.Setenv("ADMIN_KEY", "topsecret")
	os.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	defer func() {
		for _, k := range []string{"POLL_ENABLED", "POLL_INTERVAL_SECONDS", "POLL_LIMIT", "SPC_ONCE", "SPC_INTERVAL_MINUTES", "ADMIN_KEY", "CORS_ALLOWED_ORIGINS"} {
			os.Unsetenv(k)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !cfg.Poller.Enabled {
		t.Error("expected poller enabled")
	}
	if cfg.Poller.Interval != 60*time.Second {
		t.Errorf("expected 60s interval, got %v", cfg.Poller.Interval)
	}
	if cfg.Poller.Limit != 25 {
		t.Errorf("expected limit 25, got %d", cfg.Poller.Limit)
	}
	if !cfg.Outlook.Once {
		t.Error("expected outlook once mode")
	}
	if cfg.Outlook.Interval != 30*time.Minute {
		t.Errorf("expected 30m outlook interval, got %v", cfg.Outlook.Interval)
	}
	if cfg.Admin.CSRFSecret != "topsecret" {
		t.Errorf("expected CSRF secret to fall back to admin key, got %q", cfg.Admin.CSRFSecret)
	}
	want := []string{"https://a.example.com", "https://b.example.com"}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[0] != want[0] || cfg.Server.CORSOrigins[1] != want[1] {
		t.Errorf("expected CORS origins %v, got %v", want, cfg.Server.CORSOrigins)
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	cfg.Server.Port = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for invalid port")
	}

	cfg.Server.Port = 8080
	cfg.Database.MaxConns = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero max conns")
	}

	cfg.Database.MaxConns = 10
	cfg.Poller.Limit = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero poll limit")
	}

	cfg.Poller.Limit = 100
	cfg.Poller.Interval = time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for sub-second poll interval")
	}

	cfg.Poller.Interval = time.Minute
	cfg.Feed.FetchTimeout = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero fetch timeout")
	}

	cfg.Feed.FetchTimeout = 30 * time.Second
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}
}
