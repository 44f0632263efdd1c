package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.TelemetryBaseURL != "http://localhost:5000" {
		t.Fatalf("expected default base URL, got %s", cfg.TelemetryBaseURL)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("expected default poll interval 2s, got %s", cfg.PollInterval)
	}
	if cfg.HistoryLimit != 20 {
		t.Fatalf("expected history limit 20, got %d", cfg.HistoryLimit)
	}
	if cfg.LinkStaleTimeout != 10*time.Second {
		t.Fatalf("expected link stale timeout 10s, got %s", cfg.LinkStaleTimeout)
	}
	if cfg.AlertCODMax != 500 || cfg.AlertPhenolMax != 5 || cfg.AlertOilGreaseMax != 50 {
		t.Fatalf("unexpected default thresholds: %+v", cfg)
	}
	if cfg.TelegramEnabled() || cfg.FirebaseEnabled() {
		t.Fatalf("optional sinks should be disabled by default")
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TELEMETRY_BASE_URL", "http://scada.local:5000")
	t.Setenv("POLL_INTERVAL", "3000")
	t.Setenv("REQUEST_TIMEOUT", "750ms")
	t.Setenv("ALERT_COD_MAX", "450.5")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	if cfg.TelemetryBaseURL != "http://scada.local:5000" {
		t.Fatalf("expected base URL from env, got %s", cfg.TelemetryBaseURL)
	}
	if cfg.PollInterval != 3*time.Second {
		t.Fatalf("expected bare milliseconds to parse as 3s, got %s", cfg.PollInterval)
	}
	if cfg.RequestTimeout != 750*time.Millisecond {
		t.Fatalf("expected 750ms timeout, got %s", cfg.RequestTimeout)
	}
	if cfg.AlertCODMax != 450.5 {
		t.Fatalf("expected COD threshold 450.5, got %f", cfg.AlertCODMax)
	}
	if cfg.RedisDB != 0 {
		t.Fatalf("expected invalid int to fall back to 0, got %d", cfg.RedisDB)
	}
}

func TestLoadConfigReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	data := "TELEGRAM_BOT_TOKEN=token\nTELEGRAM_CHAT_ID=42\n"
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte(data), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() {
		os.Unsetenv("TELEGRAM_BOT_TOKEN")
		os.Unsetenv("TELEGRAM_CHAT_ID")
	})

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if !cfg.TelegramEnabled() {
		t.Fatalf("expected telegram to be enabled from .env")
	}
}

// chdir changes the working directory for the duration of the test
// (equivalent of testing.T.Chdir, which needs Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
