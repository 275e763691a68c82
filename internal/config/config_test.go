package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.GoogleCalendarID != "primary" {
		t.Errorf("expected default calendar id primary, got %s", cfg.GoogleCalendarID)
	}
	if cfg.DefaultVATRatePercent != 17 {
		t.Errorf("expected default VAT rate 17, got %v", cfg.DefaultVATRatePercent)
	}
	if cfg.RepaintBatchSize != 3 {
		t.Errorf("expected default repaint batch size 3, got %d", cfg.RepaintBatchSize)
	}
	if cfg.SyncCacheTTL != 12*time.Hour {
		t.Errorf("expected default sync cache ttl 12h, got %s", cfg.SyncCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DEFAULT_VAT_RATE_PERCENT", "18")
	t.Setenv("REPAINT_BATCH_DELAY", "2s")
	t.Setenv("REPAINT_MAX_RETRIES", "0")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Port)
	}
	if cfg.DefaultVATRatePercent != 18 {
		t.Errorf("expected VAT rate 18, got %v", cfg.DefaultVATRatePercent)
	}
	if cfg.RepaintBatchDelay != 2*time.Second {
		t.Errorf("expected repaint batch delay 2s, got %s", cfg.RepaintBatchDelay)
	}
	if cfg.RepaintMaxRetries != 0 {
		t.Errorf("expected repaint max retries 0, got %d", cfg.RepaintMaxRetries)
	}
}
