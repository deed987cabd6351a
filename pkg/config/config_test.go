package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RedisAddr() != "redis:6379" {
		t.Errorf("redis addr = %q, want redis:6379", cfg.RedisAddr())
	}
	if cfg.ReconcileInterval() != 1800*time.Second {
		t.Errorf("reconcile interval = %v, want 30m", cfg.ReconcileInterval())
	}
	if cfg.MetricsWindow() != 168*time.Hour {
		t.Errorf("metrics window = %v, want 168h", cfg.MetricsWindow())
	}
	if cfg.HistoryDSN != "" {
		t.Errorf("history dsn default = %q, want empty", cfg.HistoryDSN)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("AWS_PRICING_URL", "http://localhost:9001")
	t.Setenv("REDIS_HOST", "cache.internal")
	t.Setenv("REDIS_PORT", "6380")
	t.Setenv("COSTOPT_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.AWSPricingURL != "http://localhost:9001" {
		t.Errorf("aws pricing url = %q", cfg.AWSPricingURL)
	}
	if cfg.RedisAddr() != "cache.internal:6380" {
		t.Errorf("redis addr = %q", cfg.RedisAddr())
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
}
