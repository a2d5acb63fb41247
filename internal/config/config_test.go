package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{
		"PETCARE_HTTP_ADDR", "PETCARE_TIMEZONE", "PETCARE_SCHEDULER_AT", "PETCARE_COMMISSION_DEFAULT",
		"PETCARE_PAYMENT_REQUIRED", "PETCARE_KAFKA_BROKERS", "PETCARE_LOG_LEVEL",
	} {
		t.Setenv(k, "")
	}
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTP.Addr != ":8080" || cfg.Location != time.UTC {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Scheduler.Hour != 0 || cfg.Scheduler.Minute != 5 || cfg.Scheduler.LockTTL != 10*time.Minute {
		t.Fatalf("unexpected scheduler defaults: %+v", cfg.Scheduler)
	}
	if cfg.Pricing.DefaultRate != 0.06 || cfg.Booking.PaymentRequired || len(cfg.Kafka.Brokers) != 0 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Log.Level != slog.LevelInfo {
		t.Fatalf("expected info level, got %v", cfg.Log.Level)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PETCARE_TIMEZONE", "Asia/Taipei")
	t.Setenv("PETCARE_SCHEDULER_AT", "03:30")
	t.Setenv("PETCARE_PAYMENT_REQUIRED", "true")
	t.Setenv("PETCARE_KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("PETCARE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Location.String() != "Asia/Taipei" || cfg.Scheduler.Hour != 3 || cfg.Scheduler.Minute != 30 {
		t.Fatalf("unexpected overrides: %v %+v", cfg.Location, cfg.Scheduler)
	}
	if !cfg.Booking.PaymentRequired || len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Fatalf("unexpected overrides: %+v", cfg)
	}
	if cfg.Log.Level != slog.LevelDebug {
		t.Fatalf("expected debug level, got %v", cfg.Log.Level)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := map[string]string{
		"PETCARE_SCHEDULER_AT":       "25:99",
		"PETCARE_TIMEZONE":           "Mars/Olympus",
		"PETCARE_COMMISSION_DEFAULT": "1.5",
		"PETCARE_LOG_LEVEL":          "loud",
	}
	for key, val := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, val)
			}
		})
	}
}
