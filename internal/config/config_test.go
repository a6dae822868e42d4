package config

import (
	"testing"
	"time"
)

func TestLoad_AppEnvValidation(t *testing.T) {
	t.Setenv("APP_ENV", "invalid")
	if _, err := Load(); err == nil {
		t.Fatalf("expected error for invalid APP_ENV")
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.CalendarID != "primary" {
		t.Fatalf("unexpected CalendarID: %q", cfg.CalendarID)
	}
	if cfg.EventDuration != 2*time.Hour {
		t.Fatalf("unexpected EventDuration: %s", cfg.EventDuration)
	}
	if cfg.EventTimeZone != "Asia/Jerusalem" {
		t.Fatalf("unexpected EventTimeZone: %q", cfg.EventTimeZone)
	}
	if cfg.SyncCreateWorkers != 1 {
		t.Fatalf("expected sequential execution by default, got workers=%d", cfg.SyncCreateWorkers)
	}
	if len(cfg.ReminderLeads) != 2 {
		t.Fatalf("unexpected reminders: %+v", cfg.ReminderLeads)
	}
	if cfg.ReminderLeads[0].Method != "email" || cfg.ReminderLeads[0].Minutes != 1440 {
		t.Fatalf("unexpected email reminder: %+v", cfg.ReminderLeads[0])
	}
	if cfg.ReminderLeads[1].Method != "popup" || cfg.ReminderLeads[1].Minutes != 60 {
		t.Fatalf("unexpected popup reminder: %+v", cfg.ReminderLeads[1])
	}
}

func TestLoad_InvalidTimezone(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("EVENT_TIMEZONE", "Mars/Olympus_Mons")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for unknown timezone")
	}
}

func TestLoad_InvalidReminderMethodFailsValidation(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("EVENT_REMINDERS", "carrier_pigeon:30")

	if _, err := Load(); err == nil {
		t.Fatalf("expected validation error for unknown reminder method")
	}
}

func TestLoad_MalformedReminders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("EVENT_REMINDERS", "email=1440")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for malformed reminder")
	}
}

func TestLoad_UptraceRequiresDSNWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when UPTRACE_ENABLED=true without UPTRACE_DSN")
	}
}

func TestLoad_UptraceDSNFromOTLPHeaders(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("UPTRACE_ENABLED", "true")
	t.Setenv("UPTRACE_DSN", "")
	t.Setenv("OTEL_EXPORTER_OTLP_HEADERS", `uptrace-dsn="https://token@api.uptrace.dev?grpc=4317"`)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UptraceDSN != "https://token@api.uptrace.dev?grpc=4317" {
		t.Fatalf("unexpected UptraceDSN: %q", cfg.UptraceDSN)
	}
}

func TestLoad_PyroscopeRequiresAddressWhenEnabled(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("PYROSCOPE_ENABLED", "true")
	t.Setenv("PYROSCOPE_SERVER_ADDRESS", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error when PYROSCOPE_ENABLED=true without server address")
	}
}

func TestLoad_CreateWorkersMustBePositive(t *testing.T) {
	t.Setenv("APP_ENV", EnvDev)
	t.Setenv("SYNC_CREATE_WORKERS", "0")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for SYNC_CREATE_WORKERS=0")
	}
}
