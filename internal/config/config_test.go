package config

import "testing"

func TestLoadReadsCriticalEnvKeys(t *testing.T) {
	t.Setenv("HEARTH_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("HEARTH_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("HEARTH_ENV", "development")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.DBDSN == "" {
		t.Fatal("expected DB DSN to be set")
	}
	if cfg.JWTSigningKey != "supersecret" {
		t.Fatalf("unexpected jwt signing key: %q", cfg.JWTSigningKey)
	}
	if cfg.SweepCron != "0 6 * * *" {
		t.Fatalf("unexpected default sweep cron: %q", cfg.SweepCron)
	}
	if cfg.UpdateCheckEnabled {
		t.Fatal("update check must be off by default")
	}
}

func TestLoadRejectsMissingDSN(t *testing.T) {
	t.Setenv("HEARTH_DB_DSN", "")
	t.Setenv("HEARTH_JWT_SIGNING_KEY", "supersecret")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail without DSN")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	t.Setenv("HEARTH_DB_DSN", "file::memory:")
	t.Setenv("HEARTH_JWT_SIGNING_KEY", "supersecret")
	t.Setenv("HEARTH_DB_BACKEND", "oracle")

	if _, err := Load(); err == nil {
		t.Fatal("expected config load to fail for unknown backend")
	}
}

func TestLoadProductionRequiresStrongSigningKey(t *testing.T) {
	t.Setenv("HEARTH_DB_DSN", "host=localhost user=test dbname=test sslmode=disable")
	t.Setenv("HEARTH_ENV", "production")
	t.Setenv("HEARTH_JWT_SIGNING_KEY", "short")

	if _, err := Load(); err == nil {
		t.Fatal("expected production config load to fail with short signing key")
	}

	t.Setenv("HEARTH_JWT_SIGNING_KEY", "0123456789abcdef0123456789abcdef")
	if _, err := Load(); err != nil {
		t.Fatalf("expected production config load with strong key to succeed: %v", err)
	}
}
