package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"APP_NAME", "APP_ENV", "PORT", "LOG_LEVEL", "DATABASE_URL", "REDIS_URL",
		"SHUTDOWN_TIMEOUT", "SHUTDOWN_TIMEOUT_SECONDS", "IDEMPOTENCY_TTL", "IDEMPOTENCY_TTL_SECONDS",
		"ROOT_ID", "ROOT_NAME", "STORE_DRIVER", "BOLT_PATH", "REWARD_SCHEDULE",
		"ADMIN_TOKEN_HASH", "SIGNUP_RATE_LIMIT", "NOTIFY_CHANNEL",
		"ENGINE_LOCK_WAIT", "ENGINE_LOCK_WAIT_SECONDS",
	} {
		t.Setenv(key, "")
	}
}

func TestFromEnvDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.StoreDriver != StoreMemory {
		t.Fatalf("expected memory store, got %s", cfg.StoreDriver)
	}
	if cfg.RootID != "root" || cfg.SignupRateLimit != 10 {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.IdempotencyTTL != 24*time.Hour || cfg.ShutdownPeriod != 10*time.Second || cfg.EngineLockWait != 5*time.Second {
		t.Fatalf("unexpected durations %s %s %s", cfg.IdempotencyTTL, cfg.ShutdownPeriod, cfg.EngineLockWait)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("unexpected address %s", cfg.Address())
	}
}

func TestFromEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("STORE_DRIVER", "bolt")
	t.Setenv("BOLT_PATH", "/tmp/ledger.db")
	t.Setenv("SHUTDOWN_TIMEOUT", "3s")
	t.Setenv("IDEMPOTENCY_TTL_SECONDS", "60")
	t.Setenv("REWARD_SCHEDULE", " @daily ")
	t.Setenv("SIGNUP_RATE_LIMIT", "3")
	t.Setenv("PORT", ":9090")
	t.Setenv("ENGINE_LOCK_WAIT", "250ms")

	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.StoreDriver != StoreBolt || cfg.BoltPath != "/tmp/ledger.db" {
		t.Fatalf("unexpected store config %+v", cfg)
	}
	if cfg.ShutdownPeriod != 3*time.Second || cfg.IdempotencyTTL != time.Minute {
		t.Fatalf("unexpected durations %s %s", cfg.ShutdownPeriod, cfg.IdempotencyTTL)
	}
	if cfg.EngineLockWait != 250*time.Millisecond {
		t.Fatalf("unexpected lock wait %s", cfg.EngineLockWait)
	}
	if cfg.RewardSchedule != "@daily" || cfg.SignupRateLimit != 3 || cfg.Address() != ":9090" {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
}

func TestFromEnvRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"bad driver":          {"STORE_DRIVER", "sqlite"},
		"postgres without db": {"STORE_DRIVER", "postgres"},
		"bad rate":            {"SIGNUP_RATE_LIMIT", "many"},
		"bad ttl":             {"IDEMPOTENCY_TTL", "soon"},
		"bad lock wait":       {"ENGINE_LOCK_WAIT_SECONDS", "x"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(kv[0], kv[1])
			if _, err := FromEnv(); err == nil {
				t.Fatalf("expected error for %s=%s", kv[0], kv[1])
			}
		})
	}
}

func TestFromEnvRequiresInfraOutsideDevelopment(t *testing.T) {
	clearEnv(t)
	t.Setenv("APP_ENV", "production")
	if _, err := FromEnv(); err == nil {
		t.Fatal("expected missing DATABASE_URL error")
	}

	t.Setenv("DATABASE_URL", "postgres://localhost/stakepool")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("ADMIN_TOKEN_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	cfg, err := FromEnv()
	if err != nil {
		t.Fatalf("from env: %v", err)
	}
	if cfg.StoreDriver != StorePostgres {
		t.Fatalf("expected postgres store when DATABASE_URL is set, got %s", cfg.StoreDriver)
	}
}

func TestLoadReadsDotEnv(t *testing.T) {
	clearEnv(t)
	// .env never overrides a variable that is present, even when empty.
	os.Unsetenv("ROOT_NAME")
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("ROOT_NAME=Genesis\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.RootName != "Genesis" {
		t.Fatalf("expected root name from .env, got %q", cfg.RootName)
	}
}
