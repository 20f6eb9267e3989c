package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultAppName         = "StakePool"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultRootID          = "root"
	defaultRootName        = "Root"
	defaultBoltPath        = "data/stakepool.db"
	defaultSignupRateLimit = 10
	defaultEngineLockWait  = 5 * time.Second
	lockWaitSecondsEnvVar  = "ENGINE_LOCK_WAIT_SECONDS"
	lockWaitDurEnvVar      = "ENGINE_LOCK_WAIT"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBolt     = "bolt"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	Port            string
	LogLevel        string
	DatabaseURL     string
	RedisURL        string
	ShutdownPeriod  time.Duration
	IdempotencyTTL  time.Duration
	RootID          string
	RootName        string
	StoreDriver     string
	BoltPath        string
	RewardSchedule  string
	AdminTokenHash  string
	SignupRateLimit int
	NotifyChannel   string
	EngineLockWait  time.Duration
}

// Load reads an optional .env file, then configuration values from the
// environment. Variables already set in the environment win over the file.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv populates a Config from the process environment only.
func FromEnv() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:            getEnv("PORT", defaultPort),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		RedisURL:        os.Getenv("REDIS_URL"),
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		RootID:          getEnv("ROOT_ID", defaultRootID),
		RootName:        getEnv("ROOT_NAME", defaultRootName),
		BoltPath:        getEnv("BOLT_PATH", defaultBoltPath),
		RewardSchedule:  strings.TrimSpace(os.Getenv("REWARD_SCHEDULE")),
		AdminTokenHash:  os.Getenv("ADMIN_TOKEN_HASH"),
		SignupRateLimit: defaultSignupRateLimit,
		NotifyChannel:   os.Getenv("NOTIFY_CHANNEL"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.EngineLockWait, err = durationEnv(lockWaitSecondsEnvVar, lockWaitDurEnvVar, defaultEngineLockWait); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("SIGNUP_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid SIGNUP_RATE_LIMIT: %w", err)
		}
		cfg.SignupRateLimit = n
	}

	cfg.StoreDriver = strings.ToLower(os.Getenv("STORE_DRIVER"))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreMemory
		if cfg.DatabaseURL != "" {
			cfg.StoreDriver = StorePostgres
		}
	}
	switch cfg.StoreDriver {
	case StoreMemory, StoreBolt:
	case StorePostgres:
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set for the postgres store")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
	}

	if !cfg.IsDevelopment() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set")
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set")
		}
		if cfg.AdminTokenHash == "" {
			return Config{}, fmt.Errorf("ADMIN_TOKEN_HASH must be set")
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in a local development setup,
// where Postgres and Redis are optional.
func (c Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "test"
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if v := os.Getenv(secondsKey); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
		}
		return time.Duration(seconds) * time.Second, nil
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
