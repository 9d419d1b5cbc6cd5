package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Lease backends.
const (
	LeaseBackendSQLite = "sqlite"
	LeaseBackendRedis  = "redis"
)

// Config holds everything the foreman binary reads from its environment.
type Config struct {
	DBPath     string
	ActorID    string
	TxAttempts int

	LeaseTTL     time.Duration
	LeaseBackend string
	Redis        RedisConfig

	CompletionRequiresFull bool

	LogLevel    slog.Level
	LogUseCases bool
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// DefaultConfig returns a Config with an empty DB path; Load fills it in
// from the home directory when FOREMAN_DB is unset.
func DefaultConfig() Config {
	return Config{
		ActorID:                os.Getenv("USER"),
		TxAttempts:             3,
		LeaseTTL:               15 * time.Minute,
		LeaseBackend:           LeaseBackendSQLite,
		Redis:                  RedisConfig{Addr: "localhost:6379"},
		CompletionRequiresFull: true,
		LogLevel:               slog.LevelInfo,
	}
}

// Load reads a .env file from the working directory when present, then the
// process environment. Malformed values are errors rather than silently
// replaced by defaults.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("reading .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from getenv.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := DefaultConfig()
	var errs []error

	cfg.DBPath = getenv("FOREMAN_DB")
	if cfg.DBPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, fmt.Errorf("finding home directory: %w", err)
		}
		cfg.DBPath = filepath.Join(home, ".foreman", "foreman.db")
	}
	if v := getenv("FOREMAN_ACTOR"); v != "" {
		cfg.ActorID = v
	}

	if v := getenv("FOREMAN_TX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			errs = append(errs, fmt.Errorf("FOREMAN_TX_ATTEMPTS: want a positive count, got %q", v))
		} else {
			cfg.TxAttempts = n
		}
	}

	if v := getenv("FOREMAN_LEASE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FOREMAN_LEASE_TTL: %w", err))
		} else {
			cfg.LeaseTTL = d
		}
	}
	if v := getenv("FOREMAN_LEASE_BACKEND"); v != "" {
		cfg.LeaseBackend = strings.ToLower(v)
	}
	if v := getenv("FOREMAN_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	cfg.Redis.Password = getenv("FOREMAN_REDIS_PASSWORD")
	if v := getenv("FOREMAN_REDIS_DB"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("FOREMAN_REDIS_DB: invalid database number %q", v))
		} else {
			cfg.Redis.DB = n
		}
	}

	if v := getenv("FOREMAN_COMPLETION_REQUIRES_FULL"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FOREMAN_COMPLETION_REQUIRES_FULL: %w", err))
		} else {
			cfg.CompletionRequiresFull = b
		}
	}

	if v := getenv("FOREMAN_LOG_LEVEL"); v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			errs = append(errs, fmt.Errorf("FOREMAN_LOG_LEVEL: %w", err))
		}
	}
	if v := getenv("FOREMAN_LOG_USE_CASES"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("FOREMAN_LOG_USE_CASES: %w", err))
		} else {
			cfg.LogUseCases = b
		}
	}

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.DBPath == "" {
		return fmt.Errorf("database path is required")
	}
	if c.LeaseTTL <= 0 {
		return fmt.Errorf("lease ttl must be positive, got %s", c.LeaseTTL)
	}
	switch c.LeaseBackend {
	case LeaseBackendSQLite:
	case LeaseBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis lease backend needs FOREMAN_REDIS_ADDR")
		}
	default:
		return fmt.Errorf("unknown lease backend %q (want %s or %s)", c.LeaseBackend, LeaseBackendSQLite, LeaseBackendRedis)
	}
	return nil
}
