package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	defaultAppName         = "PayoutVault"
	defaultAppEnv          = "development"
	defaultPort            = "8080"
	defaultLogLevel        = "info"
	defaultShutdownDelay   = 10 * time.Second
	defaultIdempotencyTTL  = 24 * time.Hour
	defaultPayoutRateLimit = 30
	defaultLogicVersion    = 1

	// DefaultPayoutInterval is the cooldown between two payouts of the same
	// account when PAYOUT_INTERVAL is not configured: one week.
	DefaultPayoutInterval = 7 * 24 * time.Hour

	configFileEnvVar       = "VAULT_CONFIG"
	idemTTLSecondsEnvVar   = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar       = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar  = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar = "SHUTDOWN_TIMEOUT"
	intervalSecondsEnvVar  = "PAYOUT_INTERVAL_SECONDS"
	intervalDurEnvVar      = "PAYOUT_INTERVAL"
)

// Config captures application runtime configuration loaded from an optional
// TOML file and environment variables. Environment variables win.
type Config struct {
	AppName         string        `toml:"app_name"`
	AppEnv          string        `toml:"app_env"`
	Port            string        `toml:"port"`
	LogLevel        string        `toml:"log_level"`
	DatabaseURL     string        `toml:"database_url"`
	RedisURL        string        `toml:"redis_url"`
	NATSURL         string        `toml:"nats_url"`
	JWTSecret       string        `toml:"jwt_secret"`
	ShutdownPeriod  time.Duration `toml:"shutdown_timeout"`
	IdempotencyTTL  time.Duration `toml:"idempotency_ttl"`
	PayoutInterval  time.Duration `toml:"payout_interval"`
	PayoutRateLimit int           `toml:"payout_rate_limit"`
	LogicVersion    int           `toml:"logic_version"`
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg, err := Read()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Read is Load without validation, for commands that need only part of the
// configuration.
func Read() (Config, error) {
	cfg := Config{
		AppName:         defaultAppName,
		AppEnv:          defaultAppEnv,
		Port:            defaultPort,
		LogLevel:        defaultLogLevel,
		ShutdownPeriod:  defaultShutdownDelay,
		IdempotencyTTL:  defaultIdempotencyTTL,
		PayoutInterval:  DefaultPayoutInterval,
		PayoutRateLimit: defaultPayoutRateLimit,
		LogicVersion:    defaultLogicVersion,
	}

	if path := os.Getenv(configFileEnvVar); path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("decode %s: %w", path, err)
		}
	}

	cfg.AppName = getEnv("APP_NAME", cfg.AppName)
	cfg.AppEnv = getEnv("APP_ENV", cfg.AppEnv)
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.DatabaseURL = getEnv("DATABASE_URL", cfg.DatabaseURL)
	cfg.RedisURL = getEnv("REDIS_URL", cfg.RedisURL)
	cfg.NATSURL = getEnv("NATS_URL", cfg.NATSURL)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.PayoutInterval, err = durationFromEnv(intervalSecondsEnvVar, intervalDurEnvVar, cfg.PayoutInterval); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("PAYOUT_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid PAYOUT_RATE_LIMIT: %w", err)
		}
		cfg.PayoutRateLimit = n
	}
	if v := os.Getenv("LOGIC_VERSION"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LOGIC_VERSION: %w", err)
		}
		cfg.LogicVersion = n
	}
	return cfg, nil
}

// Validate checks the invariants Load cannot express through defaults.
func (c Config) Validate() error {
	if c.PayoutInterval < time.Second || c.PayoutInterval%time.Second != 0 {
		return fmt.Errorf("payout interval must be a positive whole number of seconds, got %s", c.PayoutInterval)
	}
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must be set")
	}
	if !c.IsDev() {
		if c.DatabaseURL == "" {
			return errors.New("DATABASE_URL must be set")
		}
		if c.RedisURL == "" {
			return errors.New("REDIS_URL must be set")
		}
	}
	return nil
}

// IsDev reports whether the service may fall back to in-memory backends.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
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
