// Package config loads the bank system settings from the environment and an
// optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	BackendFile     = "file"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"

	NotifierConsole = "console"
	NotifierLog     = "log"
	NotifierAMQP    = "amqp"

	// MaxPhoneSeedCount bounds PHONE_SEED_COUNT well below the number of
	// distinct numbers the generator can produce.
	MaxPhoneSeedCount = 1_000_000
)

// Config captures application runtime configuration.
type Config struct {
	AppName          string        `mapstructure:"APP_NAME"`
	AppEnv           string        `mapstructure:"APP_ENV"`
	LogLevel         string        `mapstructure:"LOG_LEVEL"`
	LogFormat        string        `mapstructure:"LOG_FORMAT"`
	StoreBackend     string        `mapstructure:"STORE_BACKEND"`
	DataDir          string        `mapstructure:"DATA_DIR"`
	DatabaseURL      string        `mapstructure:"DATABASE_URL"`
	RedisURL         string        `mapstructure:"REDIS_URL"`
	RedisPrefix      string        `mapstructure:"REDIS_PREFIX"`
	AMQPURL          string        `mapstructure:"AMQP_URL"`
	Notifier         string        `mapstructure:"NOTIFIER"`
	NotifyExchange   string        `mapstructure:"NOTIFY_EXCHANGE"`
	PhoneSeedCount   int           `mapstructure:"PHONE_SEED_COUNT"`
	PasswordHasher   string        `mapstructure:"PASSWORD_HASHER"`
	PBKDF2Iterations int           `mapstructure:"PBKDF2_ITERATIONS"`
	OTPTimeoutHint   time.Duration `mapstructure:"OTP_TIMEOUT_HINT"`
	UXPause          time.Duration `mapstructure:"UX_PAUSE"`
	OpeningMin       int           `mapstructure:"OPENING_BALANCE_MIN"`
	OpeningMax       int           `mapstructure:"OPENING_BALANCE_MAX"`
	RateLimitMax     int           `mapstructure:"RATE_LIMIT_MAX"`
	RateLimitWindow  time.Duration `mapstructure:"RATE_LIMIT_WINDOW"`
}

var defaults = map[string]any{
	"APP_NAME":            "BankSystem",
	"APP_ENV":             "development",
	"LOG_LEVEL":           "info",
	"LOG_FORMAT":          "json",
	"STORE_BACKEND":       BackendFile,
	"DATA_DIR":            ".",
	"DATABASE_URL":        "",
	"REDIS_URL":           "",
	"REDIS_PREFIX":        "bank:",
	"AMQP_URL":            "",
	"NOTIFIER":            NotifierConsole,
	"NOTIFY_EXCHANGE":     "notifications",
	"PHONE_SEED_COUNT":    10,
	"PASSWORD_HASHER":     "sha256",
	"PBKDF2_ITERATIONS":   210000,
	"OTP_TIMEOUT_HINT":    "3s",
	"UX_PAUSE":            "2s",
	"OPENING_BALANCE_MIN": 100,
	"OPENING_BALANCE_MAX": 5000,
	"RATE_LIMIT_MAX":      0,
	"RATE_LIMIT_WINDOW":   "1m",
}

// Load reads .env from the working directory when present, then the
// environment, and validates the result.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read .env: %w", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() (Config, error) {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
		// AutomaticEnv alone does not feed Unmarshal for keys without a default.
		_ = v.BindEnv(key)
	}
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.StoreBackend = strings.ToLower(strings.TrimSpace(c.StoreBackend))
	c.Notifier = strings.ToLower(strings.TrimSpace(c.Notifier))
	c.PasswordHasher = strings.ToLower(strings.TrimSpace(c.PasswordHasher))
	c.DatabaseURL = strings.TrimSpace(c.DatabaseURL)
	c.RedisURL = strings.TrimSpace(c.RedisURL)
	c.AMQPURL = strings.TrimSpace(c.AMQPURL)
}

// Validate reports the first inconsistent setting, naming its key.
func (c Config) Validate() error {
	switch c.StoreBackend {
	case BackendFile:
		if c.DataDir == "" {
			return fmt.Errorf("DATA_DIR must be set for the file backend")
		}
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when STORE_BACKEND=redis")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when STORE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("invalid STORE_BACKEND %q", c.StoreBackend)
	}

	switch c.Notifier {
	case NotifierConsole, NotifierLog:
	case NotifierAMQP:
		if c.AMQPURL == "" {
			return fmt.Errorf("AMQP_URL must be set when NOTIFIER=amqp")
		}
	default:
		return fmt.Errorf("invalid NOTIFIER %q", c.Notifier)
	}

	switch c.PasswordHasher {
	case "sha256", "pbkdf2":
	default:
		return fmt.Errorf("invalid PASSWORD_HASHER %q", c.PasswordHasher)
	}
	if c.PBKDF2Iterations <= 0 {
		return fmt.Errorf("PBKDF2_ITERATIONS must be positive")
	}
	if c.PhoneSeedCount <= 0 || c.PhoneSeedCount > MaxPhoneSeedCount {
		return fmt.Errorf("PHONE_SEED_COUNT must be between 1 and %d", MaxPhoneSeedCount)
	}
	if c.OpeningMin < 0 {
		return fmt.Errorf("OPENING_BALANCE_MIN must not be negative")
	}
	if c.OpeningMax < c.OpeningMin {
		return fmt.Errorf("OPENING_BALANCE_MAX must not be below OPENING_BALANCE_MIN")
	}
	if c.RateLimitMax < 0 {
		return fmt.Errorf("RATE_LIMIT_MAX must not be negative")
	}
	if c.RateLimitMax > 0 {
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when RATE_LIMIT_MAX is enabled")
		}
		if c.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	if c.UXPause < 0 {
		return fmt.Errorf("UX_PAUSE must not be negative")
	}
	return nil
}

// NeedsRedis reports whether any component is backed by Redis.
func (c Config) NeedsRedis() bool {
	return c.StoreBackend == BackendRedis || c.RateLimitMax > 0
}
