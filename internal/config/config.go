package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
)

type Config struct {
	Port    string
	BaseURL string

	StoreDriver   string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	CodeLength    int
	MaxAttempts   int
	EnforceExpiry bool

	TelegramToken string
	QRSize        int
	LogLevel      slog.Level
}

// Load reads an optional .env file and then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("Error loading .env file", "error", err)
	}
	return FromEnv()
}

func FromEnv() (Config, error) {
	cfg := Config{}
	cfg.Port = getenvDefault("PORT", "8000")
	cfg.BaseURL = strings.TrimRight(getenvDefault("BASE_URL", "http://127.0.0.1:"+cfg.Port), "/")

	cfg.StoreDriver = strings.ToLower(getenvDefault("STORE_DRIVER", DriverMemory))
	cfg.DatabaseURL = os.Getenv("DB_URL")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	var err error
	if cfg.RedisDB, err = getenvIntDefault("REDIS_DB", 0); err != nil {
		return Config{}, err
	}
	cfg.RedisPrefix = getenvDefault("REDIS_PREFIX", "shortlink")

	if cfg.CodeLength, err = getenvIntDefault("CODE_LENGTH", 6); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts, err = getenvIntDefault("MAX_ATTEMPTS", 100); err != nil {
		return Config{}, err
	}
	if cfg.EnforceExpiry, err = getenvBoolDefault("ENFORCE_EXPIRY", false); err != nil {
		return Config{}, err
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_API_TOKEN")
	if cfg.QRSize, err = getenvIntDefault("QR_SIZE", 256); err != nil {
		return Config{}, err
	}

	level, err := parseLevel(getenvDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, err
	}
	cfg.LogLevel = level

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres, DriverSQLite, DriverMySQL:
		if strings.TrimSpace(c.DatabaseURL) == "" {
			return fmt.Errorf("DB_URL is required when STORE_DRIVER=%s", c.StoreDriver)
		}
	case DriverRedis:
		if strings.TrimSpace(c.RedisAddr) == "" {
			return errors.New("REDIS_ADDR is required when STORE_DRIVER=redis")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if c.CodeLength <= 0 || c.CodeLength > 64 {
		return errors.New("CODE_LENGTH must be between 1 and 64")
	}
	if c.MaxAttempts <= 0 {
		return errors.New("MAX_ATTEMPTS must be > 0")
	}
	if c.QRSize <= 0 {
		return errors.New("QR_SIZE must be > 0")
	}
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q: %w", s, err)
	}
	return level, nil
}

func getenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(k string, def int) (int, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return i, nil
}

func getenvBoolDefault(k string, def bool) (bool, error) {
	v := os.Getenv(k)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	if err != nil {
		return false, fmt.Errorf("invalid %s %q: %w", k, v, err)
	}
	return b, nil
}
