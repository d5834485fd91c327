package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultHTTPAddr         = ":8080"
	defaultMetricsAddr      = ""
	defaultConnectorTimeout = 30 * time.Second

	defaultDuplicateWorkers      = 4
	defaultPasswordChangeWorkers = 4

	// SchemaLockModeAdvisory serializes schema generation with a Postgres
	// advisory lock, SchemaLockModeLocal with an in-process mutex.
	SchemaLockModeAdvisory = "advisory"
	SchemaLockModeLocal    = "local"
)

type Config struct {
	DatabaseURL           string
	HTTPAddr              string
	MetricsAddr           string
	AuthCookieSecure      bool
	ConnectorTimeout      time.Duration
	SchemaLockMode        string
	DuplicateWorkers      int
	PasswordChangeWorkers int
}

type LoadOptions struct {
	RequireDatabaseURL bool
}

func Load() (Config, error) {
	return LoadWithOptions(LoadOptions{RequireDatabaseURL: true})
}

func LoadWithOptions(opts LoadOptions) (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, err
		}
	}

	cfg := Config{
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		HTTPAddr:              getenvDefault("HTTP_ADDR", defaultHTTPAddr),
		MetricsAddr:           getenvDefault("METRICS_ADDR", defaultMetricsAddr),
		AuthCookieSecure:      getenvBoolDefault("AUTH_COOKIE_SECURE", false),
		ConnectorTimeout:      defaultConnectorTimeout,
		SchemaLockMode:        strings.ToLower(strings.TrimSpace(getenvDefault("SCHEMA_LOCK_MODE", SchemaLockModeAdvisory))),
		DuplicateWorkers:      getenvIntDefault("DUPLICATE_WORKERS", defaultDuplicateWorkers),
		PasswordChangeWorkers: getenvIntDefault("PASSWORD_CHANGE_WORKERS", defaultPasswordChangeWorkers),
	}

	if v := os.Getenv("CONNECTOR_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.ConnectorTimeout = d
		}
	}

	switch cfg.SchemaLockMode {
	case SchemaLockModeAdvisory, SchemaLockModeLocal:
	default:
		return cfg, errors.New("SCHEMA_LOCK_MODE must be one of: advisory, local")
	}

	if opts.RequireDatabaseURL && cfg.DatabaseURL == "" {
		return cfg, errors.New("DATABASE_URL is required")
	}

	return cfg, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvIntDefault(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func getenvBoolDefault(key string, def bool) bool {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	switch v {
	case "1":
		return true
	case "0":
		return false
	default:
		return def
	}
}
