package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

const (
	defaultPort               = "8080"
	defaultLogLevel           = "info"
	defaultEnvironment        = "development"
	defaultPropagationTimeout = 30 * time.Second
)

// Config holds application configuration sourced from environment variables.
type Config struct {
	DatabaseURL        string
	Port               string
	AllowedOrigins     string
	LogLevel           string
	Environment        string
	PropagationTimeout time.Duration
}

// Load reads environment variables and returns a populated Config. A local
// .env file is loaded best-effort; production should use real env injection.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		Port:               os.Getenv("PORT"),
		AllowedOrigins:     os.Getenv("ALLOWED_ORIGINS"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		Environment:        os.Getenv("ENVIRONMENT"),
		PropagationTimeout: defaultPropagationTimeout,
	}

	if cfg.Port == "" {
		cfg.Port = defaultPort
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = defaultLogLevel
	}
	if cfg.Environment == "" {
		cfg.Environment = defaultEnvironment
	}
	if raw := os.Getenv("PROPAGATION_TIMEOUT"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.PropagationTimeout = d
		}
	}

	return cfg
}
