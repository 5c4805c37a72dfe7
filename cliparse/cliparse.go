package cliparse

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinTokenSecretLen matches the shortest HS256 secret the verifier accepts.
const MinTokenSecretLen = 16

type Config struct {
	Port           int           `env:"PORT" envDefault:"3318"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	DatabaseType   string        `env:"DATABASE_TYPE" envDefault:"sqlite"`
	TokenSecret    string        `env:"TOKEN_SECRET"`
	LogLevel       string        `env:"LOG_LEVEL" envDefault:"info"`
	OTELEndpoint   string        `env:"OTEL_ENDPOINT"`
	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"10s"`
}

// ParseFlags reads the environment, then lets command-line flags override it.
func ParseFlags(args []string) (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("invalid environment: %w", err)
	}

	fs := flag.NewFlagSet("ballotbox", flag.ContinueOnError)

	// Network config (can be CLI args or env)
	fs.IntVar(&cfg.Port, "p", cfg.Port, "Server port")
	fs.StringVar(&cfg.DatabaseURL, "d", cfg.DatabaseURL, "Database URL")
	fs.StringVar(&cfg.DatabaseType, "t", cfg.DatabaseType, "Database type (sqlite or postgres)")

	// Secrets (prefer env variables, but allow CLI for dev)
	fs.StringVar(&cfg.TokenSecret, "token-secret", cfg.TokenSecret, "Bearer token HS256 secret (prefer env)")

	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	fs.StringVar(&cfg.OTELEndpoint, "otel-endpoint", cfg.OTELEndpoint, "OTLP/HTTP trace endpoint (empty disables tracing)")
	fs.DurationVar(&cfg.RequestTimeout, "request-timeout", cfg.RequestTimeout, "Per-request timeout")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return Config{}, errors.New("invalid port")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, errors.New("database URL required (use -d or DATABASE_URL env)")
	}
	cfg.DatabaseType = strings.ToLower(cfg.DatabaseType)
	if cfg.DatabaseType != "sqlite" && cfg.DatabaseType != "postgres" {
		return Config{}, fmt.Errorf("unsupported database type %q (use sqlite or postgres)", cfg.DatabaseType)
	}

	// Secrets - MUST be provided
	if cfg.TokenSecret == "" {
		return Config{}, errors.New("TOKEN_SECRET required")
	}
	if len(cfg.TokenSecret) < MinTokenSecretLen {
		return Config{}, fmt.Errorf("TOKEN_SECRET must be at least %d bytes", MinTokenSecretLen)
	}

	if _, err := cfg.SlogLevel(); err != nil {
		return Config{}, err
	}
	if cfg.RequestTimeout <= 0 {
		return Config{}, errors.New("request timeout must be positive")
	}

	return cfg, nil
}

// SlogLevel converts LogLevel to a slog.Level.
func (c Config) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return level, nil
}
