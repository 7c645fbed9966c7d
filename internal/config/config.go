// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// API performance tracking
	StatLog        bool          `env:"STAT_LOG" envDefault:"true"`
	ReportInterval time.Duration `env:"REPORT_INTERVAL" envDefault:"0s"`

	// Tx status recording (PostgreSQL)
	RecordTxStatus bool   `env:"RECORD_TX_STATUS" envDefault:"false"`
	DatabaseURL    string `env:"DATABASE_URL"`
	AutoMigrate    bool   `env:"AUTO_MIGRATE" envDefault:"true"`

	// Pool sizing. Each batch inserts its records one at a time, so MaxConns
	// bounds how many batches write concurrently.
	DBMaxConns        int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns        int32         `env:"DB_MIN_CONNS" envDefault:"1"`
	DBMaxConnIdleTime time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`

	// Stream transport (Redis)
	RedisURL        string `env:"REDIS_URL"`
	TxStreamEnabled bool   `env:"TX_STREAM_ENABLED" envDefault:"false"`

	// Stream worker tuning
	TxStreamBatchSize     int           `env:"TX_STREAM_BATCH_SIZE" envDefault:"100"`
	TxStreamBlockTimeout  time.Duration `env:"TX_STREAM_BLOCK_TIMEOUT" envDefault:"5s"`
	TxStreamClaimInterval time.Duration `env:"TX_STREAM_CLAIM_INTERVAL" envDefault:"10s"`
	TxStreamClaimIdle     time.Duration `env:"TX_STREAM_CLAIM_IDLE" envDefault:"30s"`

	// Argon2id hash of the bearer token guarding /debug/perf/report
	AdminTokenHash string `env:"ADMIN_TOKEN_HASH"`
	// Failed admin auth attempts take at least this long
	AdminAuthMinDuration time.Duration `env:"ADMIN_AUTH_MIN_DURATION" envDefault:"250ms"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// StreamEnabled reports whether batches travel through the Redis stream.
func (c *Config) StreamEnabled() bool {
	return c.TxStreamEnabled && c.RedisURL != ""
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field constraints env tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	if c.AppPort <= 0 || c.AppPort > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT %d out of range", c.AppPort))
	}
	if c.RecordTxStatus && c.DatabaseURL == "" {
		errs = append(errs, errors.New("RECORD_TX_STATUS requires DATABASE_URL"))
	}
	if c.TxStreamEnabled && c.RedisURL == "" {
		errs = append(errs, errors.New("TX_STREAM_ENABLED requires REDIS_URL"))
	}
	if c.ReportInterval < 0 {
		errs = append(errs, errors.New("REPORT_INTERVAL must not be negative"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("LOG_FORMAT %q must be json or text", c.LogFormat))
	}
	if c.DBMaxConns <= 0 {
		errs = append(errs, errors.New("DB_MAX_CONNS must be positive"))
	}
	if c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		errs = append(errs, fmt.Errorf("DB_MIN_CONNS %d must be between 0 and DB_MAX_CONNS", c.DBMinConns))
	}
	if c.TxStreamBatchSize < 0 {
		errs = append(errs, errors.New("TX_STREAM_BATCH_SIZE must not be negative"))
	}
	if c.TxStreamBlockTimeout < 0 || c.TxStreamClaimInterval < 0 || c.TxStreamClaimIdle < 0 {
		errs = append(errs, errors.New("TX_STREAM_* durations must not be negative"))
	}
	if c.AdminAuthMinDuration < 0 {
		errs = append(errs, errors.New("ADMIN_AUTH_MIN_DURATION must not be negative"))
	}
	if c.MaxRequestBodySize <= 0 {
		errs = append(errs, errors.New("MAX_REQUEST_BODY_SIZE must be positive"))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
