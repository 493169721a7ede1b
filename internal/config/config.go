// Package config loads service configuration from an optional YAML file and
// environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines the telemetry ingestion service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"HTTP_PORT"`
	} `yaml:"http"`

	Database struct {
		DSN              string        `yaml:"dsn" env:"POSTGRES_DSN"`
		PoolMin          int32         `yaml:"pool_min" env:"POSTGRES_POOL_MIN"`
		PoolMax          int32         `yaml:"pool_max" env:"POSTGRES_POOL_MAX"`
		StatementTimeout time.Duration `yaml:"statement_timeout" env:"STATEMENT_TIMEOUT_MS"`
	} `yaml:"database"`

	Buffer struct {
		FlushSize     int           `yaml:"flush_size" env:"BUFFER_FLUSH_SIZE"`
		FlushInterval time.Duration `yaml:"flush_interval" env:"BUFFER_FLUSH_INTERVAL_MS"`
	} `yaml:"buffer"`

	Redis struct {
		Addr           string        `yaml:"addr" env:"REDIS_ADDR"`
		Password       string        `yaml:"password" env:"REDIS_PASSWORD"`
		IdempotencyTTL time.Duration `yaml:"idempotency_ttl" env:"IDEMPOTENCY_TTL_MS"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET"`
	} `yaml:"auth"`

	Ingest struct {
		DeviceRate  float64 `yaml:"device_rate" env:"INGEST_DEVICE_RATE"`
		DeviceBurst int     `yaml:"device_burst" env:"INGEST_DEVICE_BURST"`
	} `yaml:"ingest"`

	Maintenance struct {
		RetentionMonths        int           `yaml:"retention_months" env:"RETENTION_MONTHS"`
		PartitionAheadMonths   int           `yaml:"partition_ahead_months" env:"PARTITION_AHEAD_MONTHS"`
		RollupInterval         time.Duration `yaml:"rollup_interval" env:"ROLLUP_INTERVAL_MS"`
		SummaryRefreshInterval time.Duration `yaml:"summary_refresh_interval" env:"SUMMARY_REFRESH_INTERVAL_MS"`
	} `yaml:"maintenance"`
}

// Load builds a Config with defaults, applies file and environment overrides,
// and validates it.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8080"
	cfg.Database.PoolMin = 2
	cfg.Database.PoolMax = 10
	cfg.Database.StatementTimeout = 30 * time.Second
	cfg.Buffer.FlushSize = 500
	cfg.Buffer.FlushInterval = 2 * time.Second
	cfg.Redis.IdempotencyTTL = 24 * time.Hour
	cfg.Ingest.DeviceBurst = 5
	cfg.Maintenance.RetentionMonths = 6
	cfg.Maintenance.PartitionAheadMonths = 2
	cfg.Maintenance.RollupInterval = 5 * time.Minute
	cfg.Maintenance.SummaryRefreshInterval = 15 * time.Minute

	if err := hydrate(cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("config: database dsn required")
	}
	if c.Buffer.FlushSize < 1 {
		return errors.New("config: buffer flush size must be positive")
	}
	if c.Buffer.FlushInterval <= 0 {
		return errors.New("config: buffer flush interval must be positive")
	}
	if c.Database.PoolMin < 0 || c.Database.PoolMax < 1 || c.Database.PoolMin > c.Database.PoolMax {
		return errors.New("config: invalid pool bounds")
	}
	if c.Database.StatementTimeout <= 0 {
		return errors.New("config: statement timeout must be positive")
	}
	if c.Maintenance.RetentionMonths < 1 {
		return errors.New("config: retention months must be positive")
	}
	if c.Maintenance.PartitionAheadMonths < 1 {
		return errors.New("config: partition ahead months must be positive")
	}
	return nil
}

// HTTPAddress returns the :port listen address.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
