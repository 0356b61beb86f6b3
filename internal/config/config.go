// Package config loads application configuration from a YAML file with
// environment-variable expansion, defaults and validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config is the application configuration.
type Config struct {
	Environment string     `yaml:"environment" default:"development"`
	Logging     Logging    `yaml:"logging"`
	Server      Server     `yaml:"server"`
	Postgres    Postgres   `yaml:"postgres"`
	ClickHouse  ClickHouse `yaml:"clickhouse"`
	Scanner     Scanner    `yaml:"scanner"`
	Aliases     Aliases    `yaml:"aliases"`
}

type Logging struct {
	Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" default:"console" validate:"oneof=json console"`
}

type Server struct {
	Port            int           `yaml:"port" default:"8080" validate:"gt=0,lte=65535"`
	ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
}

type Postgres struct {
	DSN string `yaml:"dsn" validate:"required"`
}

type ClickHouse struct {
	DSN string `yaml:"dsn" validate:"required"`
}

type Scanner struct {
	ZThreshold    float64 `yaml:"z_threshold" default:"2.0" validate:"gt=0"`
	MinSamples    int     `yaml:"min_samples" default:"10" validate:"gt=0"`
	MinConfidence float64 `yaml:"min_confidence" default:"0.5" validate:"gte=0,lte=1"`
	LookbackDays  int     `yaml:"lookback_days" default:"365" validate:"gt=0"`
	Horizons      []int   `yaml:"horizons" default:"[1,3,5]" validate:"min=1,dive,gt=0"`
	// DailyCron schedules the daily scan in the server process.
	DailyCron string `yaml:"daily_cron" default:"0 30 18 * * *"`
}

type Aliases struct {
	// Path to the normalized company-alias JSON produced by the extraction
	// pipeline.
	Path string `yaml:"path" default:"examples/normalized_aliases.json"`
}

// Load reads, expands, defaults and validates a config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}
	expanded := os.ExpandEnv(string(raw))
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config yaml: %w", err)
	}

	// Fill anything the file left unset.
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply config defaults: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
