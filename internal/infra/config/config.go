// Package config provides configuration loading from YAML files.
package config

import (
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Cache   CacheConfig   `yaml:"cache"`
	Sync    SyncConfig    `yaml:"sync"`
	Like    LikeConfig    `yaml:"like"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig represents the backend API configuration.
type ServerConfig struct {
	BaseURL          string `yaml:"base_url" default:"http://localhost:5000" validate:"required,url"`
	Token            string `yaml:"token"`
	RequestTimeoutMs int    `yaml:"request_timeout_ms" default:"8000" validate:"gt=0"`
	LoadTimeoutMs    int    `yaml:"load_timeout_ms" default:"10000" validate:"gt=0"`
	MaxRetries       int    `yaml:"max_retries" default:"2" validate:"gte=0,lte=5"`
	RetryBackoffMs   int    `yaml:"retry_backoff_ms" default:"1000" validate:"gt=0"`
}

// CacheConfig represents local store configuration.
type CacheConfig struct {
	Dir string `yaml:"dir"` // empty means memory-only (no persistence)
}

// SyncConfig represents sync controller configuration.
type SyncConfig struct {
	FreshnessWindowSec int `yaml:"freshness_window_sec" default:"300" validate:"gt=0"`
	AuthPollAttempts   int `yaml:"auth_poll_attempts" default:"5" validate:"gte=1"`
	AuthPollIntervalMs int `yaml:"auth_poll_interval_ms" default:"1000" validate:"gt=0"`
}

// LikeConfig represents like coordinator timing configuration.
type LikeConfig struct {
	DebounceMs      int `yaml:"debounce_ms" default:"250" validate:"gte=0"`
	CooldownMs      int `yaml:"cooldown_ms" default:"300" validate:"gte=0"`
	ProgressDelayMs int `yaml:"progress_delay_ms" default:"500" validate:"gt=0"`
}

// LoggingConfig represents logger configuration.
type LoggingConfig struct {
	Output string `yaml:"output" default:"stdout"`
	Level  string `yaml:"level" default:"info"`
}

// Load loads configuration from a YAML file.
// Environment variables take precedence over file values for sensitive fields.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config file")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to parse config file")
	}

	cfg.overrideFromEnv()

	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}

	return &cfg, nil
}

// Default returns a configuration with all defaults applied, for use when no
// config file is present.
func Default() (*Config, error) {
	var cfg Config
	cfg.overrideFromEnv()
	if err := defaults.Set(&cfg); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "config validation failed")
	}
	return &cfg, nil
}

// overrideFromEnv overrides config values with environment variables.
func (c *Config) overrideFromEnv() {
	if v := os.Getenv("COLLECTIONS_API_URL"); v != "" {
		c.Server.BaseURL = v
	}
	if v := os.Getenv("COLLECTIONS_API_TOKEN"); v != "" {
		c.Server.Token = v
	}
	if v := os.Getenv("COLLECTIONS_CACHE_DIR"); v != "" {
		c.Cache.Dir = v
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid configuration")
	}
	return nil
}

// RequestTimeout returns the per-attempt request timeout.
func (c *ServerConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMs) * time.Millisecond
}

// LoadTimeout returns the liked-songs load timeout.
func (c *ServerConfig) LoadTimeout() time.Duration {
	return time.Duration(c.LoadTimeoutMs) * time.Millisecond
}

// RetryBackoff returns the base retry backoff interval.
func (c *ServerConfig) RetryBackoff() time.Duration {
	return time.Duration(c.RetryBackoffMs) * time.Millisecond
}

// FreshnessWindow returns how long a remote load stays fresh.
func (c *SyncConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessWindowSec) * time.Second
}
