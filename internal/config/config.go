// Package config handles application configuration loading and validation.
// Configuration is loaded from a YAML file and can be overridden with
// environment variables prefixed with PREDMARKET_. All values are validated
// at startup to prevent runtime errors deep inside the engine.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config is the complete application configuration.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	RateLimits RateLimitsConfig `mapstructure:"rate_limits"`
	Matching   MatchingConfig   `mapstructure:"matching"`
	Kalshi     KalshiConfig     `mapstructure:"kalshi"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ServerConfig controls the debug HTTP surface. RequestTimeout is loaded and
// validated but not applied anywhere: adapters use a fixed 30-second
// per-request timeout.
type ServerConfig struct {
	DebugAddr      string        `mapstructure:"debug_addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// RateLimitsConfig overrides the default per-platform token-bucket ceilings,
// keyed by platform name; a platform absent from the map falls back to
// ratelimit.DefaultLimits (bucket capacity equals the per-minute ceiling,
// per the limiter's token-bucket contract).
type RateLimitsConfig struct {
	RequestsPerMinute map[string]int `mapstructure:"requests_per_minute"`
}

// MatchingConfig tunes the equivalence matcher and arbitrage detector.
type MatchingConfig struct {
	DefaultMinConfidence float64 `mapstructure:"default_min_confidence"`
	DefaultMinSpread     float64 `mapstructure:"default_min_spread"`
	BrowseLimit          int     `mapstructure:"browse_limit"`
}

// KalshiConfig holds the optional RSA signing credential. Empty values mean
// the adapter hits the public market-data endpoints anonymously.
type KalshiConfig struct {
	KeyID         string `mapstructure:"key_id"`
	PrivateKeyPEM string `mapstructure:"private_key_pem"`
}

// MetricsConfig controls the Prometheus exporter.
type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// LoggingConfig controls the zerolog logger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

const envPrefix = "PREDMARKET"

// Load reads configuration from the YAML file at path, applying
// PREDMARKET_-prefixed environment overrides on top.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func bindEnv(v *viper.Viper) {
	_ = v.BindEnv("server.debug_addr", "PREDMARKET_SERVER_DEBUG_ADDR")
	_ = v.BindEnv("server.request_timeout", "PREDMARKET_SERVER_REQUEST_TIMEOUT")
	_ = v.BindEnv("matching.default_min_confidence", "PREDMARKET_MATCHING_DEFAULT_MIN_CONFIDENCE")
	_ = v.BindEnv("matching.default_min_spread", "PREDMARKET_MATCHING_DEFAULT_MIN_SPREAD")
	_ = v.BindEnv("matching.browse_limit", "PREDMARKET_MATCHING_BROWSE_LIMIT")
	_ = v.BindEnv("kalshi.key_id", "PREDMARKET_KALSHI_KEY_ID")
	_ = v.BindEnv("kalshi.private_key_pem", "PREDMARKET_KALSHI_PRIVATE_KEY_PEM")
	_ = v.BindEnv("metrics.enabled", "PREDMARKET_METRICS_ENABLED")
	_ = v.BindEnv("logging.level", "PREDMARKET_LOGGING_LEVEL")
	_ = v.BindEnv("logging.format", "PREDMARKET_LOGGING_FORMAT")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.debug_addr", ":8090")
	v.SetDefault("server.request_timeout", "30s")

	v.SetDefault("matching.default_min_confidence", 0.5)
	v.SetDefault("matching.default_min_spread", 0.05)
	v.SetDefault("matching.browse_limit", 20)

	v.SetDefault("kalshi.key_id", "")
	v.SetDefault("kalshi.private_key_pem", "")

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
}

// Validate checks that all configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.DebugAddr == "" {
		return fmt.Errorf("server.debug_addr is required")
	}
	if c.Server.RequestTimeout < time.Second {
		return fmt.Errorf("server.request_timeout must be at least 1s")
	}
	if c.Matching.DefaultMinConfidence < 0.0 || c.Matching.DefaultMinConfidence > 1.0 {
		return fmt.Errorf("matching.default_min_confidence must be between 0.0 and 1.0")
	}
	if c.Matching.DefaultMinSpread < 0.0 || c.Matching.DefaultMinSpread > 1.0 {
		return fmt.Errorf("matching.default_min_spread must be between 0.0 and 1.0")
	}
	if c.Matching.BrowseLimit < 1 || c.Matching.BrowseLimit > 1000 {
		return fmt.Errorf("matching.browse_limit must be between 1 and 1000")
	}
	if (c.Kalshi.KeyID == "") != (c.Kalshi.PrivateKeyPEM == "") {
		return fmt.Errorf("kalshi.key_id and kalshi.private_key_pem must both be set or both be empty")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("logging.level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("logging.format must be one of: json, console")
	}

	return nil
}
