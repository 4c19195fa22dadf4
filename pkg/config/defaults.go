package config

import (
	"strings"
	"time"
)

// ApplyDefaults sets default values for any unspecified configuration
// fields.
//
// This function is called after loading configuration from file and
// environment variables to fill in any missing values with sensible
// defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyStoreDefaults(&cfg.Store)
	applyProvisionDefaults(&cfg.Provision)
	applyMetricsDefaults(cfg)
	// API defaults are applied by the server itself; nothing to do here.
}

// applyLoggingDefaults sets logging defaults and normalizes values.
func applyLoggingDefaults(cfg *LoggingConfig) {
	if cfg.Level == "" {
		cfg.Level = "INFO"
	}
	// Normalize log level to uppercase for consistent internal representation
	cfg.Level = strings.ToUpper(cfg.Level)

	if cfg.Format == "" {
		cfg.Format = "text"
	}
	if cfg.Output == "" {
		cfg.Output = "stdout"
	}
}

// applyStoreDefaults sets credential store defaults.
func applyStoreDefaults(cfg *StoreConfig) {
	if cfg.Backend == "" {
		cfg.Backend = "fs"
	}
	if cfg.Path == "" {
		cfg.Path = "/tmp/pairgate-sessions"
	}
}

// applyProvisionDefaults sets provisioning lifecycle defaults.
func applyProvisionDefaults(cfg *ProvisionConfig) {
	if cfg.Scheme == "" {
		cfg.Scheme = "direct"
	}
	if cfg.ClientName == "" {
		cfg.ClientName = "Chrome (Windows)"
	}
	if cfg.PairSettleDelay == 0 {
		cfg.PairSettleDelay = 3 * time.Second
	}
	if cfg.CleanupDelay == 0 {
		cfg.CleanupDelay = 5 * time.Second
	}

	// MaxAttempts zero is a meaningful value (unbounded), so the default is
	// only applied when the whole section is untouched.
	if cfg.Reconnect == (ReconnectConfig{}) {
		cfg.Reconnect.MaxAttempts = 10
	}
	if cfg.Reconnect.InitialBackoff == 0 {
		cfg.Reconnect.InitialBackoff = 2 * time.Second
	}
	if cfg.Reconnect.MaxBackoff == 0 {
		cfg.Reconnect.MaxBackoff = time.Minute
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *Config) {
	// Enabled defaults to false (opt-in for metrics)
	// Port defaults to 9090 if metrics are enabled
	if cfg.Metrics.Enabled && cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = 9090
	}
}

// GetDefaultConfig returns a Config struct with all default values
// applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}
