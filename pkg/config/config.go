package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cypherx/pairgate/pkg/api"
	"github.com/cypherx/pairgate/pkg/metrics"
	"github.com/cypherx/pairgate/pkg/session"
)

// Config represents the pairgate configuration.
//
// This structure captures the static configuration of the provisioning
// server:
//   - Logging configuration
//   - API server settings (port, timeouts, shutdown)
//   - Metrics server configuration
//   - Credential store backend selection
//   - Provisioning behavior (encoding scheme, delays, reconnect policy)
//
// Configuration sources (in order of precedence):
//  1. CLI flags (highest priority)
//  2. Environment variables (PAIRGATE_*)
//  3. Configuration file (YAML or TOML)
//  4. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// API contains provisioning HTTP server configuration
	API api.APIConfig `mapstructure:"api" yaml:"api"`

	// Metrics contains Prometheus metrics server configuration
	Metrics metrics.Config `mapstructure:"metrics" yaml:"metrics"`

	// Store configures where in-flight credential state lives
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// Provision tunes the session provisioning lifecycle
	Provision ProvisionConfig `mapstructure:"provision" yaml:"provision"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive, normalized to uppercase)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error" yaml:"level"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json" yaml:"format"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required" yaml:"output"`
}

// StoreConfig selects the credential store backend.
//
// Credential state is per-request scratch space: it exists from the moment
// a provisioning request starts until the token is delivered, then it is
// purged. The filesystem backend keeps a directory per phone number; the
// badger backend keeps everything in one embedded KV database.
type StoreConfig struct {
	// Backend selects the storage implementation.
	// Valid values: fs, badger
	// Default: fs
	Backend string `mapstructure:"backend" validate:"required,oneof=fs badger" yaml:"backend"`

	// Path is the root directory for credential state.
	// Default: /tmp/pairgate-sessions
	Path string `mapstructure:"path" validate:"required" yaml:"path"`
}

// ProvisionConfig tunes the session provisioning lifecycle.
type ProvisionConfig struct {
	// Scheme selects the token encoding and delivery strategy.
	// Valid values: direct, chunked, message
	// Default: direct
	Scheme string `mapstructure:"scheme" validate:"required,oneof=direct chunked message" yaml:"scheme"`

	// ClientName is the device name announced to the messaging service.
	// Default: "Chrome (Windows)"
	ClientName string `mapstructure:"client_name" yaml:"client_name"`

	// PairSettleDelay is how long to let a fresh connection settle before
	// requesting a pairing code.
	// Default: 3s
	PairSettleDelay time.Duration `mapstructure:"pair_settle_delay" yaml:"pair_settle_delay"`

	// CleanupDelay separates token delivery from credential purge.
	// Default: 5s
	CleanupDelay time.Duration `mapstructure:"cleanup_delay" yaml:"cleanup_delay"`

	// Reconnect bounds the retry loop after transient connection closes.
	Reconnect ReconnectConfig `mapstructure:"reconnect" yaml:"reconnect"`
}

// ReconnectConfig bounds the reconnect loop.
type ReconnectConfig struct {
	// MaxAttempts caps reconnects after transient closes. Zero means
	// unbounded.
	// Default: 10
	MaxAttempts int `mapstructure:"max_attempts" validate:"omitempty,min=0" yaml:"max_attempts"`

	// InitialBackoff is the first reconnect delay; it doubles per attempt.
	// Default: 2s
	InitialBackoff time.Duration `mapstructure:"initial_backoff" yaml:"initial_backoff"`

	// MaxBackoff caps the doubling.
	// Default: 1m
	MaxBackoff time.Duration `mapstructure:"max_backoff" yaml:"max_backoff"`
}

// SessionConfig translates the provisioning section into the session
// package's controller configuration. The metrics implementation is
// injected by the caller since it depends on runtime initialization.
func (c *ProvisionConfig) SessionConfig(m session.Metrics) session.Config {
	return session.Config{
		Scheme:          session.Scheme(c.Scheme),
		ClientName:      c.ClientName,
		PairSettleDelay: c.PairSettleDelay,
		CleanupDelay:    c.CleanupDelay,
		MaxReconnects:   c.Reconnect.MaxAttempts,
		InitialBackoff:  c.Reconnect.InitialBackoff,
		MaxBackoff:      c.Reconnect.MaxBackoff,
		Metrics:         m,
	}
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PAIRGATE_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	configFileFound, err := readConfigFile(v)
	if err != nil {
		return nil, err
	}

	// If no config file was found, use defaults
	if !configFileFound {
		cfg := GetDefaultConfig()
		return cfg, nil
	}

	// Unmarshal into config struct with custom decode hooks
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly
// instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  pairgate init\n\n"+
				"Or specify a custom config file:\n"+
				"  pairgate <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  pairgate init --config %s",
				configPath, configPath)
		}
	}

	cfg, err := Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to the specified file path.
// The configuration is saved in YAML format using proper yaml tags.
func SaveConfig(cfg *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Use yaml.Marshal directly to respect yaml tags
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Restricted permissions: the store path and provisioning settings are
	// deployment-sensitive.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file
// settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use PAIRGATE_ prefix and underscores
	// Example: PAIRGATE_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PAIRGATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/pairgate/config.{yaml,toml}
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file
// was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return false, nil
		}
		// Also check for os.PathError when explicit config file doesn't exist
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to read config file: %w", err)
	}

	return true, nil
}

// durationDecodeHook returns a mapstructure decode hook that converts
// strings to time.Duration. This enables config files to use
// human-readable durations like "30s", "5m", "1h".
func durationDecodeHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			return time.ParseDuration(v)
		case int:
			// Assume nanoseconds for raw integers
			return time.Duration(v), nil
		case int64:
			return time.Duration(v), nil
		case float64:
			// YAML often deserializes numbers as float64
			return time.Duration(v), nil
		default:
			return data, nil
		}
	}
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to
// current directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "pairgate")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "pairgate")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default
// location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for the
// init command).
func GetConfigDir() string {
	return getConfigDir()
}
