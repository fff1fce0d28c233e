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

	"github.com/tdevries60/bro/internal/telemetry"
)

// Config represents the ftpmon configuration.
//
// This structure captures the static configuration of the monitor:
//   - Logging configuration
//   - Telemetry/tracing configuration
//   - Metrics server settings
//   - Debug API settings
//   - Tap proxy settings (listen address, upstream, limits)
//   - Analyzer tunables (expectation TTL, queue bounds, emission policy)
//   - Output sink selection
//
// Configuration sources (in order of precedence):
//  1. Environment variables (FTPMON_*)
//  2. Configuration file (YAML)
//  3. Default values (lowest priority)
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`

	// Telemetry controls OpenTelemetry distributed tracing
	Telemetry TelemetryConfig `mapstructure:"telemetry" yaml:"telemetry"`

	// Metrics contains Prometheus metrics server configuration
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// API contains the debug/introspection HTTP API configuration
	API APIConfig `mapstructure:"api" yaml:"api"`

	// Tap configures the control-channel proxy in front of the FTP server
	Tap TapConfig `mapstructure:"tap" yaml:"tap"`

	// Analyzer contains the correlation-engine tunables
	Analyzer AnalyzerConfig `mapstructure:"analyzer" yaml:"analyzer"`

	// Output selects where finished records are written
	Output OutputConfig `mapstructure:"output" yaml:"output"`
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

// TelemetryConfig controls OpenTelemetry distributed tracing.
// When enabled, trace data is exported to an OTLP-compatible collector
// (e.g., Jaeger, Tempo, or any OTLP receiver).
type TelemetryConfig struct {
	// Enabled controls whether distributed tracing is enabled
	// Default: false (opt-in for telemetry)
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Endpoint is the OTLP collector endpoint (host:port)
	// Default: "localhost:4317" (standard OTLP gRPC port)
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`

	// Insecure controls whether to use insecure (non-TLS) connection
	// Default: true (for local development)
	Insecure bool `mapstructure:"insecure" yaml:"insecure"`

	// SampleRate controls the trace sampling rate (0.0 to 1.0)
	// Default: 1.0 (sample all)
	SampleRate float64 `mapstructure:"sample_rate" validate:"omitempty,gte=0,lte=1" yaml:"sample_rate"`
}

// MetricsConfig configures the Prometheus metrics HTTP server.
// When Enabled is false, no metrics are collected (zero overhead).
type MetricsConfig struct {
	// Enabled controls whether metrics collection and HTTP server are enabled
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Port is the HTTP port for the metrics endpoint
	// Default: 9090
	Port int `mapstructure:"port" validate:"omitempty,min=1,max=65535" yaml:"port"`
}

// APIConfig configures the debug/introspection HTTP API: health, live
// expectation-table dumps, correlator stats.
type APIConfig struct {
	// Enabled controls whether the API server is started
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// ListenAddress is the bind address, e.g. "127.0.0.1:8642"
	ListenAddress string `mapstructure:"listen_address" yaml:"listen_address"`

	// ReadTimeout bounds request reads
	// Default: 10s
	ReadTimeout time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`

	// WriteTimeout bounds response writes
	// Default: 10s
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// TapConfig configures the transparent control-channel proxy. Clients
// connect to Listen; every accepted connection is relayed to Upstream while
// the command and reply streams are decoded and fed to the analyzer.
type TapConfig struct {
	// Listen is the local bind address, e.g. ":2121"
	Listen string `mapstructure:"listen" validate:"required" yaml:"listen"`

	// Upstream is the FTP server address to relay to, e.g. "ftp.internal:21"
	Upstream string `mapstructure:"upstream" validate:"required" yaml:"upstream"`

	// UpstreamDialTimeout bounds the connect to the upstream server
	// Default: 10s
	UpstreamDialTimeout time.Duration `mapstructure:"upstream_dial_timeout" validate:"omitempty,gt=0" yaml:"upstream_dial_timeout"`

	// MaxConnections caps concurrently relayed control connections
	// Default: 256
	MaxConnections int `mapstructure:"max_connections" validate:"omitempty,gt=0" yaml:"max_connections"`

	// ShutdownTimeout is the maximum time to wait for in-flight relays
	// during graceful shutdown
	// Default: 30s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"omitempty,gt=0" yaml:"shutdown_timeout"`
}

// AnalyzerConfig contains the correlation-engine tunables.
type AnalyzerConfig struct {
	// ExpectationTTL is how long a predicted data-channel endpoint stays
	// claimable after negotiation
	// Default: 5m
	ExpectationTTL time.Duration `mapstructure:"expectation_ttl" validate:"omitempty,gt=0" yaml:"expectation_ttl"`

	// ExpectationSweepInterval is how often expired entries are reaped
	// Default: 30s
	ExpectationSweepInterval time.Duration `mapstructure:"expectation_sweep_interval" validate:"omitempty,gt=0" yaml:"expectation_sweep_interval"`

	// MaxPendingCommands bounds each session's issued-but-unanswered queue
	// Default: 512
	MaxPendingCommands int `mapstructure:"max_pending_commands" validate:"omitempty,gt=0" yaml:"max_pending_commands"`

	// LoggedCommands overrides the built-in emission allow-list when set
	LoggedCommands []string `mapstructure:"logged_commands" yaml:"logged_commands,omitempty"`

	// CapturePasswords controls whether PASS arguments are retained.
	// Non-anonymous passwords are still redacted on emission.
	// Default: false
	CapturePasswords bool `mapstructure:"capture_passwords" yaml:"capture_passwords"`
}

// OutputConfig selects the record sink.
type OutputConfig struct {
	// Format selects the sink implementation
	// Valid values: log (structured log lines), jsonl (newline-delimited JSON file)
	Format string `mapstructure:"format" validate:"required,oneof=log jsonl" yaml:"format"`

	// Path is the output file for the jsonl format
	Path string `mapstructure:"path" yaml:"path,omitempty"`
}

// TelemetrySettings converts the config section into the telemetry package's
// init parameters.
func (c *Config) TelemetrySettings(version string) telemetry.Config {
	return telemetry.Config{
		Enabled:        c.Telemetry.Enabled,
		ServiceName:    "ftpmon",
		ServiceVersion: version,
		Endpoint:       c.Telemetry.Endpoint,
		Insecure:       c.Telemetry.Insecure,
		SampleRate:     c.Telemetry.SampleRate,
	}
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (FTPMON_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
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
	if err := v.Unmarshal(&cfg, viper.DecodeHook(configDecodeHooks())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Apply defaults for any missing values
	ApplyDefaults(&cfg)

	// Validate configuration
	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration with helpful error messages.
// It checks if the config file exists and provides user-friendly instructions if not.
func MustLoad(configPath string) (*Config, error) {
	if configPath == "" {
		if !DefaultConfigExists() {
			return nil, fmt.Errorf("no configuration file found at default location: %s\n\n"+
				"Please initialize a configuration file first:\n"+
				"  ftpmon init\n\n"+
				"Or specify a custom config file:\n"+
				"  ftpmon <command> --config /path/to/config.yaml",
				GetDefaultConfigPath())
		}
		configPath = GetDefaultConfigPath()
	} else {
		if _, err := os.Stat(configPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("configuration file not found: %s\n\n"+
				"Please create the configuration file:\n"+
				"  ftpmon init --config %s",
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

	// Restricted permissions: the file may name internal hosts.
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use FTPMON_ prefix and underscores
	// Example: FTPMON_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("FTPMON")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/ftpmon/config.yaml
		configDir := getConfigDir()
		v.AddConfigPath(configDir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
// Returns (fileFound, error) where fileFound indicates if a config file was found.
func readConfigFile(v *viper.Viper) (bool, error) {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is acceptable - use defaults
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

// configDecodeHooks returns a combined decode hook for all custom types.
func configDecodeHooks() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		durationDecodeHook(),
	)
}

// durationDecodeHook returns a mapstructure decode hook that converts strings
// to time.Duration. This enables config files to use human-readable durations
// like "30s", "5m", "1h".
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
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to current
// directory (.) if home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "ftpmon")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "ftpmon")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}

// DefaultConfigExists checks if a config file exists at the default location.
func DefaultConfigExists() bool {
	path := GetDefaultConfigPath()
	_, err := os.Stat(path)
	return err == nil
}

// GetConfigDir returns the configuration directory path (exposed for init command).
func GetConfigDir() string {
	return getConfigDir()
}
