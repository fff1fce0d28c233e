package config

import (
	"strings"
	"time"

	"github.com/tdevries60/bro/internal/protocol/ftp"
	"github.com/tdevries60/bro/pkg/expectation"
)

// ApplyDefaults sets default values for any unspecified configuration fields.
//
// This function is called after loading configuration from file and environment
// variables to fill in any missing values with sensible defaults.
//
// Default Strategy:
//   - Zero values (0, "", false, nil) are replaced with defaults
//   - Explicit values are preserved
func ApplyDefaults(cfg *Config) {
	applyLoggingDefaults(&cfg.Logging)
	applyTelemetryDefaults(&cfg.Telemetry)
	applyMetricsDefaults(&cfg.Metrics)
	applyAPIDefaults(&cfg.API)
	applyTapDefaults(&cfg.Tap)
	applyAnalyzerDefaults(&cfg.Analyzer)
	applyOutputDefaults(&cfg.Output)
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

// applyTelemetryDefaults sets OpenTelemetry defaults.
func applyTelemetryDefaults(cfg *TelemetryConfig) {
	// Enabled defaults to false (opt-in for telemetry)

	// Default endpoint is localhost:4317 (standard OTLP gRPC port)
	if cfg.Endpoint == "" {
		cfg.Endpoint = "localhost:4317"
	}

	// Default sample rate is 1.0 (sample all traces)
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 1.0
	}
}

// applyMetricsDefaults sets metrics defaults.
func applyMetricsDefaults(cfg *MetricsConfig) {
	// Enabled defaults to false (opt-in for metrics)
	if cfg.Enabled && cfg.Port == 0 {
		cfg.Port = 9090
	}
}

// applyAPIDefaults sets debug API defaults.
func applyAPIDefaults(cfg *APIConfig) {
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = "127.0.0.1:8642"
	}
	if cfg.ReadTimeout == 0 {
		cfg.ReadTimeout = 10 * time.Second
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
}

// applyTapDefaults sets tap proxy defaults.
// Listen and Upstream have no defaults - they must be configured by the user.
func applyTapDefaults(cfg *TapConfig) {
	if cfg.UpstreamDialTimeout == 0 {
		cfg.UpstreamDialTimeout = 10 * time.Second
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 256
	}
	if cfg.ShutdownTimeout == 0 {
		cfg.ShutdownTimeout = 30 * time.Second
	}
}

// applyAnalyzerDefaults sets correlation-engine defaults.
func applyAnalyzerDefaults(cfg *AnalyzerConfig) {
	if cfg.ExpectationTTL == 0 {
		cfg.ExpectationTTL = expectation.DefaultTTL
	}
	if cfg.ExpectationSweepInterval == 0 {
		cfg.ExpectationSweepInterval = expectation.DefaultSweepInterval
	}
	if cfg.MaxPendingCommands == 0 {
		cfg.MaxPendingCommands = ftp.DefaultMaxPending
	}
	// LoggedCommands left empty means the built-in allow-list
	// CapturePasswords defaults to false
}

// applyOutputDefaults sets record sink defaults.
func applyOutputDefaults(cfg *OutputConfig) {
	if cfg.Format == "" {
		cfg.Format = "log"
	}
}

// GetDefaultConfig returns a Config struct with all default values applied.
//
// This is useful for:
//   - Generating sample configuration files
//   - Testing
//   - Documentation
func GetDefaultConfig() *Config {
	cfg := &Config{
		Tap: TapConfig{
			Listen:   ":2121",
			Upstream: "127.0.0.1:21",
		},
	}

	ApplyDefaults(cfg)
	return cfg
}
