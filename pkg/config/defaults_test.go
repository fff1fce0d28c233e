package config

import (
	"testing"
	"time"
)

func TestApplyDefaults_ZeroConfig(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "INFO" {
		t.Errorf("Expected default level INFO, got %q", cfg.Logging.Level)
	}
	if cfg.Telemetry.Endpoint != "localhost:4317" {
		t.Errorf("Expected default OTLP endpoint, got %q", cfg.Telemetry.Endpoint)
	}
	if cfg.Telemetry.SampleRate != 1.0 {
		t.Errorf("Expected default sample rate 1.0, got %v", cfg.Telemetry.SampleRate)
	}
	if cfg.API.ListenAddress != "127.0.0.1:8642" {
		t.Errorf("Expected default API address, got %q", cfg.API.ListenAddress)
	}
	if cfg.Analyzer.ExpectationTTL != 5*time.Minute {
		t.Errorf("Expected default expectation TTL 5m, got %v", cfg.Analyzer.ExpectationTTL)
	}
	if cfg.Analyzer.ExpectationSweepInterval != 30*time.Second {
		t.Errorf("Expected default sweep interval 30s, got %v", cfg.Analyzer.ExpectationSweepInterval)
	}
	if cfg.Analyzer.CapturePasswords {
		t.Error("Expected password capture to default to off")
	}
}

func TestApplyDefaults_PreservesExplicitValues(t *testing.T) {
	cfg := &Config{
		Logging:  LoggingConfig{Level: "debug", Format: "json"},
		Analyzer: AnalyzerConfig{MaxPendingCommands: 64},
	}
	ApplyDefaults(cfg)

	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized DEBUG, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Expected explicit json format preserved, got %q", cfg.Logging.Format)
	}
	if cfg.Analyzer.MaxPendingCommands != 64 {
		t.Errorf("Expected explicit queue bound preserved, got %d", cfg.Analyzer.MaxPendingCommands)
	}
}

func TestApplyDefaults_MetricsPortOnlyWhenEnabled(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 0 {
		t.Errorf("Disabled metrics should not get a port, got %d", cfg.Metrics.Port)
	}

	cfg = &Config{Metrics: MetricsConfig{Enabled: true}}
	ApplyDefaults(cfg)
	if cfg.Metrics.Port != 9090 {
		t.Errorf("Expected default metrics port 9090, got %d", cfg.Metrics.Port)
	}
}

func TestGetDefaultConfig_Validates(t *testing.T) {
	cfg := GetDefaultConfig()
	if err := Validate(cfg); err != nil {
		t.Fatalf("GetDefaultConfig does not validate: %v", err)
	}
}
