package config

import (
	"strings"
	"testing"
)

func TestValidate_ValidConfig(t *testing.T) {
	cfg := GetDefaultConfig()

	if err := Validate(cfg); err != nil {
		t.Errorf("Expected valid config to pass validation, got error: %v", err)
	}
}

func TestValidate_InvalidLogLevel(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Level = "INVALID"

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for invalid log level")
	}
	if !strings.Contains(err.Error(), "oneof") {
		t.Errorf("Expected 'oneof' validation error, got: %v", err)
	}
}

func TestValidate_InvalidLogFormat(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Logging.Format = "xml"

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for invalid log format")
	}
}

func TestValidate_MissingTapAddresses(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Tap.Listen = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for empty tap.listen")
	}

	cfg = GetDefaultConfig()
	cfg.Tap.Upstream = ""

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for empty tap.upstream")
	}
}

func TestValidate_InvalidMetricsPort(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Metrics.Port = 70000

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for out-of-range metrics port")
	}
}

func TestValidate_InvalidSampleRate(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Telemetry.SampleRate = 1.5

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for sample rate out of range")
	}
}

func TestValidate_JSONLRequiresPath(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Output.Format = "jsonl"
	cfg.Output.Path = ""

	err := Validate(cfg)
	if err == nil {
		t.Fatal("Expected validation error for jsonl output without a path")
	}
	if !strings.Contains(err.Error(), "output.path") {
		t.Errorf("Expected output.path error, got: %v", err)
	}
}

func TestValidate_NegativeAnalyzerValues(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Analyzer.ExpectationTTL = -1

	if err := Validate(cfg); err == nil {
		t.Fatal("Expected validation error for negative expectation TTL")
	}
}
