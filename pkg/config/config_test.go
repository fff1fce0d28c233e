package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	return configPath
}

func TestLoad_AppliesDefaults(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "INFO"

tap:
  listen: ":2121"
  upstream: "ftp.internal:21"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Logging.Format != "text" {
		t.Errorf("Expected default format 'text', got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Output != "stdout" {
		t.Errorf("Expected default output 'stdout', got %q", cfg.Logging.Output)
	}
	if cfg.Tap.MaxConnections != 256 {
		t.Errorf("Expected default max_connections 256, got %d", cfg.Tap.MaxConnections)
	}
	if cfg.Tap.ShutdownTimeout != 30*time.Second {
		t.Errorf("Expected default shutdown_timeout 30s, got %v", cfg.Tap.ShutdownTimeout)
	}
	if cfg.Analyzer.ExpectationTTL != 5*time.Minute {
		t.Errorf("Expected default expectation_ttl 5m, got %v", cfg.Analyzer.ExpectationTTL)
	}
	if cfg.Analyzer.MaxPendingCommands != 512 {
		t.Errorf("Expected default max_pending_commands 512, got %d", cfg.Analyzer.MaxPendingCommands)
	}
	if cfg.Output.Format != "log" {
		t.Errorf("Expected default output format 'log', got %q", cfg.Output.Format)
	}
}

func TestLoad_NoConfigFile(t *testing.T) {
	// Loading with no config file returns a valid default config.
	nonExistentPath := filepath.Join(t.TempDir(), "nonexistent.yaml")

	cfg, err := Load(nonExistentPath)
	if err != nil {
		t.Fatalf("Expected no error when loading default config, got: %v", err)
	}
	if cfg == nil {
		t.Fatal("Expected default config to be returned")
	}
	if cfg.Tap.Listen != ":2121" {
		t.Errorf("Expected default tap listen ':2121', got %q", cfg.Tap.Listen)
	}
}

func TestLoad_DurationStrings(t *testing.T) {
	configPath := writeConfig(t, `
tap:
  listen: ":2121"
  upstream: "ftp.internal:21"
  upstream_dial_timeout: "3s"

analyzer:
  expectation_ttl: "90s"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if cfg.Tap.UpstreamDialTimeout != 3*time.Second {
		t.Errorf("Expected dial timeout 3s, got %v", cfg.Tap.UpstreamDialTimeout)
	}
	if cfg.Analyzer.ExpectationTTL != 90*time.Second {
		t.Errorf("Expected expectation_ttl 90s, got %v", cfg.Analyzer.ExpectationTTL)
	}
}

func TestLoad_NormalizesLogLevel(t *testing.T) {
	configPath := writeConfig(t, `
logging:
  level: "debug"

tap:
  listen: ":2121"
  upstream: "ftp.internal:21"
`)

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Logging.Level != "DEBUG" {
		t.Errorf("Expected normalized level DEBUG, got %q", cfg.Logging.Level)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "tap: [unclosed")

	if _, err := Load(configPath); err == nil {
		t.Fatal("Expected error for invalid YAML")
	}
}

func TestMustLoad_MissingExplicitFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := MustLoad(missing)
	if err == nil {
		t.Fatal("Expected error for missing explicit config file")
	}
}

func TestSaveConfig_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := GetDefaultConfig()
	cfg.Tap.Upstream = "ftp.example.org:21"
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to reload saved config: %v", err)
	}
	if loaded.Tap.Upstream != "ftp.example.org:21" {
		t.Errorf("Expected upstream to round-trip, got %q", loaded.Tap.Upstream)
	}
}

func TestWriteSampleConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	if err := WriteSampleConfig(path, false); err != nil {
		t.Fatalf("Failed to write sample config: %v", err)
	}

	// The sample must load and validate as-is.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Sample config does not load: %v", err)
	}
	if cfg.Tap.Listen != ":2121" {
		t.Errorf("Sample tap listen = %q", cfg.Tap.Listen)
	}

	// A second write without force is refused.
	if err := WriteSampleConfig(path, false); err == nil {
		t.Fatal("Expected error overwriting without --force")
	}
	if err := WriteSampleConfig(path, true); err != nil {
		t.Fatalf("Expected forced overwrite to succeed, got: %v", err)
	}
}
