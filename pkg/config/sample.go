package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// sampleConfig is the commented template written by "ftpmon init". It is a
// literal rather than a yaml.Marshal of GetDefaultConfig so the comments
// survive.
const sampleConfig = `# ftpmon configuration
#
# Any value can be overridden with an environment variable using the
# FTPMON_ prefix, e.g. FTPMON_LOGGING_LEVEL=DEBUG.

logging:
  # DEBUG, INFO, WARN or ERROR
  level: "INFO"
  # text or json
  format: "text"
  # stdout, stderr or a file path
  output: "stdout"

telemetry:
  enabled: false
  endpoint: "localhost:4317"
  insecure: true
  sample_rate: 1.0

metrics:
  enabled: false
  port: 9090

api:
  enabled: false
  listen_address: "127.0.0.1:8642"

tap:
  # Address clients connect to
  listen: ":2121"
  # FTP server the control channel is relayed to
  upstream: "127.0.0.1:21"
  upstream_dial_timeout: "10s"
  max_connections: 256
  shutdown_timeout: "30s"

analyzer:
  # How long a negotiated data-channel endpoint stays claimable
  expectation_ttl: "5m"
  expectation_sweep_interval: "30s"
  max_pending_commands: 512
  # Uncomment to override the built-in emission allow-list
  # logged_commands: ["RETR", "STOR", "DELE"]
  capture_passwords: false

output:
  # log (structured log lines) or jsonl (newline-delimited JSON file)
  format: "log"
  # path: "/var/log/ftpmon/records.jsonl"
`

// WriteSampleConfig writes the commented sample configuration to path.
// Refuses to overwrite an existing file unless force is set.
func WriteSampleConfig(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// InitConfig writes the sample configuration to the default location and
// returns the path it wrote.
func InitConfig(force bool) (string, error) {
	path := GetDefaultConfigPath()
	if err := WriteSampleConfig(path, force); err != nil {
		return "", err
	}
	return path, nil
}

// InitConfigToPath writes the sample configuration to an explicit path.
func InitConfigToPath(path string, force bool) error {
	return WriteSampleConfig(path, force)
}
