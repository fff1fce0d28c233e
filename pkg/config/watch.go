package config

import (
	"fmt"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/tdevries60/bro/internal/logger"
)

// Watch monitors the configuration file and invokes onChange with the fully
// re-loaded configuration whenever it changes on disk. A change that fails
// to load or validate is logged and dropped; the previous configuration
// stays in effect.
//
// The primary consumer is the runtime log-level switch: the start command
// registers an onChange that calls logger.SetLevel.
func Watch(configPath string, onChange func(*Config)) error {
	if configPath == "" {
		configPath = GetDefaultConfigPath()
	}

	v := viper.New()
	setupViper(v, configPath)
	if _, err := readConfigFile(v); err != nil {
		return fmt.Errorf("cannot watch config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := Load(configPath)
		if err != nil {
			logger.Warn("ignoring config change", "path", e.Name, logger.KeyError, err)
			return
		}
		logger.Info("configuration reloaded", "path", e.Name)
		onChange(cfg)
	})
	v.WatchConfig()

	return nil
}
