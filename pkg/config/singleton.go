package config

import (
	"fmt"
	"sync/atomic"
)

var current atomic.Pointer[Config]

// Initialize loads the configuration at path and publishes it as the
// process-wide configuration. Calling it again replaces the previous one.
func Initialize(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, err
	}
	current.Store(cfg)
	return cfg, nil
}

// GetConfig returns the published configuration, or nil before Initialize.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig publishes cfg. Tests use it instead of Initialize.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig loads path again. The published configuration changes only
// when loading and validation succeed.
func ReloadConfig(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return cfg, nil
}
