package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// current is the process-wide configuration. Readers never see a
// partially applied reload: every change swaps the whole pointer.
var (
	current  atomic.Pointer[Config]
	initOnce sync.Once
	initErr  error
)

// Initialize loads path with environment overrides and installs the result
// as the process configuration. Only the first call loads; later calls
// return the first call's error.
func Initialize(path string) error {
	initOnce.Do(func() {
		var cfg *Config
		if cfg, initErr = LoadConfigWithEnvOverrides(path); initErr == nil {
			current.Store(cfg)
		}
	})
	return initErr
}

// GetConfig returns the process configuration, or nil before Initialize
// has succeeded.
func GetConfig() *Config { return current.Load() }

// SetConfig installs cfg as the process configuration.
func SetConfig(cfg *Config) { current.Store(cfg) }

// ReloadConfig loads path again and installs the result. On error the
// installed configuration is left untouched.
func ReloadConfig(path string) (*Config, error) {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return cfg, nil
}
