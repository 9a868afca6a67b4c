package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// current holds the process-wide configuration.
	current atomic.Pointer[Config]

	// loadedFrom remembers the path given to Initialize for Reload.
	loadedFrom atomic.Value

	initMu sync.Mutex
)

// Initialize loads configuration from path with environment overrides and
// installs it as the process-wide configuration. Once a configuration is
// installed, later calls return nil without reloading; use Reload for that.
func Initialize(path string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if current.Load() != nil {
		return nil
	}

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	loadedFrom.Store(path)
	current.Store(cfg)
	return nil
}

// GetConfig returns the process-wide configuration, or nil before Initialize.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig installs cfg as the process-wide configuration. Intended for tests.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// Reset clears the process-wide configuration so Initialize loads again.
// Intended for tests.
func Reset() {
	initMu.Lock()
	defer initMu.Unlock()
	current.Store(nil)
	loadedFrom.Store("")
}

// Reload reloads the configuration from the path used by Initialize. The
// active configuration is replaced only when the new one loads and
// validates.
func Reload() (*Config, error) {
	path, _ := loadedFrom.Load().(string)
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return cfg, nil
}

// MustGetConfig returns the process-wide configuration and panics if it
// has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
