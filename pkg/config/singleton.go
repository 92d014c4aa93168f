package config

import (
	"fmt"
	"sync"
)

// process holds the configuration shared by the commands of one process and
// the file it was read from.
var process struct {
	mu   sync.RWMutex
	once sync.Once
	cfg  *Config
	path string
}

// Initialize reads the configuration at path, applies CALCUL_* overrides and
// installs it for GetConfig. Only the first call has an effect. An empty path
// installs the defaults.
func Initialize(path string) error {
	var err error
	process.once.Do(func() {
		var cfg *Config
		if cfg, err = LoadConfigWithEnvOverrides(path); err != nil {
			return
		}
		process.mu.Lock()
		process.cfg, process.path = cfg, path
		process.mu.Unlock()
	})
	return err
}

// GetConfig returns the installed configuration, or nil before Initialize.
func GetConfig() *Config {
	process.mu.RLock()
	defer process.mu.RUnlock()
	return process.cfg
}

// SetConfig installs cfg. Tests use it to run commands against a prepared
// configuration.
func SetConfig(cfg *Config) {
	process.mu.Lock()
	process.cfg = cfg
	process.mu.Unlock()
}

// ReloadConfig reads the configuration again and installs it if it is valid.
// An empty path rereads the file given to Initialize.
func ReloadConfig(path string) error {
	process.mu.RLock()
	if path == "" {
		path = process.path
	}
	process.mu.RUnlock()

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}

	process.mu.Lock()
	process.cfg, process.path = cfg, path
	process.mu.Unlock()
	return nil
}

// MustGetConfig is GetConfig for callers that run after Initialize. It
// panics when no configuration is installed.
func MustGetConfig() *Config {
	if cfg := GetConfig(); cfg != nil {
		return cfg
	}
	panic("configuration not initialized: call Initialize first")
}
