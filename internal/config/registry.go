package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	appName    = "zoothing"
	configFile = "config.yaml"
	storeDir   = "store"

	// EnvPrefix prefixes every environment override
	EnvPrefix = "ZOOTHING_"
)

// fileMutex serializes config file writes within the process
var fileMutex sync.Mutex

// GetConfigDir returns the OS-appropriate configuration directory for the application.
// This follows platform conventions:
//   - Linux: $XDG_CONFIG_HOME/zoothing or $HOME/.config/zoothing
//   - macOS: $HOME/.config/zoothing (following XDG convention on macOS)
//   - Windows: %LOCALAPPDATA%\zoothing
func GetConfigDir() (string, error) {
	var baseDir string

	switch runtime.GOOS {
	case "windows":
		localAppData := os.Getenv("LOCALAPPDATA")
		if localAppData == "" {
			userProfile := os.Getenv("USERPROFILE")
			if userProfile == "" {
				return "", fmt.Errorf("cannot determine user profile directory (LOCALAPPDATA and USERPROFILE not set)")
			}
			baseDir = filepath.Join(userProfile, "AppData", "Local", appName)
		} else {
			baseDir = filepath.Join(localAppData, appName)
		}

	case "darwin":
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("cannot determine home directory: %w", err)
		}
		baseDir = filepath.Join(homeDir, ".config", appName)

	default:
		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome != "" {
			baseDir = filepath.Join(xdgConfigHome, appName)
		} else {
			homeDir, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("cannot determine home directory: %w", err)
			}
			baseDir = filepath.Join(homeDir, ".config", appName)
		}
	}

	return baseDir, nil
}

// GetConfigPath returns the full path to the configuration file.
func GetConfigPath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, configFile), nil
}

// Load reads the configuration at path (empty = GetConfigPath()), applies
// environment overrides and validates the result. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return nil, fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// No config file - defaults apply
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if cfg.Version != CurrentVersion {
		return nil, fmt.Errorf("unsupported config version: %d (expected %d)", cfg.Version, CurrentVersion)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if cfg.Store.Dir == "" {
		cfg.Store.Dir = filepath.Join(filepath.Dir(path), storeDir)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides applies ZOOTHING_* environment variables on top of the file.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv(EnvPrefix + "LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPrefix + "PORTAL_LISTEN"); v != "" {
		cfg.Portal.Listen = v
	}
	if v := os.Getenv(EnvPrefix + "STORE_DIR"); v != "" {
		cfg.Store.Dir = v
	}
	if v := os.Getenv(EnvPrefix + "STORE_DRIVER"); v != "" {
		cfg.Store.Driver = v
	}
	if v := os.Getenv(EnvPrefix + "ADAPTER"); v != "" {
		cfg.Adapter.Driver = v
	}
	if v := os.Getenv(EnvPrefix + "INTERFACE"); v != "" {
		cfg.Adapter.Interface = v
	}
	if v := os.Getenv(EnvPrefix + "RECONNECT_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sRECONNECT_LIMIT %q: %w", EnvPrefix, v, err)
		}
		cfg.Connection.ReconnectLimit = n
	}
	if v := os.Getenv(EnvPrefix + "AP_LIFETIME"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid %sAP_LIFETIME %q: %w", EnvPrefix, v, err)
		}
		cfg.Connection.APLifetime = d
	}
	return nil
}

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Dispatcher.Tick <= 0 {
		problems = append(problems, "dispatcher.tick must be positive")
	}
	if c.Connection.ReconnectLimit < 1 {
		problems = append(problems, "connection.reconnect_limit must be at least 1")
	}
	if c.Connection.ReconnectDelay <= 0 {
		problems = append(problems, "connection.reconnect_delay must be positive")
	}
	if c.Connection.APLifetime <= 0 {
		problems = append(problems, "connection.ap_lifetime must be positive")
	}
	if c.Connection.ConnectTimeout <= 0 {
		problems = append(problems, "connection.connect_timeout must be positive")
	}
	if c.Portal.Listen == "" {
		problems = append(problems, "portal.listen must not be empty")
	}
	if c.Store.Driver != StoreFile && c.Store.Driver != StoreBolt {
		problems = append(problems, fmt.Sprintf("store.driver must be %q or %q, got %q", StoreFile, StoreBolt, c.Store.Driver))
	}
	if c.Adapter.Driver != AdapterNetworkManager && c.Adapter.Driver != AdapterSimulator {
		problems = append(problems, fmt.Sprintf("adapter.driver must be %q or %q, got %q", AdapterNetworkManager, AdapterSimulator, c.Adapter.Driver))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

// Save writes the configuration to path (empty = GetConfigPath()).
// Performs an atomic write to prevent corruption on crash.
func (c *Config) Save(path string) error {
	fileMutex.Lock()
	defer fileMutex.Unlock()

	if path == "" {
		p, err := GetConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get config path: %w", err)
		}
		path = p
	}

	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte(`# ZooThing Configuration File
# Connection policy, portal and storage settings for the connection manager.
# Network credentials live in the store, not in this file.
#
# Location: ` + path + `

`)
	data = append(header, data...)

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write temporary config file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to save config file: %w", err)
	}

	return nil
}
