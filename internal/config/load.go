package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// configName is the file name probed in each search location.
const configName = "config.yaml"

// Load resolves the effective configuration in three layers: built-in
// defaults first, then the config file when one exists, then command
// line flags on top.
func Load() (*Config, error) {
	cfg := Default()

	path := ConfigPath()
	if path == "" {
		path = findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", path, err)
		}
	}

	applyFlags(cfg)
	return cfg, nil
}

// findConfigFile probes the working directory first, then the user
// config directory. Empty means no file was found and defaults stand.
func findConfigFile() string {
	for _, path := range []string{configName, filepath.Join(ConfigDir(), configName)} {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the per-user configuration directory for the tool.
func ConfigDir() string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "EnvironmentLodTools")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "EnvironmentLodTools")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "lodtool")
		}
		return filepath.Join(home, ".config", "lodtool")
	}
}

// loadFromFile merges the YAML document at path over cfg.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
