package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Load loads config from the default path (~/.zakkerni/config.json).
func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	return LoadFromFile(filepath.Join(home, ".zakkerni", "config.json"))
}

// LoadFromFile loads config from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer f.Close()
	return LoadFromReader(f)
}

// LoadFromReader loads config from an io.Reader, applying defaults and env overrides.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()

	if err := json.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(cfg)
	expandDBPath(cfg)

	return cfg, nil
}

// applyEnvOverrides applies ZAKKERNI_-prefixed environment variable overrides.
func applyEnvOverrides(cfg *Config) {
	envMap := map[string]*string{
		"ZAKKERNI_TELEGRAM_TOKEN":     &cfg.Channels.Telegram.Token,
		"ZAKKERNI_STORAGE_DBPATH":     &cfg.Storage.DBPath,
		"ZAKKERNI_SCHEDULER_TIMEZONE": &cfg.Scheduler.Timezone,
	}

	for env, ptr := range envMap {
		if val := os.Getenv(env); val != "" {
			*ptr = val
		}
	}
}

// expandDBPath expands a leading ~ in the database path.
func expandDBPath(cfg *Config) {
	p := cfg.Storage.DBPath
	if len(p) >= 2 && p[0] == '~' && p[1] == '/' {
		home, err := os.UserHomeDir()
		if err == nil {
			cfg.Storage.DBPath = filepath.Join(home, p[2:])
		}
	}
}
