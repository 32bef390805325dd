package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Remote  RemoteConfig  `yaml:"remote"`
	Storage StorageConfig `yaml:"storage"`
	Sync    SyncConfig    `yaml:"sync"`
}

type RemoteConfig struct {
	BaseURL        string `yaml:"base_url"`
	APIKey         string `yaml:"api_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	Path string `yaml:"path"`
}

type SyncConfig struct {
	IntervalMinutes int    `yaml:"interval_minutes"`
	UserID          string `yaml:"user_id"`
}

// Timeout returns the remote call timeout.
func (r RemoteConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutSeconds) * time.Second
}

// Interval returns the background sync interval.
func (s SyncConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMinutes) * time.Minute
}

// Load reads config from a YAML file, then applies environment variable
// overrides. Env vars use the prefix LIFTLOG_ and underscore-separated paths:
//
//	LIFTLOG_REMOTE_URL, LIFTLOG_REMOTE_API_KEY, LIFTLOG_REMOTE_TIMEOUT,
//	LIFTLOG_STORAGE_PATH, LIFTLOG_SYNC_INTERVAL, LIFTLOG_SYNC_USER_ID
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIFTLOG_REMOTE_URL"); v != "" {
		cfg.Remote.BaseURL = v
	}
	if v := os.Getenv("LIFTLOG_REMOTE_API_KEY"); v != "" {
		cfg.Remote.APIKey = v
	}
	if v := os.Getenv("LIFTLOG_REMOTE_TIMEOUT"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			cfg.Remote.TimeoutSeconds = secs
		}
	}
	if v := os.Getenv("LIFTLOG_STORAGE_PATH"); v != "" {
		cfg.Storage.Path = v
	}
	if v := os.Getenv("LIFTLOG_SYNC_INTERVAL"); v != "" {
		if mins, err := strconv.Atoi(v); err == nil {
			cfg.Sync.IntervalMinutes = mins
		}
	}
	if v := os.Getenv("LIFTLOG_SYNC_USER_ID"); v != "" {
		cfg.Sync.UserID = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Remote.TimeoutSeconds == 0 {
		cfg.Remote.TimeoutSeconds = 5
	}
	if cfg.Sync.IntervalMinutes == 0 {
		cfg.Sync.IntervalMinutes = 5
	}
	if cfg.Storage.Path == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.Storage.Path = filepath.Join(home, ".liftlog")
		}
	}
}

func (c *Config) validate() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("remote.base_url is required")
	}
	if c.Remote.TimeoutSeconds < 0 {
		return fmt.Errorf("remote.timeout_seconds must be positive")
	}
	if c.Sync.IntervalMinutes < 0 {
		return fmt.Errorf("sync.interval_minutes must be positive")
	}
	if c.Storage.Path == "" {
		return fmt.Errorf("storage.path is required")
	}
	return nil
}
