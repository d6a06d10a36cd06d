package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig is the on-disk shape of Config. yaml.v3 writes time.Duration
// as nanoseconds, so durations are kept as strings here.
type fileConfig struct {
	DataDir   string        `yaml:"data_dir"`
	Storage   StorageConfig `yaml:"storage"`
	SitesFile string        `yaml:"sites_file,omitempty"`
	Cache     struct {
		Type      string `yaml:"type"`
		RedisAddr string `yaml:"redis_addr,omitempty"`
		TTL       string `yaml:"ttl"`
	} `yaml:"cache"`
	Log     LogConfig `yaml:"log"`
	API     APIConfig `yaml:"api"`
	Harvest struct {
		Concurrency      int    `yaml:"concurrency"`
		FetchTimeout     string `yaml:"fetch_timeout"`
		PollInterval     string `yaml:"poll_interval"`
		FailureThreshold int    `yaml:"failure_threshold"`
		BatchSize        int    `yaml:"batch_size"`
	} `yaml:"harvest"`
}

// Marshal renders cfg as the YAML accepted by Load.
func Marshal(cfg *Config) ([]byte, error) {
	var fc fileConfig
	fc.DataDir = cfg.DataDir
	fc.Storage = cfg.Storage
	fc.SitesFile = cfg.SitesFile
	fc.Cache.Type = cfg.Cache.Type
	fc.Cache.RedisAddr = cfg.Cache.RedisAddr
	fc.Cache.TTL = cfg.Cache.TTL.String()
	fc.Log = cfg.Log
	fc.API = cfg.API
	fc.Harvest.Concurrency = cfg.Harvest.Concurrency
	fc.Harvest.FetchTimeout = cfg.Harvest.FetchTimeout.String()
	fc.Harvest.PollInterval = cfg.Harvest.PollInterval.String()
	fc.Harvest.FailureThreshold = cfg.Harvest.FailureThreshold
	fc.Harvest.BatchSize = cfg.Harvest.BatchSize

	data, err := yaml.Marshal(&fc)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal config: %w", err)
	}
	return data, nil
}

// Save writes cfg to path, creating the directory if needed. An existing
// file is only replaced when overwrite is set.
func Save(path string, cfg *Config, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config file already exists: %s", path)
		}
	}

	data, err := Marshal(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
