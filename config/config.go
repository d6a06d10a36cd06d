// Package config loads recipefed settings. Values come from built-in
// defaults, then the YAML file at ~/.recipefed/config.yaml, then RECIPEFED_*
// environment variables (RECIPEFED_STORAGE_PAGES_DB sets storage.pages_db).
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pevans/recipefed/harvest"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RECIPEFED"

// ErrInvalidConfig is returned when a loaded value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config is the complete recipefed configuration.
type Config struct {
	// DataDir holds the recipe store and page database unless their paths
	// are set explicitly.
	DataDir string        `mapstructure:"data_dir"`
	Storage StorageConfig `mapstructure:"storage"`

	// SitesFile is a YAML file of site configurations overlaid on the
	// built-in sites.
	SitesFile string `mapstructure:"sites_file"`

	Cache   CacheConfig   `mapstructure:"cache"`
	Log     LogConfig     `mapstructure:"log"`
	API     APIConfig     `mapstructure:"api"`
	Harvest HarvestConfig `mapstructure:"harvest"`
}

// StorageConfig locates the recipe store and the page database.
type StorageConfig struct {
	RecipesDir string `mapstructure:"recipes_dir" yaml:"recipes_dir,omitempty"`
	PagesDB    string `mapstructure:"pages_db" yaml:"pages_db,omitempty"`
}

// CacheConfig selects the fetched-page cache.
type CacheConfig struct {
	// Type is memory, redis or none.
	Type      string        `mapstructure:"type"`
	RedisAddr string        `mapstructure:"redis_addr"`
	TTL       time.Duration `mapstructure:"ttl"`
}

// LogConfig controls logging.
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level"`
	File  string `mapstructure:"file" yaml:"file,omitempty"`
	Color bool   `mapstructure:"color" yaml:"color"`
}

// APIConfig controls the HTTP server.
type APIConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`

	// Harvest runs the periodic discover and harvest loop alongside the
	// server.
	Harvest bool `mapstructure:"harvest" yaml:"harvest"`
}

// HarvestConfig mirrors harvest.Config.
type HarvestConfig struct {
	Concurrency      int           `mapstructure:"concurrency"`
	FetchTimeout     time.Duration `mapstructure:"fetch_timeout"`
	PollInterval     time.Duration `mapstructure:"poll_interval"`
	FailureThreshold int           `mapstructure:"failure_threshold"`
	BatchSize        int           `mapstructure:"batch_size"`
}

// ServiceConfig converts c to the harvest service's configuration.
func (c HarvestConfig) ServiceConfig() *harvest.Config {
	return &harvest.Config{
		Concurrency:      c.Concurrency,
		FetchTimeout:     c.FetchTimeout,
		PollInterval:     c.PollInterval,
		FailureThreshold: c.FailureThreshold,
		BatchSize:        c.BatchSize,
	}
}

// DefaultDataDir returns ~/.recipefed, or .recipefed in the working
// directory when the home directory is unknown.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".recipefed"
	}
	return filepath.Join(home, ".recipefed")
}

// DefaultPath returns the location of the config file.
func DefaultPath() string {
	return filepath.Join(DefaultDataDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	h := harvest.DefaultConfig()

	v.SetDefault("data_dir", DefaultDataDir())
	v.SetDefault("storage.recipes_dir", "")
	v.SetDefault("storage.pages_db", "")
	v.SetDefault("sites_file", "")

	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_addr", "localhost:6379")
	v.SetDefault("cache.ttl", "1h")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.color", false)

	v.SetDefault("api.addr", ":8080")
	v.SetDefault("api.harvest", false)

	v.SetDefault("harvest.concurrency", h.Concurrency)
	v.SetDefault("harvest.fetch_timeout", h.FetchTimeout)
	v.SetDefault("harvest.poll_interval", h.PollInterval)
	v.SetDefault("harvest.failure_threshold", h.FailureThreshold)
	v.SetDefault("harvest.batch_size", h.BatchSize)
}

// Load reads the configuration. An empty path means DefaultPath; a missing
// file is not an error.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath()
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(path); err == nil {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.resolvePaths()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolvePaths places unset storage paths under DataDir.
func (c *Config) resolvePaths() {
	if c.DataDir == "" {
		c.DataDir = DefaultDataDir()
	}
	if c.Storage.RecipesDir == "" {
		c.Storage.RecipesDir = filepath.Join(c.DataDir, "recipes")
	}
	if c.Storage.PagesDB == "" {
		c.Storage.PagesDB = filepath.Join(c.DataDir, "pages.db")
	}
}

// Validate checks that enumerated and numeric settings are usable.
func (c *Config) Validate() error {
	switch c.Cache.Type {
	case "memory", "none":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("%w: cache.redis_addr is required for the redis cache", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: cache.type must be memory, redis or none, got %q", ErrInvalidConfig, c.Cache.Type)
	}

	if c.Cache.TTL < 0 {
		return fmt.Errorf("%w: cache.ttl must not be negative", ErrInvalidConfig)
	}
	if c.Harvest.Concurrency < 1 {
		return fmt.Errorf("%w: harvest.concurrency must be at least 1", ErrInvalidConfig)
	}
	if c.Harvest.FailureThreshold < 1 {
		return fmt.Errorf("%w: harvest.failure_threshold must be at least 1", ErrInvalidConfig)
	}
	if c.Harvest.BatchSize < 1 {
		return fmt.Errorf("%w: harvest.batch_size must be at least 1", ErrInvalidConfig)
	}
	if c.Harvest.PollInterval <= 0 {
		return fmt.Errorf("%w: harvest.poll_interval must be positive", ErrInvalidConfig)
	}
	return nil
}
