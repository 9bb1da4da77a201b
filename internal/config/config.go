// Package config loads the server configuration from YAML and watches it
// for changes so the log level can be adjusted at runtime.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"

	"github.com/nanoserve/nanoserve/pkg/common/validation"
)

// Config is the full server configuration.
type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Log         LogConfig         `koanf:"log"`
	Replay      ReplayConfig      `koanf:"replay"`
	Metrics     MetricsConfig     `koanf:"metrics"`
	Maintenance MaintenanceConfig `koanf:"maintenance"`
}

// ServerConfig sizes the listener, queue and worker pool.
type ServerConfig struct {
	Port          int `koanf:"port"`
	Backlog       int `koanf:"backlog"`
	QueueCapacity int `koanf:"queue_capacity"`
	Workers       int `koanf:"workers"`
}

// LogConfig controls log output and rotation. An empty File logs to
// stdout without rotation.
type LogConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// ReplayConfig sizes the idempotency replay cache.
type ReplayConfig struct {
	CacheSize int           `koanf:"cache_size"`
	TTL       time.Duration `koanf:"ttl"`
}

// MetricsConfig controls the Prometheus scrape endpoint.
type MetricsConfig struct {
	Enabled bool   `koanf:"enabled"`
	Addr    string `koanf:"addr"`
}

// MaintenanceConfig controls the periodic stats job.
type MaintenanceConfig struct {
	StatsInterval string `koanf:"stats_interval"`
}

// Default returns the configuration used when no file or key overrides it.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:          8080,
			Backlog:       128,
			QueueCapacity: 256,
			Workers:       8,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
		Replay: ReplayConfig{
			CacheSize: 1024,
			TTL:       5 * time.Minute,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9090",
		},
		Maintenance: MaintenanceConfig{
			StatsInterval: "@every 30s",
		},
	}
}

// Load reads the YAML file at path and overlays it on the defaults.
// An empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return &cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse overlays YAML bytes on the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()

	k := koanf.New(".")
	if err := k.Load(rawbytes.Provider(data), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the server cannot start with.
func (c *Config) Validate() error {
	if err := validation.ValidatePort("config", "server.port", c.Server.Port); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "server.backlog", c.Server.Backlog); err != nil {
		return err
	}
	if err := validation.ValidateNonNegative("config", "server.queue_capacity", c.Server.QueueCapacity); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "server.workers", c.Server.Workers); err != nil {
		return err
	}
	if err := validation.ValidatePositive("config", "replay.cache_size", c.Replay.CacheSize); err != nil {
		return err
	}
	if err := validation.ValidateNotEmpty("config", "log.level", c.Log.Level); err != nil {
		return err
	}
	return nil
}
