// File: internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port      int    `yaml:"port"`
	JWTSecret string `yaml:"jwt_secret"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	PoolSize int    `yaml:"pool_size"`
}

type RedisConfig struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type LookupConfig struct {
	BaseURL     string        `yaml:"base_url"`
	APIKey      string        `yaml:"api_key"`
	Timeout     time.Duration `yaml:"timeout"`      // per-attempt timeout
	MaxAttempts int           `yaml:"max_attempts"` // attempts before surfacing error
	RetryBase   time.Duration `yaml:"retry_base"`   // first retry delay, doubles per attempt
}

type QuotaConfig struct {
	BaseURL string        `yaml:"base_url"`
	APIKey  string        `yaml:"api_key"`
	Timeout time.Duration `yaml:"timeout"`
}

type WorkerConfig struct {
	PoolSize     int           `yaml:"pool_size"`
	QueueKey     string        `yaml:"queue_key"`
	ItemInterval time.Duration `yaml:"item_interval"` // pacing between items
}

type RecoveryConfig struct {
	Interval    time.Duration `yaml:"interval"`
	Staleness   time.Duration `yaml:"staleness"`
	MaxAttempts int           `yaml:"max_attempts"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Lookup   LookupConfig   `yaml:"lookup"`
	Quota    QuotaConfig    `yaml:"quota"`
	Worker   WorkerConfig   `yaml:"worker"`
	Recovery RecoveryConfig `yaml:"recovery"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.PoolSize <= 0 {
		cfg.Database.PoolSize = 10
	}
	if cfg.Lookup.Timeout <= 0 {
		cfg.Lookup.Timeout = 30 * time.Second
	}
	if cfg.Lookup.MaxAttempts <= 0 {
		cfg.Lookup.MaxAttempts = 3
	}
	if cfg.Lookup.RetryBase <= 0 {
		cfg.Lookup.RetryBase = 2 * time.Second
	}
	if cfg.Quota.Timeout <= 0 {
		cfg.Quota.Timeout = 10 * time.Second
	}
	if cfg.Worker.PoolSize <= 0 {
		cfg.Worker.PoolSize = 4
	}
	if cfg.Worker.QueueKey == "" {
		cfg.Worker.QueueKey = "lookup:jobs:dispatch"
	}
	if cfg.Worker.ItemInterval <= 0 {
		cfg.Worker.ItemInterval = 500 * time.Millisecond
	}
	if cfg.Recovery.Interval <= 0 {
		cfg.Recovery.Interval = 5 * time.Minute
	}
	if cfg.Recovery.Staleness <= 0 {
		cfg.Recovery.Staleness = 10 * time.Minute
	}
	if cfg.Recovery.MaxAttempts <= 0 {
		cfg.Recovery.MaxAttempts = 3
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Lookup.BaseURL == "" {
		return nil, errors.New("lookup.base_url is required")
	}
	if cfg.Server.JWTSecret == "" && !dev {
		return nil, errors.New("server.jwt_secret is required outside dev mode")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
