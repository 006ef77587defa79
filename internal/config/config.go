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
	Port           int           `yaml:"port"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL      string `yaml:"url"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"` // chatbot cache TTL
}

type AIConfig struct {
	OpenRouterKey     string        `yaml:"openrouter_key"`
	OpenRouterBaseURL string        `yaml:"openrouter_base_url"`
	OpenAIKey         string        `yaml:"openai_key"`
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`          // per completion call
	ConcurrentLimit   int           `yaml:"concurrent_limit"` // max concurrent provider calls
}

type LimitsConfig struct {
	WidgetRequests int           `yaml:"widget_requests"` // per window, per session
	WidgetWindow   time.Duration `yaml:"widget_window"`
	TurnLockTTL    time.Duration `yaml:"turn_lock_ttl"` // per-session turn serialization
	TurnDedupTTL   time.Duration `yaml:"turn_dedup_ttl"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Limits   LimitsConfig   `yaml:"limits"`

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
		cfg.Server.Port = 8000
	}
	if cfg.Server.RequestTimeout <= 0 {
		cfg.Server.RequestTimeout = 60 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Database.MaxConns <= 0 {
		cfg.Database.MaxConns = 10
	}
	if cfg.Redis.TTL <= 0 {
		cfg.Redis.TTL = 5 * time.Minute
	}
	if cfg.AI.OpenRouterBaseURL == "" {
		cfg.AI.OpenRouterBaseURL = "https://openrouter.ai/api/v1"
	}
	if cfg.AI.Temperature == 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 1024
	}
	if cfg.AI.Timeout <= 0 {
		cfg.AI.Timeout = 45 * time.Second
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 16
	}
	if cfg.Limits.WidgetRequests <= 0 {
		cfg.Limits.WidgetRequests = 20
	}
	if cfg.Limits.WidgetWindow <= 0 {
		cfg.Limits.WidgetWindow = time.Minute
	}
	if cfg.Limits.TurnLockTTL <= 0 {
		cfg.Limits.TurnLockTTL = 90 * time.Second
	}
	if cfg.Limits.TurnDedupTTL <= 0 {
		cfg.Limits.TurnDedupTTL = 24 * time.Hour
	}

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if !dev && cfg.AI.OpenRouterKey == "" && cfg.AI.OpenAIKey == "" {
		return nil, errors.New("ai.openrouter_key or ai.openai_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
