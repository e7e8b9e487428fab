// File: internal/config/config.go
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level    string `yaml:"level"`    // trace|debug|info|warn|error
	Format   string `yaml:"format"`   // json|console
	Sampling bool   `yaml:"sampling"` // enable sampling in prod
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type AIConfig struct {
	Provider     string `yaml:"provider"` // ollama | openai | gemini
	OllamaURL    string `yaml:"ollama_url"`
	OpenAIKey    string `yaml:"openai_key"`
	GeminiKey    string `yaml:"gemini_key"`
	DefaultModel string `yaml:"default_model"`
	EmbedModel   string `yaml:"embed_model"`
	SystemPrompt string `yaml:"system_prompt"`
	// Think enables reasoning output on backends that support it; a request
	// can still turn it off per prompt.
	Think bool `yaml:"think"`
}

type RetrievalConfig struct {
	TopK          int `yaml:"top_k"`
	MaxWebResults int `yaml:"max_web_results"`
	// IngestWorkers bounds concurrent indexing jobs.
	IngestWorkers int `yaml:"ingest_workers"`
}

type SweepConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	TokenTTL  time.Duration `yaml:"token_ttl"`
}

type ExportConfig struct {
	Dir string `yaml:"dir"`
}

type RateLimitConfig struct {
	PerMinute int `yaml:"per_minute"` // stream requests per user per minute, 0 disables
}

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	AI        AIConfig        `yaml:"ai"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Sweep     SweepConfig     `yaml:"sweep"`
	Auth      AuthConfig      `yaml:"auth"`
	Export    ExportConfig    `yaml:"export"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`

	Runtime RuntimeConfig `yaml:"-"`
}

func LoadConfig() (*Config, error) {
	var configPath string = ""
	var dev bool
	flag.StringVar(&configPath, "config", "config.yaml", "path to config yaml")
	flag.BoolVar(&dev, "dev", false, "development mode")
	flag.Parse()

	b, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	applyDefaults(&cfg)

	// Minimal validation
	if cfg.Database.URL == "" {
		return nil, errors.New("database.url is required")
	}
	if cfg.Redis.URL == "" {
		return nil, errors.New("redis.url is required")
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("auth.jwt_secret is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8000
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.AI.Provider == "" {
		cfg.AI.Provider = "ollama"
	}
	if cfg.AI.OllamaURL == "" {
		cfg.AI.OllamaURL = "http://localhost:11434"
	}
	if cfg.AI.EmbedModel == "" {
		cfg.AI.EmbedModel = "nomic-embed-text"
	}
	if cfg.AI.SystemPrompt == "" {
		cfg.AI.SystemPrompt = "You are a helpful personal assistant."
	}
	if cfg.Retrieval.TopK <= 0 {
		cfg.Retrieval.TopK = 3
	}
	if cfg.Retrieval.MaxWebResults <= 0 {
		cfg.Retrieval.MaxWebResults = 5
	}
	if cfg.Retrieval.IngestWorkers <= 0 {
		cfg.Retrieval.IngestWorkers = 2
	}
	if cfg.Sweep.Interval <= 0 {
		cfg.Sweep.Interval = time.Minute
	}
	if cfg.Auth.TokenTTL <= 0 {
		cfg.Auth.TokenTTL = 72 * time.Hour
	}
	if cfg.Export.Dir == "" {
		cfg.Export.Dir = "exports"
	}
	cfg.Redis.TTL = normalizeTTL(cfg.Redis.TTL)
}

func normalizeTTL(d time.Duration) time.Duration {
	if d <= 0 {
		return time.Hour
	}
	return d
}
