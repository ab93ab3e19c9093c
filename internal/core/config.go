package core

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"github.com/ragqa/server/internal/agent/model"
	pkgredis "github.com/ragqa/server/pkg/redis"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"8000"`
}

// Addr returns host:port for the listener.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// AppConfig defines all configurable parameters of the service,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string      `envconfig:"LOG_LEVEL"`

	Server ServerConfig

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	Reasoning model.ReasoningModelConfig
	Embedding model.EmbeddingModelConfig
	Prompt    model.PromptConfig

	// Infrastructure
	Storage model.StorageConfig
	Cache   model.EmbeddingCacheConfig
	Redis   pkgredis.Config
}

// LoadConfig binds the process environment to AppConfig and validates it.
// The service refuses to start without a usable API key.
func LoadConfig() (*AppConfig, error) {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("process environment config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *AppConfig) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("GEMINI_API_KEY is not set or invalid")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid PORT %d", c.Server.Port)
	}

	switch c.Storage.Backend {
	case model.StorageDisk:
		if strings.TrimSpace(c.Storage.Dir) == "" {
			return fmt.Errorf("STORAGE_DIR is required for the disk backend")
		}
	case model.StorageMemory:
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q", c.Storage.Backend)
	}

	switch c.Cache.Backend {
	case model.CacheRedis:
		if strings.TrimSpace(c.Redis.URL) == "" {
			return fmt.Errorf("REDIS_URL is required when EMBEDDING_CACHE=redis")
		}
	case model.CacheMemory, model.CacheNone:
	default:
		return fmt.Errorf("unknown EMBEDDING_CACHE %q", c.Cache.Backend)
	}
	if _, err := c.CacheTTL(); err != nil {
		return err
	}
	return nil
}

// CacheTTL parses EMBEDDING_CACHE_TTL.
func (c *AppConfig) CacheTTL() (time.Duration, error) {
	ttl, err := time.ParseDuration(c.Cache.TTL)
	if err != nil {
		return 0, fmt.Errorf("invalid EMBEDDING_CACHE_TTL '%s': %w", c.Cache.TTL, err)
	}
	return ttl, nil
}
