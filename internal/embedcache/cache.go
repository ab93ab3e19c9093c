// Package embedcache caches embedding vectors by content hash so repeated
// texts (re-indexing at startup, repeated questions) skip the provider.
package embedcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/ragqa/server/internal/agent/model"
)

// Cache stores vectors by key. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, key string) ([]float64, bool, error)
	Set(ctx context.Context, key string, vec []float64) error
}

// Key derives a cache key for text embedded under namespace
// (model plus task type, so query and document vectors never mix).
func Key(namespace, text string) string {
	h := sha256.New()
	h.Write([]byte(namespace))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// Memory is an in-process cache with expiry.
type Memory struct {
	c *gocache.Cache
}

func NewMemory(ttl time.Duration) *Memory {
	cleanup := ttl
	if cleanup <= 0 || cleanup > 10*time.Minute {
		cleanup = 10 * time.Minute
	}
	return &Memory{c: gocache.New(ttl, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) ([]float64, bool, error) {
	v, ok := m.c.Get(key)
	if !ok {
		return nil, false, nil
	}
	vec, ok := v.([]float64)
	return vec, ok, nil
}

func (m *Memory) Set(_ context.Context, key string, vec []float64) error {
	m.c.Set(key, vec, gocache.DefaultExpiration)
	return nil
}

// New builds the cache selected by cfg. It returns nil for the "none" backend.
func New(cfg model.EmbeddingCacheConfig, ttl time.Duration, rdb redis.Cmdable) (Cache, error) {
	switch cfg.Backend {
	case model.CacheNone:
		return nil, nil
	case model.CacheMemory:
		return NewMemory(ttl), nil
	case model.CacheRedis:
		if rdb == nil {
			return nil, fmt.Errorf("redis client is nil")
		}
		return NewRedis(rdb, ttl), nil
	default:
		return nil, fmt.Errorf("unknown embedding cache backend %q", cfg.Backend)
	}
}

var (
	_ Cache = (*Memory)(nil)
	_ Cache = (*Redis)(nil)
)
