package embedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	errx "github.com/ragqa/server/internal/core/error"
	logx "github.com/ragqa/server/pkg/logger"
)

// Redis keeps JSON-encoded vectors under ragqa:embedding:<key>.
type Redis struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewRedis(rdb redis.Cmdable, ttl time.Duration) *Redis {
	return &Redis{rdb: rdb, ttl: ttl}
}

func (r *Redis) key(key string) string {
	return fmt.Sprintf("ragqa:embedding:%s", key)
}

func (r *Redis) Get(ctx context.Context, key string) ([]float64, bool, error) {
	k := r.key(key)
	raw, err := r.rdb.Get(ctx, k).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		logx.Error().Err(err).Str("key", k).Msg("failed to read embedding from redis")
		return nil, false, errx.WrapRedis(err)
	}

	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		logx.Warn().Err(err).Str("key", k).Msg("discarding undecodable cached embedding")
		return nil, false, nil
	}
	return vec, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, vec []float64) error {
	b, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("marshal embedding: %w", err)
	}
	k := r.key(key)
	if err := r.rdb.Set(ctx, k, b, r.ttl).Err(); err != nil {
		logx.Error().Err(err).Str("key", k).Msg("failed to write embedding to redis")
		return errx.WrapRedis(err)
	}
	return nil
}
