package embedcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragqa/server/internal/agent/model"
	errx "github.com/ragqa/server/internal/core/error"
)

// fakeRedis implements the two commands the cache issues.
type fakeRedis struct {
	redis.Cmdable
	data    map[string]string
	ttls    map[string]time.Duration
	failing bool
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.failing {
		return redis.NewStringResult("", errors.New("connection refused"))
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	if f.failing {
		return redis.NewStatusResult("", errors.New("connection refused"))
	}
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	case string:
		f.data[key] = v
	}
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func TestKeySeparatesNamespaces(t *testing.T) {
	assert.Equal(t, Key("m|q", "hello"), Key("m|q", "hello"))
	assert.NotEqual(t, Key("m|q", "hello"), Key("m|d", "hello"))
	assert.NotEqual(t, Key("m|q", "hello"), Key("m|q", "hello!"))
	assert.Len(t, Key("ns", "text"), 64)
}

func TestMemoryCache(t *testing.T) {
	ctx := context.Background()
	c := NewMemory(time.Hour)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []float64{1, 2, 3}))
	vec, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float64{1, 2, 3}, vec)
}

func TestRedisCache(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	c := NewRedis(rdb, 30*time.Minute)

	_, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "abc", []float64{0.5, -1}))
	assert.Equal(t, "[0.5,-1]", rdb.data["ragqa:embedding:abc"])
	assert.Equal(t, 30*time.Minute, rdb.ttls["ragqa:embedding:abc"])

	vec, ok, err := c.Get(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []float64{0.5, -1}, vec)
}

func TestRedisCacheGarbageIsMiss(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data["ragqa:embedding:bad"] = "not json"

	_, ok, err := NewRedis(rdb, time.Minute).Get(context.Background(), "bad")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRedisCacheErrors(t *testing.T) {
	rdb := newFakeRedis()
	rdb.failing = true
	c := NewRedis(rdb, time.Minute)

	_, _, err := c.Get(context.Background(), "abc")
	assert.ErrorIs(t, err, errx.ErrUpstream)

	err = c.Set(context.Background(), "abc", []float64{1})
	assert.ErrorIs(t, err, errx.ErrUpstream)
}

func TestNew(t *testing.T) {
	c, err := New(model.EmbeddingCacheConfig{Backend: model.CacheNone}, time.Hour, nil)
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(model.EmbeddingCacheConfig{Backend: model.CacheMemory}, time.Hour, nil)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	c, err = New(model.EmbeddingCacheConfig{Backend: model.CacheRedis}, time.Hour, newFakeRedis())
	require.NoError(t, err)
	assert.IsType(t, &Redis{}, c)

	_, err = New(model.EmbeddingCacheConfig{Backend: model.CacheRedis}, time.Hour, nil)
	assert.Error(t, err)

	_, err = New(model.EmbeddingCacheConfig{Backend: "disk"}, time.Hour, nil)
	assert.Error(t, err)
}
