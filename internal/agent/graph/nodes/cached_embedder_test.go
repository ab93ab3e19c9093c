package nodes

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ragqa/server/internal/embedcache"
)

// brokenCache fails every call.
type brokenCache struct{}

func (brokenCache) Get(context.Context, string) ([]float64, bool, error) {
	return nil, false, errors.New("cache down")
}

func (brokenCache) Set(context.Context, string, []float64) error {
	return errors.New("cache down")
}

func TestCachedEmbedderOnlySendsMisses(t *testing.T) {
	ctx := context.Background()
	next := newKeywordEmbedder("sky", "grass")
	emb := NewCachedEmbedder(next, embedcache.NewMemory(time.Hour), "embedding-001|RETRIEVAL_DOCUMENT")

	first, err := emb.EmbedStrings(ctx, []string{"sky", "grass"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, first)

	second, err := emb.EmbedStrings(ctx, []string{"grass", "blue sky", "sky"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 1}, {1, 0}, {1, 0}}, second)

	require.Equal(t, 2, next.callCount())
	assert.Equal(t, []string{"blue sky"}, next.calls[1])
}

func TestCachedEmbedderAllHits(t *testing.T) {
	ctx := context.Background()
	next := newKeywordEmbedder("sky")
	emb := NewCachedEmbedder(next, embedcache.NewMemory(time.Hour), "ns")

	_, err := emb.EmbedStrings(ctx, []string{"sky"})
	require.NoError(t, err)
	_, err = emb.EmbedStrings(ctx, []string{"sky", "sky"})
	require.NoError(t, err)
	assert.Equal(t, 1, next.callCount())
}

func TestCachedEmbedderNamespacesAreIsolated(t *testing.T) {
	ctx := context.Background()
	cache := embedcache.NewMemory(time.Hour)
	next := newKeywordEmbedder("sky")

	docs := NewCachedEmbedder(next, cache, "m|RETRIEVAL_DOCUMENT")
	queries := NewCachedEmbedder(next, cache, "m|RETRIEVAL_QUERY")

	_, err := docs.EmbedStrings(ctx, []string{"sky"})
	require.NoError(t, err)
	_, err = queries.EmbedStrings(ctx, []string{"sky"})
	require.NoError(t, err)
	assert.Equal(t, 2, next.callCount())
}

func TestCachedEmbedderCacheErrorsAreMisses(t *testing.T) {
	next := newKeywordEmbedder("sky")
	emb := NewCachedEmbedder(next, brokenCache{}, "ns")

	vecs, err := emb.EmbedStrings(context.Background(), []string{"sky"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}}, vecs)
	assert.Equal(t, 1, next.callCount())
}

func TestCachedEmbedderUpstreamError(t *testing.T) {
	next := newKeywordEmbedder("sky")
	next.err = errors.New("quota")
	emb := NewCachedEmbedder(next, embedcache.NewMemory(time.Hour), "ns")

	_, err := emb.EmbedStrings(context.Background(), []string{"sky"})
	assert.Error(t, err)
}

func TestNewCachedEmbedderWithoutCache(t *testing.T) {
	next := newKeywordEmbedder("sky")
	assert.Same(t, next, NewCachedEmbedder(next, nil, "ns"))
}
