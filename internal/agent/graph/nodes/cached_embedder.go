package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/components/embedding"

	errx "github.com/ragqa/server/internal/core/error"
	"github.com/ragqa/server/internal/embedcache"
	logx "github.com/ragqa/server/pkg/logger"
)

// CachedEmbedder serves vectors from a cache and sends only the misses upstream,
// in a single batch and in input order.
type CachedEmbedder struct {
	next      embedding.Embedder
	cache     embedcache.Cache
	namespace string
}

// NewCachedEmbedder wraps next with cache. A nil cache returns next unchanged.
func NewCachedEmbedder(next embedding.Embedder, cache embedcache.Cache, namespace string) embedding.Embedder {
	if cache == nil {
		return next
	}
	return &CachedEmbedder{next: next, cache: cache, namespace: namespace}
}

func (c *CachedEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	out := make([][]float64, len(texts))
	keys := make([]string, len(texts))

	var missIdx []int
	var missTexts []string
	for i, t := range texts {
		keys[i] = embedcache.Key(c.namespace, t)
		vec, ok, err := c.cache.Get(ctx, keys[i])
		if err != nil {
			logx.Warn().Err(err).Str("namespace", c.namespace).Msg("Embedding cache read failed; treating as miss")
		}
		if err == nil && ok {
			out[i] = vec
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, t)
	}

	if len(missTexts) == 0 {
		logx.Debug().Int("hits", len(texts)).Str("namespace", c.namespace).Msg("Embeddings served from cache")
		return out, nil
	}

	vecs, err := c.next.EmbedStrings(ctx, missTexts, opts...)
	if err != nil {
		return nil, err
	}
	if len(vecs) != len(missTexts) {
		return nil, errx.Upstream(fmt.Errorf("expected %d embeddings, got %d", len(missTexts), len(vecs)), "embedding response malformed")
	}

	for j, i := range missIdx {
		out[i] = vecs[j]
		if err := c.cache.Set(ctx, keys[i], vecs[j]); err != nil {
			logx.Warn().Err(err).Str("namespace", c.namespace).Msg("Embedding cache write failed")
		}
	}

	logx.Debug().
		Int("hits", len(texts)-len(missTexts)).
		Int("misses", len(missTexts)).
		Str("namespace", c.namespace).
		Msg("Embeddings resolved")
	return out, nil
}

var _ embedding.Embedder = (*CachedEmbedder)(nil)
