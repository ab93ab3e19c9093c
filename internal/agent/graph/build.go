package graph

import (
	"context"
	"fmt"

	"github.com/ragqa/server/internal/agent/graph/nodes"
	"github.com/ragqa/server/internal/agent/model"
	"github.com/ragqa/server/internal/embedcache"
	"github.com/ragqa/server/internal/metrics"
	logx "github.com/ragqa/server/pkg/logger"
)

// Config holds everything needed to compose the pipeline end-to-end.
// This is a convenience layer over GraphConfig that also constructs the
// Gemini client, the chat model and both embedders.
type Config struct {
	APIKey    string
	BaseURL   string
	Reasoning model.ReasoningModelConfig
	Embedding model.EmbeddingModelConfig
	Prompt    model.PromptConfig

	// Cache may be nil to embed without caching.
	Cache   embedcache.Cache
	Metrics *metrics.Metrics
}

// BuildPipeline creates the Gemini-backed components and returns a compiled Pipeline.
func BuildPipeline(ctx context.Context, cfg Config) (*Pipeline, error) {
	client, err := nodes.NewClient(ctx, nodes.ClientConfig{APIKey: cfg.APIKey, BaseURL: cfg.BaseURL})
	if err != nil {
		return nil, err
	}

	chatModel, err := nodes.NewReasoningChatModel(ctx, client, cfg.Reasoning)
	if err != nil {
		return nil, err
	}
	reasoner, err := nodes.NewReasoner(chatModel, cfg.Reasoning.Model)
	if err != nil {
		return nil, err
	}

	docEmb, err := nodes.NewGenAIEmbedder(client, cfg.Embedding.Model, nodes.TaskRetrievalDocument)
	if err != nil {
		return nil, fmt.Errorf("document embedder: %w", err)
	}
	queryEmb, err := nodes.NewGenAIEmbedder(client, cfg.Embedding.Model, nodes.TaskRetrievalQuery)
	if err != nil {
		return nil, fmt.Errorf("query embedder: %w", err)
	}

	retriever, err := nodes.NewRetriever(
		nodes.NewCachedEmbedder(docEmb, cfg.Cache, docEmb.Namespace()),
		nodes.NewCachedEmbedder(queryEmb, cfg.Cache, queryEmb.Namespace()),
	)
	if err != nil {
		return nil, err
	}

	p, err := NewPipeline(ctx, &GraphConfig{
		Retriever:   retriever,
		Reasoner:    reasoner,
		Metrics:     cfg.Metrics,
		DefaultUser: cfg.Prompt.DefaultUser,
	})
	if err != nil {
		return nil, err
	}

	logx.Debug().
		Str("reasoning_model", cfg.Reasoning.Model).
		Str("embedding_model", cfg.Embedding.Model).
		Bool("embedding_cache", cfg.Cache != nil).
		Msg("Pipeline built successfully")
	return p, nil
}
