package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/ragqa/server/internal/agent/graph"
	"github.com/ragqa/server/internal/agent/model"
	"github.com/ragqa/server/internal/core"
	"github.com/ragqa/server/internal/documents"
	"github.com/ragqa/server/internal/embedcache"
	"github.com/ragqa/server/internal/metrics"
	"github.com/ragqa/server/internal/server"
	logx "github.com/ragqa/server/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	envErr := godotenv.Load(".env")

	cfg, err := core.LoadConfig()
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to load configuration")
	}
	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})
	if envErr != nil {
		logx.Warn().Err(envErr).Msg("Could not load .env file")
	}

	cache, closeCache, err := newEmbeddingCache(ctx, cfg)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to initialise embedding cache")
	}
	defer closeCache()

	repo, err := documents.NewRepository(cfg.Storage)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to open document repository")
	}

	m := metrics.NewMetrics()
	pipeline, err := graph.BuildPipeline(ctx, graph.Config{
		APIKey:    cfg.APIKey,
		BaseURL:   cfg.BaseURL,
		Reasoning: cfg.Reasoning,
		Embedding: cfg.Embedding,
		Prompt:    cfg.Prompt,
		Cache:     cache,
		Metrics:   m,
	})
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to build pipeline")
	}

	if cfg.Storage.ReindexOnStart {
		if _, err := pipeline.Reindex(ctx, repo); err != nil {
			logx.Fatal().Err(err).Msg("Failed to reindex stored documents")
		}
	}

	srv, err := server.NewServer(pipeline, repo, m, &cfg.Server)
	if err != nil {
		logx.Fatal().Err(err).Msg("Failed to create http server")
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Fatal().Err(err).Msg("Http server stopped")
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logx.Error().Err(err).Msg("Graceful shutdown failed")
		}
	}
}

// newEmbeddingCache builds the configured cache. The returned func releases
// the Redis connection when one was opened.
func newEmbeddingCache(ctx context.Context, cfg *core.AppConfig) (embedcache.Cache, func(), error) {
	noop := func() {}
	ttl, err := cfg.CacheTTL()
	if err != nil {
		return nil, noop, err
	}

	var rdb *redis.Client
	if cfg.Cache.Backend == model.CacheRedis {
		rdb, err = cfg.Redis.New(ctx)
		if err != nil {
			return nil, noop, err
		}
		logx.Info().Msg("Connected to Redis successfully")
	}

	var cmd redis.Cmdable
	if rdb != nil {
		cmd = rdb
	}
	cache, err := embedcache.New(cfg.Cache, ttl, cmd)
	if err != nil {
		if rdb != nil {
			_ = rdb.Close()
		}
		return nil, noop, err
	}

	closeFn := noop
	if rdb != nil {
		closeFn = func() {
			if err := rdb.Close(); err != nil {
				logx.Warn().Err(err).Msg("Failed to close Redis client")
			}
		}
	}
	return cache, closeFn, nil
}
