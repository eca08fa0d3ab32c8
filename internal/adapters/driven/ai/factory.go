// Package ai builds the model-facing adapters (embedding provider, reranker,
// embedding cache, completion client, vector index) from configuration.
package ai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/custodia-labs/kbassist/internal/adapters/driven/cache/lru"
	rediscache "github.com/custodia-labs/kbassist/internal/adapters/driven/cache/redis"
	"github.com/custodia-labs/kbassist/internal/adapters/driven/embedding/hashing"
	ollamaembed "github.com/custodia-labs/kbassist/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/kbassist/internal/adapters/driven/embedding/openai"
	openaillm "github.com/custodia-labs/kbassist/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/kbassist/internal/adapters/driven/rerank/crossencoder"
	"github.com/custodia-labs/kbassist/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/kbassist/internal/adapters/driven/vector/noop"
	"github.com/custodia-labs/kbassist/internal/adapters/driven/vector/qdrant"
	"github.com/custodia-labs/kbassist/internal/config"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// pingTimeout bounds each connectivity check.
const pingTimeout = 5 * time.Second

// VectorIndexSource provides an index over a named collection. The SQLite
// store satisfies it.
type VectorIndexSource interface {
	VectorIndex(collection string) driven.VectorIndex
}

// Components holds the adapters built from configuration. Fields other
// than Completion and Index may be nil when the feature is disabled.
type Components struct {
	Embedding  driven.EmbeddingService
	Reranker   driven.Reranker
	Cache      driven.EmbeddingCache
	Completion driven.CompletionAPI
	Index      driven.VectorIndex

	// Warnings lists components that could not be built and were
	// replaced or left out.
	Warnings []string

	closers []io.Closer
}

// Build creates every component. It never fails: a component that cannot
// be built is left out (or replaced by its degraded stand-in) and a
// warning is recorded.
func Build(ctx context.Context, cfg *config.Config, sqlite VectorIndexSource) *Components {
	c := &Components{}

	embedding, err := NewEmbeddingService(cfg.Embedding)
	if err != nil {
		c.warn("embedding: %v", err)
	}
	c.Embedding = embedding

	if cfg.Rerank.Enabled || cfg.Retrieval.Rerank {
		reranker, err := NewReranker(cfg.Rerank)
		if err != nil {
			c.warn("rerank: %v", err)
		} else {
			c.Reranker = reranker
		}
	}

	cache, closer, err := NewEmbeddingCache(ctx, cfg.Embedding, cfg.Redis)
	if err != nil {
		c.warn("embedding cache: %v", err)
	}
	c.Cache = cache
	c.track(closer)

	c.Completion = NewCompletionAPI(cfg.Generation)

	index, err := NewVectorIndex(cfg.Vector, sqlite)
	if err != nil {
		c.warn("vector index: %v", err)
		index = noop.New(err)
	}
	c.Index = index

	for _, w := range c.Warnings {
		logger.Warn("%s", w)
	}
	return c
}

// Ping checks connectivity of each configured component. The result maps
// component name to its error; healthy components map to nil.
func (c *Components) Ping(ctx context.Context) map[string]error {
	out := make(map[string]error)

	check := func(name string, fn func(context.Context) error) {
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		out[name] = fn(pctx)
	}

	if c.Embedding != nil {
		check("embedding", c.Embedding.Ping)
	}
	if c.Reranker != nil {
		check("rerank", c.Reranker.Ping)
	}
	if p, ok := c.Completion.(interface{ Ping(context.Context) error }); ok {
		check("generation", p.Ping)
	}
	if c.Index != nil {
		check("vector", c.Index.Connect)
	}
	return out
}

// Close releases the cache connection and the vector index. The embedding
// provider is owned by the embedding engine and closed there.
func (c *Components) Close() error {
	var errs []error
	for _, closer := range c.closers {
		errs = append(errs, closer.Close())
	}
	if c.Index != nil {
		errs = append(errs, c.Index.Close())
	}
	return errors.Join(errs...)
}

func (c *Components) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func (c *Components) track(closer io.Closer) {
	if closer != nil {
		c.closers = append(c.closers, closer)
	}
}

// NewEmbeddingService creates the configured embedding provider.
// Provider "none" returns nil, which makes every embedding a zero vector.
func NewEmbeddingService(cfg config.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch cfg.Provider {
	case "hashing", "":
		return hashing.NewEmbeddingService(cfg.Dimension), nil

	case "openai":
		svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimension,
		})
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
		}
		return svc, nil

	case "ollama":
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimension,
		}), nil

	case "none":
		return nil, nil

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider %q", domain.ErrEmbeddingUnavailable, cfg.Provider)
	}
}

// NewReranker creates the cross-encoder client.
func NewReranker(cfg config.RerankConfig) (driven.Reranker, error) {
	r, err := crossencoder.New(crossencoder.Config{
		BaseURL: cfg.BaseURL,
		APIKey:  cfg.APIKey,
		Model:   cfg.Model,
		Timeout: cfg.Timeout,
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// NewEmbeddingCache creates the configured embedding cache. The returned
// closer is non-nil only for caches holding a connection. A redis cache
// that cannot be reached falls back to the in-process cache.
func NewEmbeddingCache(
	ctx context.Context,
	cfg config.EmbeddingConfig,
	redisCfg config.RedisConfig,
) (driven.EmbeddingCache, io.Closer, error) {
	switch cfg.Cache {
	case "none":
		return nil, nil, nil

	case "redis":
		if redisCfg.URL == "" {
			return nil, nil, errors.New("redis.url is empty")
		}
		pctx, cancel := context.WithTimeout(ctx, pingTimeout)
		defer cancel()
		cache, err := rediscache.New(pctx, redisCfg.URL)
		if err == nil {
			return cache, cache, nil
		}
		local, lerr := lru.New(cfg.CacheSize)
		if lerr != nil {
			return nil, nil, errors.Join(err, lerr)
		}
		return local, nil, fmt.Errorf("using in-process cache: %w", err)

	default:
		cache, err := lru.New(cfg.CacheSize)
		if err != nil {
			return nil, nil, err
		}
		return cache, nil, nil
	}
}

// NewCompletionAPI creates the chat completions client.
func NewCompletionAPI(cfg config.GenerationConfig) driven.CompletionAPI {
	return openaillm.New(openaillm.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.Endpoint,
		Model:             cfg.Model,
		RequestTimeout:    cfg.RequestTimeout,
		StreamTimeout:     cfg.StreamTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
}

// NewVectorIndex selects the vector backend. The sqlite backend requires
// a source; the noop backend reports every operation as unavailable.
func NewVectorIndex(cfg config.VectorConfig, sqlite VectorIndexSource) (driven.VectorIndex, error) {
	switch cfg.Backend {
	case "qdrant":
		return qdrant.New(qdrant.Config{
			Host:       cfg.Host,
			Port:       cfg.Port,
			Collection: cfg.Collection,
		}), nil

	case "sqlite", "":
		if sqlite == nil {
			return nil, fmt.Errorf("%w: sqlite backend needs an open store", domain.ErrIndexUnavailable)
		}
		return sqlite.VectorIndex(cfg.Collection), nil

	case "memory":
		return memory.New(cfg.Collection), nil

	case "noop":
		return noop.New(errors.New("vector backend disabled by configuration")), nil

	default:
		return nil, fmt.Errorf("%w: unsupported vector backend %q", domain.ErrIndexUnavailable, cfg.Backend)
	}
}
