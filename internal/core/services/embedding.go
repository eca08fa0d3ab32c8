package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/logger"
	"github.com/custodia-labs/kbassist/internal/metrics"
)

// DefaultDimension is the vector size assumed before a provider is loaded.
const DefaultDimension = 384

// pingTimeout bounds model loading.
const pingTimeout = 5 * time.Second

// EmbeddingEngineConfig configures an EmbeddingEngine.
type EmbeddingEngineConfig struct {
	// Dimension is reported, and used for zero vectors, until the
	// provider has loaded. Zero means DefaultDimension.
	Dimension int

	// ChunkSize and ChunkOverlap are reported by ModelInfo.
	ChunkSize    int
	ChunkOverlap int

	// CacheTTL is passed to the cache on every store. Zero keeps
	// entries until evicted.
	CacheTTL time.Duration
}

// EmbeddingEngine turns text into vectors and reranks candidates.
//
// Loading is explicit (Init) and memoised: a successful load is never
// repeated, and a failed load is only retried by calling Init again.
// Encoding never fails outright; when the model is unavailable callers
// receive zero vectors inside a failed Result.
type EmbeddingEngine struct {
	provider driven.EmbeddingService
	reranker driven.Reranker
	cache    driven.EmbeddingCache
	cfg      EmbeddingEngineConfig

	mu           sync.Mutex
	attempted    bool
	loaded       bool
	loadErr      error
	rerankLoaded bool
}

// NewEmbeddingEngine creates an engine. provider, reranker and cache are
// all optional.
func NewEmbeddingEngine(
	provider driven.EmbeddingService,
	reranker driven.Reranker,
	cache driven.EmbeddingCache,
	cfg EmbeddingEngineConfig,
) *EmbeddingEngine {
	if cfg.Dimension <= 0 {
		cfg.Dimension = DefaultDimension
	}
	return &EmbeddingEngine{
		provider: provider,
		reranker: reranker,
		cache:    cache,
		cfg:      cfg,
	}
}

// Init loads the embedding model and, if configured, the reranker.
// It is idempotent once successful. A reranker that fails to load does
// not fail Init; reranking then keeps the original order.
func (e *EmbeddingEngine) Init(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initLocked(ctx)
}

func (e *EmbeddingEngine) initLocked(ctx context.Context) error {
	if e.loaded {
		return nil
	}
	e.attempted = true

	if e.provider == nil {
		e.loadErr = fmt.Errorf("%w: no embedding provider configured", domain.ErrEmbeddingUnavailable)
		return e.loadErr
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := e.provider.Ping(pingCtx); err != nil {
		e.loadErr = fmt.Errorf("%w: load %s: %w", domain.ErrEmbeddingUnavailable, e.provider.ModelName(), err)
		logger.Warn("embedding model %s unavailable: %v", e.provider.ModelName(), err)
		return e.loadErr
	}
	e.loaded = true
	e.loadErr = nil
	logger.Info("embedding model %s loaded (dimension %d)", e.provider.ModelName(), e.provider.Dimensions())

	if e.reranker != nil {
		rerankCtx, cancelRerank := context.WithTimeout(ctx, pingTimeout)
		defer cancelRerank()
		if err := e.reranker.Ping(rerankCtx); err != nil {
			logger.Warn("rerank model %s unavailable: %v", e.reranker.ModelName(), err)
		} else {
			e.rerankLoaded = true
		}
	}
	return nil
}

// ensureLoaded runs Init once if it was never attempted and reports the
// recorded load error otherwise.
func (e *EmbeddingEngine) ensureLoaded(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return nil
	}
	if e.attempted {
		return e.loadErr
	}
	return e.initLocked(ctx)
}

// Loaded reports whether the embedding model is loaded.
func (e *EmbeddingEngine) Loaded() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loaded
}

// Dimension returns the vector size produced by Embed.
func (e *EmbeddingEngine) Dimension() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loaded {
		return e.provider.Dimensions()
	}
	return e.cfg.Dimension
}

// Embed encodes one text. On failure the Result carries a zero vector.
func (e *EmbeddingEngine) Embed(ctx context.Context, text string) domain.Result[[]float32] {
	r := e.EmbedBatch(ctx, []string{text})
	return domain.Result[[]float32]{Value: r.Value[0], Err: r.Err}
}

// EmbedBatch encodes texts in order. On failure the Result carries one
// zero vector per text.
func (e *EmbeddingEngine) EmbedBatch(ctx context.Context, texts []string) domain.Result[[][]float32] {
	if len(texts) == 0 {
		return domain.Success([][]float32{})
	}
	if err := e.ensureLoaded(ctx); err != nil {
		return e.fallback(len(texts), err)
	}

	dim := e.Dimension()
	model := e.provider.ModelName()
	vectors := make([][]float32, len(texts))
	var missing []int

	for i, t := range texts {
		if e.cache != nil {
			if vec, ok := e.cache.Get(ctx, cacheKey(model, t)); ok && len(vec) == dim {
				metrics.EmbeddingCache.WithLabelValues("hit").Inc()
				vectors[i] = vec
				continue
			}
			metrics.EmbeddingCache.WithLabelValues("miss").Inc()
		}
		missing = append(missing, i)
	}
	if len(missing) == 0 {
		return domain.Success(vectors)
	}

	pending := make([]string, len(missing))
	for j, i := range missing {
		pending[j] = texts[i]
	}

	encoded, err := e.provider.EmbedBatch(ctx, pending)
	if err != nil {
		return e.fallback(len(texts), fmt.Errorf("%w: encode: %w", domain.ErrEmbeddingUnavailable, err))
	}
	if len(encoded) != len(pending) {
		return e.fallback(len(texts), fmt.Errorf("%w: %w: expected %d vectors, got %d",
			domain.ErrEmbeddingUnavailable, domain.ErrLengthMismatch, len(pending), len(encoded)))
	}

	for j, i := range missing {
		vec := encoded[j]
		if len(vec) != dim {
			return e.fallback(len(texts), fmt.Errorf("%w: %w: expected %d, got %d",
				domain.ErrEmbeddingUnavailable, domain.ErrDimensionMismatch, dim, len(vec)))
		}
		vectors[i] = vec
	}

	if e.cache != nil {
		for j, i := range missing {
			if err := e.cache.Set(ctx, cacheKey(model, texts[i]), encoded[j], e.cfg.CacheTTL); err != nil {
				logger.Debug("embedding cache store failed: %v", err)
				break
			}
		}
	}

	return domain.Success(vectors)
}

func (e *EmbeddingEngine) fallback(n int, err error) domain.Result[[][]float32] {
	logger.Warn("embedding degraded to zero vectors for %d text(s): %v", n, err)
	metrics.EmbeddingFallbacks.Inc()
	return domain.Failure(domain.ZeroVectors(n, e.Dimension()), err)
}

// cacheKey identifies a text under a model.
func cacheKey(model, text string) string {
	sum := sha256.Sum256([]byte(model + "\x00" + text))
	return hex.EncodeToString(sum[:])
}

// Rerank orders texts by cross-encoder relevance to query. prior holds
// the scores the texts already have and may be nil. When no reranker is
// available or it fails, the texts keep their order and prior scores.
func (e *EmbeddingEngine) Rerank(ctx context.Context, query string, texts []string, prior []float64) []domain.RankedText {
	ranked := make([]domain.RankedText, len(texts))
	for i, t := range texts {
		ranked[i] = domain.RankedText{Index: i, Text: t}
		if i < len(prior) {
			ranked[i].PriorScore = prior[i]
		}
	}
	if e.reranker == nil || len(texts) == 0 {
		return ranked
	}

	scores, err := e.reranker.Rerank(ctx, query, texts)
	if err == nil && len(scores) != len(texts) {
		err = fmt.Errorf("%w: expected %d scores, got %d", domain.ErrLengthMismatch, len(texts), len(scores))
	}
	if err != nil {
		logger.Warn("rerank failed, keeping original order: %v", err)
		metrics.RerankFallbacks.Inc()
		return ranked
	}

	e.mu.Lock()
	e.rerankLoaded = true
	e.mu.Unlock()

	for i := range ranked {
		s := scores[i]
		ranked[i].RerankScore = &s
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return *ranked[i].RerankScore > *ranked[j].RerankScore
	})
	return ranked
}

// Similarity returns the cosine similarity of two vectors.
func (e *EmbeddingEngine) Similarity(a, b []float32) float64 {
	return domain.CosineSimilarity(a, b)
}

// ModelInfo reports the engine configuration and load state.
func (e *EmbeddingEngine) ModelInfo() domain.ModelInfo {
	e.mu.Lock()
	defer e.mu.Unlock()

	info := domain.ModelInfo{
		Dimension:       e.cfg.Dimension,
		ChunkSize:       e.cfg.ChunkSize,
		ChunkOverlap:    e.cfg.ChunkOverlap,
		EmbeddingLoaded: e.loaded,
		RerankLoaded:    e.rerankLoaded,
	}
	if e.provider != nil {
		info.EmbeddingModel = e.provider.ModelName()
		if e.loaded {
			info.Dimension = e.provider.Dimensions()
		}
	}
	if e.reranker != nil {
		info.RerankModel = e.reranker.ModelName()
	}
	return info
}

// Close releases the provider.
func (e *EmbeddingEngine) Close() error {
	if e.provider == nil {
		return nil
	}
	return e.provider.Close()
}
