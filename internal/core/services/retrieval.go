package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
	"github.com/custodia-labs/kbassist/internal/logger"
	"github.com/custodia-labs/kbassist/internal/metrics"
)

// Verify interface compliance.
var _ driving.RetrievalService = (*RetrievalService)(nil)

// Retrieval defaults.
const (
	DefaultQueryLimit     = 5
	DefaultOverFetch      = 2
	DefaultExcerptLength  = 500
	DefaultScoreThreshold = 0.7
)

// RetrievalConfig tunes ingestion and query behaviour.
type RetrievalConfig struct {
	// OverFetch multiplies the query limit for the vector search.
	OverFetch int

	// ScoreThreshold is the minimum cosine score a chunk must reach.
	ScoreThreshold float64

	// ExcerptLength clamps the joined text of a result.
	ExcerptLength int

	// Rerank replaces vector scores with cross-encoder scores.
	Rerank bool
}

// DefaultRetrievalConfig returns the default retrieval settings.
func DefaultRetrievalConfig() RetrievalConfig {
	return RetrievalConfig{
		OverFetch:      DefaultOverFetch,
		ScoreThreshold: DefaultScoreThreshold,
		ExcerptLength:  DefaultExcerptLength,
	}
}

// RetrievalService ingests document text into the vector index and
// answers similarity queries grouped by document.
type RetrievalService struct {
	engine  *EmbeddingEngine
	index   driven.VectorIndex
	docs    driven.DocumentStore
	chunker driven.Chunker
	cfg     RetrievalConfig

	locks  *keyedMutex
	tracer trace.Tracer
}

// NewRetrievalService creates a retrieval service.
func NewRetrievalService(
	engine *EmbeddingEngine,
	index driven.VectorIndex,
	docs driven.DocumentStore,
	chunker driven.Chunker,
	cfg RetrievalConfig,
) *RetrievalService {
	if cfg.OverFetch <= 0 {
		cfg.OverFetch = DefaultOverFetch
	}
	if cfg.ExcerptLength <= 0 {
		cfg.ExcerptLength = DefaultExcerptLength
	}
	if cfg.ScoreThreshold < 0 {
		cfg.ScoreThreshold = 0
	}
	return &RetrievalService{
		engine:  engine,
		index:   index,
		docs:    docs,
		chunker: chunker,
		cfg:     cfg,
		locks:   newKeyedMutex(),
		tracer:  otel.Tracer("kbassist.retrieval"),
	}
}

// Ingest chunks, embeds and indexes text for a document.
func (s *RetrievalService) Ingest(ctx context.Context, documentID int64, text string) domain.IngestReport {
	ctx, span := s.tracer.Start(ctx, "kbassist.retrieval.ingest", trace.WithAttributes(
		attribute.Int64("document_id", documentID),
	))
	defer span.End()

	unlock := s.locks.Lock(documentID)
	defer unlock()

	chunks, embeddings, err := s.prepare(ctx, text)
	if err == nil {
		err = s.insert(ctx, documentID, chunks, embeddings)
	}
	return s.report(span, documentID, len(chunks), err)
}

// Reingest replaces the vectors of a document. New vectors are computed
// before the old ones are deleted. Any failure leaves the document with no
// vectors, so a stale set never outlives a failed report.
func (s *RetrievalService) Reingest(ctx context.Context, documentID int64, text string) domain.IngestReport {
	ctx, span := s.tracer.Start(ctx, "kbassist.retrieval.reingest", trace.WithAttributes(
		attribute.Int64("document_id", documentID),
	))
	defer span.End()

	unlock := s.locks.Lock(documentID)
	defer unlock()

	chunks, embeddings, err := s.prepare(ctx, text)
	if err != nil {
		s.cleanup(ctx, documentID)
		return s.report(span, documentID, 0, err)
	}
	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		return s.report(span, documentID, 0, err)
	}
	if err := s.insert(ctx, documentID, chunks, embeddings); err != nil {
		s.cleanup(ctx, documentID)
		return s.report(span, documentID, 0, err)
	}
	return s.report(span, documentID, len(chunks), nil)
}

func (s *RetrievalService) cleanup(ctx context.Context, documentID int64) {
	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		logger.With("document_id", documentID).Warn("cleanup after failed reingest", "err", err)
	}
}

func (s *RetrievalService) prepare(ctx context.Context, text string) ([]string, [][]float32, error) {
	if err := s.engine.ensureLoaded(ctx); err != nil {
		return nil, nil, err
	}
	if err := s.index.EnsureCollection(ctx, s.engine.Dimension()); err != nil {
		return nil, nil, err
	}

	chunks := s.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("%w: document has no text to index", domain.ErrInvalidInput)
	}

	embedded := s.engine.EmbedBatch(ctx, chunks)
	if !embedded.OK() {
		return nil, nil, embedded.Err
	}
	return chunks, embedded.Value, nil
}

func (s *RetrievalService) insert(ctx context.Context, documentID int64, chunks []string, embeddings [][]float32) error {
	meta := make([]string, len(chunks))
	for i := range chunks {
		meta[i] = domain.ChunkMetadata(documentID, i)
	}
	return s.index.Insert(ctx, documentID, chunks, embeddings, meta)
}

func (s *RetrievalService) report(span trace.Span, documentID int64, count int, err error) domain.IngestReport {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.Ingestions.WithLabelValues("failure").Inc()
		logger.With("document_id", documentID).Warn("ingest failed", "err", err)
		return domain.IngestReport{DocumentID: documentID, Err: err}
	}
	span.SetAttributes(attribute.Int("vectors", count))
	metrics.Ingestions.WithLabelValues("success").Inc()
	logger.With("document_id", documentID).Debug("ingested", "chunks", count)
	return domain.IngestReport{DocumentID: documentID, Success: true, VectorCount: count}
}

// Query returns the documents owned by principal that best match text.
// A degraded embedding or an index failure yields a Failure with no
// results.
func (s *RetrievalService) Query(ctx context.Context, principal int64, text string, limit int) domain.Result[[]domain.SearchResult] {
	ctx, span := s.tracer.Start(ctx, "kbassist.retrieval.query", trace.WithAttributes(
		attribute.Int64("principal", principal),
		attribute.Int("limit", limit),
	))
	defer span.End()

	if limit <= 0 {
		limit = DefaultQueryLimit
	}

	results, err := s.query(ctx, principal, text, limit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.Queries.WithLabelValues("degraded").Inc()
		logger.Warn("query degraded: %v", err)
		return domain.Failure([]domain.SearchResult{}, err)
	}
	span.SetAttributes(attribute.Int("results", len(results)))
	metrics.Queries.WithLabelValues("success").Inc()
	return domain.Success(results)
}

func (s *RetrievalService) query(ctx context.Context, principal int64, text string, limit int) ([]domain.SearchResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty query", domain.ErrInvalidInput)
	}

	vec := s.engine.Embed(ctx, text)
	if !vec.OK() {
		return nil, vec.Err
	}

	hits, err := s.index.Search(ctx, vec.Value, limit*s.cfg.OverFetch, s.cfg.ScoreThreshold)
	if err != nil {
		return nil, err
	}
	if len(hits) == 0 {
		return []domain.SearchResult{}, nil
	}

	scores := make([]float64, len(hits))
	for i, h := range hits {
		scores[i] = h.Score
	}
	if s.cfg.Rerank {
		texts := make([]string, len(hits))
		for i, h := range hits {
			texts[i] = h.Content
		}
		for _, r := range s.engine.Rerank(ctx, text, texts, scores) {
			scores[r.Index] = r.Score()
		}
	}

	results := s.group(ctx, principal, hits, scores)
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

type hitGroup struct {
	documentID int64
	texts      []string
	metadata   []string
	total      float64
}

// group collects hits per document in first-seen order and drops
// documents the principal cannot see.
func (s *RetrievalService) group(ctx context.Context, principal int64, hits []domain.VectorHit, scores []float64) []domain.SearchResult {
	var order []*hitGroup
	byDoc := make(map[int64]*hitGroup)

	for i, h := range hits {
		g, ok := byDoc[h.DocumentID]
		if !ok {
			g = &hitGroup{documentID: h.DocumentID}
			byDoc[h.DocumentID] = g
			order = append(order, g)
		}
		g.texts = append(g.texts, h.Content)
		g.metadata = append(g.metadata, h.Metadata)
		g.total += scores[i]
	}

	results := make([]domain.SearchResult, 0, len(order))
	for _, g := range order {
		doc, err := s.docs.Get(ctx, g.documentID)
		if err != nil {
			if !errors.Is(err, domain.ErrNotFound) {
				logger.Warn("lookup document %d: %v", g.documentID, err)
			}
			continue
		}
		if doc.OwnerID != principal {
			continue
		}
		results = append(results, domain.SearchResult{
			DocumentID: g.documentID,
			Title:      doc.Title,
			Content:    truncateRunes(strings.Join(g.texts, "\n"), s.cfg.ExcerptLength, "..."),
			Score:      g.total / float64(len(g.texts)),
			Metadata:   g.metadata,
			ChunkCount: len(g.texts),
		})
	}
	return results
}

// DeleteDocument removes every vector of a document. Deleting a document
// with no vectors succeeds.
func (s *RetrievalService) DeleteDocument(ctx context.Context, documentID int64) error {
	ctx, span := s.tracer.Start(ctx, "kbassist.retrieval.delete", trace.WithAttributes(
		attribute.Int64("document_id", documentID),
	))
	defer span.End()

	unlock := s.locks.Lock(documentID)
	defer unlock()

	if err := s.index.DeleteByDocument(ctx, documentID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// Stats reports index statistics.
func (s *RetrievalService) Stats(ctx context.Context) (domain.IndexStats, error) {
	return s.index.Stats(ctx)
}

// ModelInfo reports the embedding configuration.
func (s *RetrievalService) ModelInfo() domain.ModelInfo {
	return s.engine.ModelInfo()
}
