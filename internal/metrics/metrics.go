// Package metrics exposes Prometheus counters for the RAG pipeline on a
// private registry.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "kbassist"

// Registry holds every kbassist collector plus Go runtime metrics.
var Registry = prometheus.NewRegistry()

var (
	// EmbeddingFallbacks counts encode calls answered with zero vectors.
	EmbeddingFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_fallbacks_total",
		Help:      "Embedding requests answered with zero vectors.",
	})

	// EmbeddingCache counts cache lookups by result (hit, miss).
	EmbeddingCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "embedding_cache_lookups_total",
		Help:      "Embedding cache lookups by result.",
	}, []string{"result"})

	// RerankFallbacks counts rerank calls that kept the original order.
	RerankFallbacks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rerank_fallbacks_total",
		Help:      "Rerank requests that kept the original order.",
	})

	// Ingestions counts ingestion reports by outcome (success, failure).
	Ingestions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ingestions_total",
		Help:      "Document ingestions by outcome.",
	}, []string{"outcome"})

	// Queries counts retrieval queries by outcome (success, degraded).
	Queries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "retrieval_queries_total",
		Help:      "Retrieval queries by outcome.",
	}, []string{"outcome"})

	// GenerationAttempts counts upstream completion attempts by mode
	// (blocking, stream) and outcome (success, failure).
	GenerationAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_attempts_total",
		Help:      "Completion API attempts by mode and outcome.",
	}, []string{"mode", "outcome"})

	// GenerationFallbacks counts replies served from canned text.
	GenerationFallbacks = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "generation_fallbacks_total",
		Help:      "Replies served from canned fallback text.",
	}, []string{"mode"})
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		EmbeddingFallbacks,
		EmbeddingCache,
		RerankFallbacks,
		Ingestions,
		Queries,
		GenerationAttempts,
		GenerationFallbacks,
	)
}

// Handler serves the registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
