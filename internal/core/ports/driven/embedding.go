package driven

import (
	"context"
	"time"
)

// EmbeddingService generates vector embeddings from text.
// This is an optional service - when nil, the embedding engine returns
// zero vectors and retrieval finds nothing.
//
// Note: This is separate from VectorIndex which stores and searches vectors.
// EmbeddingService generates vectors; VectorIndex stores them.
//
// Implementations may include:
//   - OpenAI-compatible servers (text-embedding-3-small, all-MiniLM-L6-v2)
//   - Ollama (nomic-embed-text, all-minilm)
//   - A local feature-hashing embedder
type EmbeddingService interface {
	// Embed generates a vector embedding for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts efficiently.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the embedding vector size (e.g., 384, 1536).
	// This must match the vector index collection.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// Reranker scores candidate texts against a query with a cross-encoder.
// This is an optional service - when nil, candidates keep their order.
type Reranker interface {
	// Rerank returns one relevance score per text, in input order.
	Rerank(ctx context.Context, query string, texts []string) ([]float64, error)

	// ModelName returns the name of the rerank model being used.
	ModelName() string

	// Ping validates the service is reachable.
	Ping(ctx context.Context) error
}

// EmbeddingCache stores computed embeddings keyed by model and text.
// This is an optional service - when nil, nothing is cached.
type EmbeddingCache interface {
	// Get returns the cached vector for key.
	Get(ctx context.Context, key string) ([]float32, bool)

	// Set stores a vector. A ttl of zero means no expiry.
	Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error

	// Len returns the number of cached entries, or -1 if unknown.
	Len(ctx context.Context) int
}
