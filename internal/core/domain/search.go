package domain

import "fmt"

const (
	// MaxRecordContent is the maximum number of characters of chunk text
	// stored per vector record.
	MaxRecordContent = 2000

	// MaxRecordMetadata is the maximum number of characters of metadata
	// stored per vector record.
	MaxRecordMetadata = 1000
)

// VectorRecord is one stored chunk in the vector index.
type VectorRecord struct {
	// ID is assigned by the backend.
	ID string

	DocumentID int64
	ChunkID    int

	// Content is the chunk text, clamped to MaxRecordContent characters.
	Content string

	Embedding []float32

	// Metadata is an opaque tag, clamped to MaxRecordMetadata characters.
	Metadata string
}

// VectorHit is a record returned from a similarity search.
type VectorHit struct {
	VectorRecord

	// Score is the cosine similarity to the query, in [-1, 1].
	Score float64
}

// ChunkMetadata returns the tag stored with a chunk: doc_{id}_chunk_{i}.
func ChunkMetadata(documentID int64, index int) string {
	return fmt.Sprintf("doc_%d_chunk_%d", documentID, index)
}

// SearchResult is a per-document retrieval hit.
type SearchResult struct {
	DocumentID int64

	// Title is the document title.
	Title string

	// Content is an excerpt built from the matching chunks.
	Content string

	// Score is the mean similarity of the matching chunks.
	Score float64

	// Metadata holds the chunk tags that contributed to this result.
	Metadata []string

	// ChunkCount is the number of matching chunks.
	ChunkCount int
}

// Passage is a titled block of text handed to the context assembler.
type Passage struct {
	Title   string
	Content string
}

// Passages converts search results to assembler input.
func Passages(results []SearchResult) []Passage {
	out := make([]Passage, 0, len(results))
	for _, r := range results {
		out = append(out, Passage{Title: r.Title, Content: r.Content})
	}
	return out
}

// RankedText is a candidate text after reranking.
type RankedText struct {
	// Index is the position in the original input.
	Index int

	Text string

	// PriorScore is the score the candidate had before reranking.
	PriorScore float64

	// RerankScore is nil when reranking was not applied.
	RerankScore *float64
}

// Score returns the rerank score when present, otherwise the prior score.
func (r RankedText) Score() float64 {
	if r.RerankScore != nil {
		return *r.RerankScore
	}
	return r.PriorScore
}

// IngestReport describes the outcome of indexing one document.
type IngestReport struct {
	DocumentID  int64
	Success     bool
	VectorCount int
	Err         error
}

// IndexStats summarises the contents of a vector index.
type IndexStats struct {
	Backend      string
	Collection   string
	Dimension    int
	TotalVectors int64
}

// ModelInfo reports the configuration and state of the embedding engine.
type ModelInfo struct {
	EmbeddingModel  string
	RerankModel     string
	Dimension       int
	ChunkSize       int
	ChunkOverlap    int
	EmbeddingLoaded bool
	RerankLoaded    bool
}
