package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/kbassist/internal/core/domain"
)

// mockEmbeddingService embeds text as a deterministic vector: component
// i counts occurrences of the letter 'a'+i.
type mockEmbeddingService struct {
	mu       sync.Mutex
	dims     int
	pingErr  error
	embedErr error
	batches  [][]string
	wrongDim bool
}

func newMockEmbedding(dims int) *mockEmbeddingService {
	return &mockEmbeddingService{dims: dims}
}

func (m *mockEmbeddingService) vector(text string) []float32 {
	v := make([]float32, m.dims)
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && int(r-'a') < m.dims {
			v[r-'a']++
		}
	}
	if m.wrongDim {
		return v[:m.dims-1]
	}
	return v
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockEmbeddingService) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batches = append(m.batches, append([]string(nil), texts...))
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = m.vector(t)
	}
	return out, nil
}

func (m *mockEmbeddingService) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

func (m *mockEmbeddingService) Dimensions() int            { return m.dims }
func (m *mockEmbeddingService) ModelName() string          { return "mock-embed" }
func (m *mockEmbeddingService) Ping(context.Context) error { return m.pingErr }
func (m *mockEmbeddingService) Close() error               { return nil }

// mockReranker scores texts by a fixed table.
type mockReranker struct {
	scores  map[string]float64
	err     error
	pingErr error
}

func (m *mockReranker) Rerank(_ context.Context, _ string, texts []string) ([]float64, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]float64, len(texts))
	for i, t := range texts {
		out[i] = m.scores[t]
	}
	return out, nil
}

func (m *mockReranker) ModelName() string          { return "mock-rerank" }
func (m *mockReranker) Ping(context.Context) error { return m.pingErr }

type mockCache struct {
	mu      sync.Mutex
	entries map[string][]float32
}

func newMockCache() *mockCache {
	return &mockCache{entries: make(map[string][]float32)}
}

func (m *mockCache) Get(_ context.Context, key string) ([]float32, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.entries[key]
	return v, ok
}

func (m *mockCache) Set(_ context.Context, key string, vec []float32, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = vec
	return nil
}

func (m *mockCache) Len(context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// mockVectorIndex keeps records in memory.
type mockVectorIndex struct {
	mu         sync.Mutex
	records    []domain.VectorRecord
	insertErr  error
	searchErr  error
	deleteErr  error
	ensureErr  error
	deletes    int
	lastLimit  int
	dimensions []int
}

func (m *mockVectorIndex) Connect(context.Context) error { return nil }

func (m *mockVectorIndex) EnsureCollection(_ context.Context, dim int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dimensions = append(m.dimensions, dim)
	return m.ensureErr
}

func (m *mockVectorIndex) Insert(_ context.Context, docID int64, chunks []string, embeddings [][]float32, metadata []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return m.insertErr
	}
	if len(chunks) != len(embeddings) || len(chunks) != len(metadata) {
		return domain.ErrLengthMismatch
	}
	for i := range chunks {
		m.records = append(m.records, domain.VectorRecord{
			DocumentID: docID,
			ChunkID:    i,
			Content:    chunks[i],
			Embedding:  embeddings[i],
			Metadata:   metadata[i],
		})
	}
	return nil
}

func (m *mockVectorIndex) Search(_ context.Context, query []float32, limit int, threshold float64) ([]domain.VectorHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastLimit = limit
	if m.searchErr != nil {
		return nil, m.searchErr
	}
	var hits []domain.VectorHit
	for _, r := range m.records {
		s := domain.CosineSimilarity(query, r.Embedding)
		if s >= threshold {
			hits = append(hits, domain.VectorHit{VectorRecord: r, Score: s})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *mockVectorIndex) DeleteByDocument(_ context.Context, docID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deletes++
	if m.deleteErr != nil {
		return m.deleteErr
	}
	kept := m.records[:0]
	for _, r := range m.records {
		if r.DocumentID != docID {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *mockVectorIndex) count(docID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.DocumentID == docID {
			n++
		}
	}
	return n
}

func (m *mockVectorIndex) Stats(context.Context) (domain.IndexStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return domain.IndexStats{Backend: "mock", TotalVectors: int64(len(m.records))}, nil
}

func (m *mockVectorIndex) Close() error { return nil }

// mockDocumentStore is an in-memory DocumentStore.
type mockDocumentStore struct {
	mu      sync.Mutex
	docs    map[int64]domain.Document
	nextID  int64
	reports []domain.IngestReport
	saveErr error
}

func newMockDocumentStore() *mockDocumentStore {
	return &mockDocumentStore{docs: make(map[int64]domain.Document)}
}

func (m *mockDocumentStore) Save(_ context.Context, doc *domain.Document) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	if doc.ID == 0 {
		m.nextID++
		doc.ID = m.nextID
	}
	m.docs[doc.ID] = *doc
	return nil
}

func (m *mockDocumentStore) Get(_ context.Context, id int64) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &d, nil
}

func (m *mockDocumentStore) FindByPath(_ context.Context, owner int64, path string) (*domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.docs {
		if d.OwnerID == owner && d.Path == path {
			return &d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDocumentStore) List(_ context.Context, owner int64) ([]domain.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Document
	for _, d := range m.docs {
		if d.OwnerID == owner {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *mockDocumentStore) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	return nil
}

func (m *mockDocumentStore) RecordIngestion(_ context.Context, r domain.IngestReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports = append(m.reports, r)
	return nil
}

// mockCompletionAPI replays scripted outcomes, one per call.
type mockCompletionAPI struct {
	mu       sync.Mutex
	complete []domain.Result[string]
	streams  []mockStream
	calls    int
	streamed int
}

// mockStream emits deltas and then returns err.
type mockStream struct {
	deltas []string
	err    error
}

var errUpstream = errors.New("upstream returned 500")

func (m *mockCompletionAPI) Complete(_ context.Context, _ string) domain.Result[string] {
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.calls
	m.calls++
	if i < len(m.complete) {
		return m.complete[i]
	}
	return domain.Failure("", errUpstream)
}

func (m *mockCompletionAPI) Stream(_ context.Context, _ string, emit func(string) error) error {
	m.mu.Lock()
	i := m.streamed
	m.streamed++
	m.mu.Unlock()

	if i >= len(m.streams) {
		return errUpstream
	}
	s := m.streams[i]
	for _, d := range s.deltas {
		if err := emit(d); err != nil {
			return err
		}
	}
	return s.err
}

func (m *mockCompletionAPI) ModelName() string { return "mock-llm" }

type mockPromptStore struct {
	prompts map[string]string
}

func (m *mockPromptStore) Load(name string) (string, error) {
	p, ok := m.prompts[name]
	if !ok {
		return "", domain.ErrNotFound
	}
	return p, nil
}

func (m *mockPromptStore) Reload() {}

// fixedChunker splits on "|".
type fixedChunker struct{}

func (fixedChunker) Chunk(text string) []string {
	var out []string
	for _, p := range strings.Split(text, "|") {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return out
}

func (c fixedChunker) Process(_ context.Context, docID int64, text string) []domain.Chunk {
	parts := c.Chunk(text)
	out := make([]domain.Chunk, len(parts))
	for i, p := range parts {
		out[i] = domain.Chunk{DocumentID: docID, Index: i, Text: p}
	}
	return out
}

func (fixedChunker) Size() int    { return 512 }
func (fixedChunker) Overlap() int { return 50 }
