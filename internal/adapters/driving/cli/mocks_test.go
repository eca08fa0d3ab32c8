package cli

import (
	"context"
	"errors"
	"sort"

	"github.com/custodia-labs/kbassist/internal/connectors/filesystem"
	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

var errMock = errors.New("mock failure")

type mockChatService struct {
	reply    *domain.ChatResponse
	deltas   []string
	err      error
	requests []domain.ChatRequest
}

func (m *mockChatService) Reply(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	return m.reply, nil
}

func (m *mockChatService) Stream(
	_ context.Context, req domain.ChatRequest, emit func(string) error,
) (*domain.ChatResponse, error) {
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	for _, d := range m.deltas {
		if err := emit(d); err != nil {
			return nil, err
		}
	}
	return m.reply, nil
}

type mockRetrievalService struct {
	results  domain.Result[[]domain.SearchResult]
	stats    domain.IndexStats
	statsErr error
	info     domain.ModelInfo

	queries []string
	limits  []int
}

func (m *mockRetrievalService) Ingest(_ context.Context, id int64, _ string) domain.IngestReport {
	return domain.IngestReport{DocumentID: id, Success: true}
}

func (m *mockRetrievalService) Reingest(_ context.Context, id int64, _ string) domain.IngestReport {
	return domain.IngestReport{DocumentID: id, Success: true}
}

func (m *mockRetrievalService) Query(
	_ context.Context, _ int64, text string, limit int,
) domain.Result[[]domain.SearchResult] {
	m.queries = append(m.queries, text)
	m.limits = append(m.limits, limit)
	return m.results
}

func (m *mockRetrievalService) DeleteDocument(context.Context, int64) error { return nil }

func (m *mockRetrievalService) Stats(context.Context) (domain.IndexStats, error) {
	return m.stats, m.statsErr
}

func (m *mockRetrievalService) ModelInfo() domain.ModelInfo { return m.info }

type mockDocumentService struct {
	docs      map[int64]*domain.Document
	addErr    error
	failures  map[string]error
	reindex   domain.IngestReport
	deleteErr error

	added   []string
	deleted []int64
	nextID  int64
}

func newMockDocumentService(docs ...domain.Document) *mockDocumentService {
	m := &mockDocumentService{docs: make(map[int64]*domain.Document), nextID: 100}
	for i := range docs {
		d := docs[i]
		m.docs[d.ID] = &d
	}
	return m
}

func (m *mockDocumentService) Add(_ context.Context, req driving.AddDocumentRequest) (*domain.Document, error) {
	if m.addErr != nil {
		return nil, m.addErr
	}
	m.added = append(m.added, req.Path)
	m.nextID++
	title := req.Title
	if title == "" {
		title = filesystem.FileType(req.Path) + " file"
	}
	doc := &domain.Document{
		ID:          m.nextID,
		OwnerID:     req.OwnerID,
		Title:       title,
		Path:        req.Path,
		Status:      domain.StatusCompleted,
		VectorCount: 3,
	}
	m.docs[doc.ID] = doc
	return doc, nil
}

func (m *mockDocumentService) AddBatch(
	ctx context.Context, ownerID int64, paths []string,
) ([]domain.Document, map[string]error) {
	var docs []domain.Document
	failures := make(map[string]error)
	for _, p := range paths {
		if err, ok := m.failures[p]; ok {
			failures[p] = err
			continue
		}
		doc, err := m.Add(ctx, driving.AddDocumentRequest{OwnerID: ownerID, Path: p})
		if err != nil {
			failures[p] = err
			continue
		}
		docs = append(docs, *doc)
	}
	return docs, failures
}

func (m *mockDocumentService) Process(_ context.Context, id int64) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentService) Reindex(_ context.Context, _, id int64) (domain.IngestReport, error) {
	if _, ok := m.docs[id]; !ok {
		return domain.IngestReport{}, domain.ErrNotFound
	}
	return m.reindex, nil
}

func (m *mockDocumentService) Get(_ context.Context, _, id int64) (*domain.Document, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return doc, nil
}

func (m *mockDocumentService) List(context.Context, int64) ([]domain.Document, error) {
	ids := make([]int64, 0, len(m.docs))
	for id := range m.docs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, *m.docs[id])
	}
	return out, nil
}

func (m *mockDocumentService) Summaries(ctx context.Context, owner int64) ([]domain.DocumentSummary, error) {
	docs, _ := m.List(ctx, owner)
	out := make([]domain.DocumentSummary, len(docs))
	for i := range docs {
		out[i] = docs[i].Summary()
	}
	return out, nil
}

func (m *mockDocumentService) Delete(_ context.Context, _, id int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	if _, ok := m.docs[id]; !ok {
		return domain.ErrNotFound
	}
	delete(m.docs, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockConfigStore struct {
	data map[string]any
	path string
}

func newMockConfigStore() *mockConfigStore {
	return &mockConfigStore{data: make(map[string]any), path: "/tmp/kbassist/config.toml"}
}

func (m *mockConfigStore) Get(key string) (any, bool) {
	v, ok := m.data[key]
	return v, ok
}

func (m *mockConfigStore) GetString(key string) string {
	s, _ := m.data[key].(string)
	return s
}

func (m *mockConfigStore) GetInt(key string) int {
	i, _ := m.data[key].(int64)
	return int(i)
}

func (m *mockConfigStore) GetBool(key string) bool {
	b, _ := m.data[key].(bool)
	return b
}

func (m *mockConfigStore) GetStringSlice(string) []string { return nil }

func (m *mockConfigStore) Set(key string, value any) error {
	m.data[key] = value
	return nil
}

func (m *mockConfigStore) Unset(key string) error {
	delete(m.data, key)
	return nil
}

func (m *mockConfigStore) Keys() []string { return sortedKeys(m.data) }

func (m *mockConfigStore) Save() error { return nil }

func (m *mockConfigStore) Load() error { return nil }

func (m *mockConfigStore) Path() string { return m.path }

type mockHealthChecker struct {
	results map[string]error
}

func (m *mockHealthChecker) Ping(context.Context) map[string]error { return m.results }

// testServices holds the mocks installed by setupTestServices.
type testServices struct {
	chat      *mockChatService
	retrieval *mockRetrievalService
	documents *mockDocumentService
	config    *mockConfigStore
	health    *mockHealthChecker
}

// setupTestServices installs mocks and resets flag state. The returned
// function restores an empty service set.
func setupTestServices() (*testServices, func()) {
	ts := &testServices{
		chat: &mockChatService{
			reply:  &domain.ChatResponse{Message: "Go is a language."},
			deltas: []string{"Go is ", "a language."},
		},
		retrieval: &mockRetrievalService{
			results: domain.Success([]domain.SearchResult{
				{DocumentID: 1, Title: "Go Notes", Content: "Go is a language", Score: 0.91, ChunkCount: 2},
			}),
			stats: domain.IndexStats{Backend: "memory", Collection: "documents", Dimension: 384, TotalVectors: 7},
			info: domain.ModelInfo{
				EmbeddingModel: "hashing", Dimension: 384, ChunkSize: 500, ChunkOverlap: 50, EmbeddingLoaded: true,
			},
		},
		documents: newMockDocumentService(
			domain.Document{ID: 1, OwnerID: 1, Title: "Go Notes", Path: "/docs/go.md", FileType: "md",
				Content: "Go is a language", Status: domain.StatusCompleted, IsVectorized: true, VectorCount: 2},
			domain.Document{ID: 2, OwnerID: 1, Title: "Broken", Path: "/docs/broken.pdf", FileType: "pdf",
				Status: domain.StatusFailed, ErrorMessage: "no text"},
		),
		config: newMockConfigStore(),
		health: &mockHealthChecker{results: map[string]error{"embedding": nil, "vector": errMock}},
	}

	SetServices(&Services{
		Chat:      ts.chat,
		Retrieval: ts.retrieval,
		Documents: ts.documents,
		Config:    ts.config,
		Health:    ts.health,
		Accept:    func(ft string) bool { return ft == "txt" || ft == "md" },
	})
	resetFlags()

	return ts, func() {
		SetServices(nil)
		resetFlags()
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}
}

func resetFlags() {
	ownerID = 1
	searchLimit = 10
	searchJSON = false
	askStream = true
	askDocs = nil
	askNoDocs = false
	askSources = true
	showContent = false
	addTitle = ""
	statsPing = false
	watchOnce = false
	watchDebounce = filesystem.DefaultDebounce
}
