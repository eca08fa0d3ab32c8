package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// mockExtractor reads files as text; files containing "CORRUPT" fail.
type mockExtractor struct{}

func (mockExtractor) Register(driven.Normaliser)           {}
func (mockExtractor) Get(string) (driven.Normaliser, bool) { return nil, false }
func (mockExtractor) Allowed(fileType string) bool         { return fileType == "txt" || fileType == "md" }
func (mockExtractor) Extract(_ context.Context, path, _ string) (*driven.NormaliseResult, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrExtractionFailure, err)
	}
	if strings.Contains(string(b), "CORRUPT") {
		return nil, fmt.Errorf("%w: bad file", domain.ErrExtractionFailure)
	}
	return &driven.NormaliseResult{Content: string(b)}, nil
}

// mockRetrieval records calls and returns a fixed report.
type mockRetrieval struct {
	mu       sync.Mutex
	fail     bool
	ingested []int64
	reingest []int64
	deleted  []int64
	query    domain.Result[[]domain.SearchResult]
}

func (m *mockRetrieval) report(id int64, text string) domain.IngestReport {
	if m.fail {
		return domain.IngestReport{DocumentID: id, Err: domain.ErrEmbeddingUnavailable}
	}
	return domain.IngestReport{DocumentID: id, Success: true, VectorCount: len(fixedChunker{}.Chunk(text))}
}

func (m *mockRetrieval) Ingest(_ context.Context, id int64, text string) domain.IngestReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, id)
	return m.report(id, text)
}

func (m *mockRetrieval) Reingest(_ context.Context, id int64, text string) domain.IngestReport {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reingest = append(m.reingest, id)
	return m.report(id, text)
}

func (m *mockRetrieval) Query(context.Context, int64, string, int) domain.Result[[]domain.SearchResult] {
	return m.query
}

func (m *mockRetrieval) DeleteDocument(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)
	return nil
}

func (m *mockRetrieval) Stats(context.Context) (domain.IndexStats, error) { return domain.IndexStats{}, nil }
func (m *mockRetrieval) ModelInfo() domain.ModelInfo                      { return domain.ModelInfo{} }

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o600))
	return p
}

func newDocumentFixture() (*DocumentService, *mockDocumentStore, *mockRetrieval) {
	store := newMockDocumentStore()
	retrieval := &mockRetrieval{}
	return NewDocumentService(store, mockExtractor{}, retrieval), store, retrieval
}

func TestDocumentService_Add(t *testing.T) {
	svc, store, retrieval := newDocumentFixture()
	path := writeFile(t, t.TempDir(), "go_notes.txt", "one|two")

	doc, err := svc.Add(context.Background(), driving.AddDocumentRequest{OwnerID: 1, Path: path})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.Equal(t, "go_notes.txt", doc.Title)
	assert.Equal(t, "txt", doc.FileType)
	assert.Equal(t, "one|two", doc.Content)
	assert.True(t, doc.IsVectorized)
	assert.Equal(t, 2, doc.VectorCount)
	assert.False(t, doc.ProcessedAt.IsZero())
	assert.Equal(t, []int64{doc.ID}, retrieval.reingest)
	require.Len(t, store.reports, 1)
	assert.True(t, store.reports[0].Success)

	stored, err := store.Get(context.Background(), doc.ID)
	require.NoError(t, err)
	assert.Equal(t, *doc, *stored)
}

func TestDocumentService_AddWithTitle(t *testing.T) {
	svc, _, _ := newDocumentFixture()
	path := writeFile(t, t.TempDir(), "a.md", "body")

	doc, err := svc.Add(context.Background(), driving.AddDocumentRequest{OwnerID: 1, Path: path, Title: "Custom"})

	require.NoError(t, err)
	assert.Equal(t, "Custom", doc.Title)
}

func TestDocumentService_AddRejects(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{name: "empty path", path: "", wantErr: domain.ErrInvalidInput},
		{name: "unsupported extension", path: writeFile(t, dir, "x.exe", "MZ"), wantErr: domain.ErrUnsupportedFormat},
		{name: "missing file", path: filepath.Join(dir, "missing.txt"), wantErr: domain.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, store, _ := newDocumentFixture()
			_, err := svc.Add(context.Background(), driving.AddDocumentRequest{OwnerID: 1, Path: tt.path})
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, store.docs)
		})
	}
}

func TestDocumentService_AddExtractionFailure(t *testing.T) {
	svc, store, retrieval := newDocumentFixture()
	path := writeFile(t, t.TempDir(), "bad.txt", "CORRUPT")

	doc, err := svc.Add(context.Background(), driving.AddDocumentRequest{OwnerID: 1, Path: path})

	require.ErrorIs(t, err, domain.ErrExtractionFailure)
	require.NotNil(t, doc)
	assert.Equal(t, domain.StatusFailed, doc.Status)
	assert.Contains(t, doc.ErrorMessage, "bad file")
	assert.Empty(t, retrieval.reingest)

	stored, getErr := store.Get(context.Background(), doc.ID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.StatusFailed, stored.Status)
}

func TestDocumentService_IngestFailureKeepsCompleted(t *testing.T) {
	svc, store, retrieval := newDocumentFixture()
	retrieval.fail = true
	path := writeFile(t, t.TempDir(), "a.txt", "text")

	doc, err := svc.Add(context.Background(), driving.AddDocumentRequest{OwnerID: 1, Path: path})

	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, doc.Status)
	assert.False(t, doc.IsVectorized)
	require.Len(t, store.reports, 1)
	assert.False(t, store.reports[0].Success)
}

func TestDocumentService_AddSamePathReprocesses(t *testing.T) {
	svc, store, retrieval := newDocumentFixture()
	dir := t.TempDir()
	path := writeFile(t, dir, "a.txt", "one")

	first, err := svc.Add(context.Background(), driving.AddDocumentRequest{OwnerID: 1, Path: path})
	require.NoError(t, err)

	writeFile(t, dir, "a.txt", "one|two|three")
	second, err := svc.Add(context.Background(), driving.AddDocumentRequest{OwnerID: 1, Path: path})
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.docs, 1)
	assert.Equal(t, 3, second.VectorCount)
	assert.Equal(t, []int64{first.ID, first.ID}, retrieval.reingest)
}

func TestDocumentService_Reindex(t *testing.T) {
	svc, _, retrieval := newDocumentFixture()
	path := writeFile(t, t.TempDir(), "a.txt", "x|y")
	doc, err := svc.Add(context.Background(), driving.AddDocumentRequest{OwnerID: 1, Path: path})
	require.NoError(t, err)

	report, err := svc.Reindex(context.Background(), 1, doc.ID)
	require.NoError(t, err)
	assert.True(t, report.Success)
	assert.Equal(t, []int64{doc.ID, doc.ID}, retrieval.reingest)

	_, err = svc.Reindex(context.Background(), 2, doc.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestDocumentService_FailedReindexThenReaddKeepsOneChunkSet(t *testing.T) {
	ctx := context.Background()
	f := newRetrievalFixture(t, DefaultRetrievalConfig(), nil)
	svc := NewDocumentService(f.docs, mockExtractor{}, f.svc)
	path := writeFile(t, t.TempDir(), "a.txt", "aaa|bbb")

	doc, err := svc.Add(ctx, driving.AddDocumentRequest{OwnerID: 1, Path: path})
	require.NoError(t, err)
	require.True(t, doc.IsVectorized)
	require.Equal(t, 2, f.index.count(doc.ID))

	f.provider.embedErr = fmt.Errorf("down")
	report, err := svc.Reindex(ctx, 1, doc.ID)
	require.NoError(t, err)
	assert.False(t, report.Success)

	stored, err := f.docs.Get(ctx, doc.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsVectorized)
	assert.Zero(t, stored.VectorCount)
	assert.Zero(t, f.index.count(doc.ID))

	f.provider.embedErr = nil
	readded, err := svc.Add(ctx, driving.AddDocumentRequest{OwnerID: 1, Path: path})
	require.NoError(t, err)
	assert.Equal(t, doc.ID, readded.ID)
	assert.True(t, readded.IsVectorized)
	assert.Equal(t, 2, readded.VectorCount)
	require.Equal(t, 2, f.index.count(doc.ID))

	seen := map[int]bool{}
	for _, r := range f.index.records {
		if r.DocumentID != doc.ID {
			continue
		}
		assert.False(t, seen[r.ChunkID], "duplicate chunk %d", r.ChunkID)
		seen[r.ChunkID] = true
	}
}

func TestDocumentService_ReindexRequiresCompleted(t *testing.T) {
	svc, store, _ := newDocumentFixture()
	doc := &domain.Document{OwnerID: 1, Status: domain.StatusFailed}
	require.NoError(t, store.Save(context.Background(), doc))

	_, err := svc.Reindex(context.Background(), 1, doc.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestDocumentService_ListAndSummaries(t *testing.T) {
	svc, store, _ := newDocumentFixture()
	ctx := context.Background()
	for _, d := range []*domain.Document{
		{OwnerID: 1, Title: "done", Status: domain.StatusCompleted},
		{OwnerID: 1, Title: "broken", Status: domain.StatusFailed},
		{OwnerID: 2, Title: "other", Status: domain.StatusCompleted},
	} {
		require.NoError(t, store.Save(ctx, d))
	}

	docs, err := svc.List(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, docs, 2)

	summaries, err := svc.Summaries(ctx, 1)
	require.NoError(t, err)
	require.Len(t, summaries, 1)
	assert.Equal(t, "done", summaries[0].Title)
}

func TestDocumentService_Delete(t *testing.T) {
	svc, store, retrieval := newDocumentFixture()
	ctx := context.Background()
	doc := &domain.Document{OwnerID: 1, Status: domain.StatusCompleted}
	require.NoError(t, store.Save(ctx, doc))

	err := svc.Delete(ctx, 2, doc.ID)
	require.ErrorIs(t, err, domain.ErrForbidden)
	assert.Empty(t, retrieval.deleted)

	require.NoError(t, svc.Delete(ctx, 1, doc.ID))
	assert.Equal(t, []int64{doc.ID}, retrieval.deleted)

	_, err = svc.Get(ctx, 1, doc.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestDocumentService_AddBatch(t *testing.T) {
	svc, _, _ := newDocumentFixture()
	svc.SetConcurrency(2)
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "a.txt", "a"),
		writeFile(t, dir, "b.exe", "b"),
		writeFile(t, dir, "c.md", "c"),
		writeFile(t, dir, "d.txt", "CORRUPT"),
	}

	docs, failures := svc.AddBatch(context.Background(), 1, paths)

	require.Len(t, docs, 2)
	assert.Equal(t, "a.txt", docs[0].Filename)
	assert.Equal(t, "c.md", docs[1].Filename)
	require.Len(t, failures, 2)
	assert.ErrorIs(t, failures[paths[1]], domain.ErrUnsupportedFormat)
	assert.ErrorIs(t, failures[paths[3]], domain.ErrExtractionFailure)
}
