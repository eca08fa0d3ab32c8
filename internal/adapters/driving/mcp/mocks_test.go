package mcp

import (
	"context"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
)

// mockRetrievalService is a mock implementation of driving.RetrievalService.
type mockRetrievalService struct {
	result     domain.Result[[]domain.SearchResult]
	lastOwner  int64
	lastQuery  string
	lastLimit  int
	queryCalls int
}

func (m *mockRetrievalService) Ingest(_ context.Context, id int64, _ string) domain.IngestReport {
	return domain.IngestReport{DocumentID: id, Success: true}
}

func (m *mockRetrievalService) Reingest(_ context.Context, id int64, _ string) domain.IngestReport {
	return domain.IngestReport{DocumentID: id, Success: true}
}

func (m *mockRetrievalService) Query(
	_ context.Context,
	principal int64,
	text string,
	limit int,
) domain.Result[[]domain.SearchResult] {
	m.queryCalls++
	m.lastOwner = principal
	m.lastQuery = text
	m.lastLimit = limit
	return m.result
}

func (m *mockRetrievalService) DeleteDocument(context.Context, int64) error {
	return nil
}

func (m *mockRetrievalService) Stats(context.Context) (domain.IndexStats, error) {
	return domain.IndexStats{}, nil
}

func (m *mockRetrievalService) ModelInfo() domain.ModelInfo {
	return domain.ModelInfo{}
}

// mockChatService is a mock implementation of driving.ChatService.
type mockChatService struct {
	response *domain.ChatResponse
	err      error
	lastReq  domain.ChatRequest
}

func (m *mockChatService) Reply(_ context.Context, req domain.ChatRequest) (*domain.ChatResponse, error) {
	m.lastReq = req
	return m.response, m.err
}

func (m *mockChatService) Stream(
	_ context.Context,
	req domain.ChatRequest,
	emit func(string) error,
) (*domain.ChatResponse, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	if err := emit(m.response.Message); err != nil {
		return nil, err
	}
	return m.response, nil
}

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	summaries []domain.DocumentSummary
	document  *domain.Document
	err       error
}

func (m *mockDocumentService) Add(context.Context, driving.AddDocumentRequest) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) AddBatch(context.Context, int64, []string) ([]domain.Document, map[string]error) {
	return nil, nil
}

func (m *mockDocumentService) Process(context.Context, int64) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) Reindex(context.Context, int64, int64) (domain.IngestReport, error) {
	return domain.IngestReport{}, m.err
}

func (m *mockDocumentService) Get(context.Context, int64, int64) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(context.Context, int64) ([]domain.Document, error) {
	return nil, m.err
}

func (m *mockDocumentService) Summaries(context.Context, int64) ([]domain.DocumentSummary, error) {
	return m.summaries, m.err
}

func (m *mockDocumentService) Delete(context.Context, int64, int64) error {
	return m.err
}
