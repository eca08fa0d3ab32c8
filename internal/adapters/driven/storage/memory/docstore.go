// Package memory provides in-memory implementations of the storage ports,
// used for ephemeral sessions and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu         sync.RWMutex
	documents  map[int64]domain.Document
	ingestions map[int64][]domain.IngestReport
	nextID     int64
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents:  make(map[int64]domain.Document),
		ingestions: make(map[int64][]domain.IngestReport),
	}
}

// Save stores a document, assigning an ID when it has none.
func (s *DocumentStore) Save(_ context.Context, doc *domain.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == 0 {
		s.nextID++
		doc.ID = s.nextID
	} else if _, ok := s.documents[doc.ID]; !ok {
		return domain.ErrNotFound
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}
	if doc.Status == "" {
		doc.Status = domain.StatusPending
	}
	s.documents[doc.ID] = *doc
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id int64) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &doc, nil
}

// FindByPath retrieves an owner's document by file path.
func (s *DocumentStore) FindByPath(_ context.Context, ownerID int64, path string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, doc := range s.documents {
		if doc.OwnerID == ownerID && doc.Path == path {
			return &doc, nil
		}
	}
	return nil, domain.ErrNotFound
}

// List returns an owner's documents, newest first.
func (s *DocumentStore) List(_ context.Context, ownerID int64) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var docs []domain.Document
	for _, doc := range s.documents {
		if doc.OwnerID == ownerID {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
	return docs, nil
}

// Delete removes a document and its ingestion history.
func (s *DocumentStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.ingestions, id)
	return nil
}

// RecordIngestion appends to a document's ingestion history.
func (s *DocumentStore) RecordIngestion(_ context.Context, report domain.IngestReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ingestions[report.DocumentID] = append(s.ingestions[report.DocumentID], report)
	return nil
}

// Ingestions returns the recorded history of a document.
func (s *DocumentStore) Ingestions(documentID int64) []domain.IngestReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.IngestReport(nil), s.ingestions[documentID]...)
}
