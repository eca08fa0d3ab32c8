package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// DefaultBatchConcurrency bounds AddBatch.
const DefaultBatchConcurrency = 4

// DocumentService manages the document lifecycle: registration,
// extraction, indexing and removal.
type DocumentService struct {
	store     driven.DocumentStore
	extractor driven.NormaliserRegistry
	retrieval driving.RetrievalService

	concurrency int
	now         func() time.Time
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	store driven.DocumentStore,
	extractor driven.NormaliserRegistry,
	retrieval driving.RetrievalService,
) *DocumentService {
	return &DocumentService{
		store:       store,
		extractor:   extractor,
		retrieval:   retrieval,
		concurrency: DefaultBatchConcurrency,
		now:         time.Now,
	}
}

// SetConcurrency changes the AddBatch worker limit.
func (s *DocumentService) SetConcurrency(n int) {
	if n > 0 {
		s.concurrency = n
	}
}

// Add registers a file and processes it. A file that is already
// registered for the owner is processed again.
func (s *DocumentService) Add(ctx context.Context, req driving.AddDocumentRequest) (*domain.Document, error) {
	if strings.TrimSpace(req.Path) == "" {
		return nil, fmt.Errorf("%w: path is required", domain.ErrInvalidInput)
	}
	path, err := filepath.Abs(req.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	fileType := domain.FileTypeOf(path)
	if !s.extractor.Allowed(fileType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, filepath.Ext(path))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", domain.ErrInvalidInput, path)
	}

	doc, err := s.store.FindByPath(ctx, req.OwnerID, path)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		doc = &domain.Document{
			OwnerID:   req.OwnerID,
			Path:      path,
			Filename:  filepath.Base(path),
			FileType:  fileType,
			CreatedAt: s.now(),
		}
	case err != nil:
		return nil, fmt.Errorf("find document: %w", err)
	}

	doc.Title = req.Title
	if doc.Title == "" {
		doc.Title = doc.Filename
	}
	doc.FileSize = info.Size()
	doc.Status = domain.StatusPending
	doc.ErrorMessage = ""
	doc.UpdatedAt = s.now()

	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}
	logger.Debug("registered document %d (%s)", doc.ID, doc.Path)

	return s.Process(ctx, doc.ID)
}

// AddBatch adds several files concurrently. Documents are returned in
// path order; failures are keyed by path.
func (s *DocumentService) AddBatch(ctx context.Context, ownerID int64, paths []string) ([]domain.Document, map[string]error) {
	var mu sync.Mutex
	added := make(map[string]domain.Document, len(paths))
	failures := make(map[string]error)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for _, p := range paths {
		g.Go(func() error {
			doc, err := s.Add(gctx, driving.AddDocumentRequest{OwnerID: ownerID, Path: p})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures[p] = err
				return nil
			}
			added[p] = *doc
			return nil
		})
	}
	_ = g.Wait()

	docs := make([]domain.Document, 0, len(added))
	for _, p := range paths {
		if d, ok := added[p]; ok {
			docs = append(docs, d)
		}
	}
	return docs, failures
}

// Process extracts the text of a document and indexes it. Extraction
// failures mark the document failed; indexing failures leave it
// completed but not vectorised.
func (s *DocumentService) Process(ctx context.Context, documentID int64) (*domain.Document, error) {
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	doc.Status = domain.StatusProcessing
	doc.UpdatedAt = s.now()
	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	extracted, err := s.extractor.Extract(ctx, doc.Path, doc.FileType)
	if err != nil {
		doc.Status = domain.StatusFailed
		doc.ErrorMessage = err.Error()
		doc.UpdatedAt = s.now()
		if saveErr := s.store.Save(ctx, doc); saveErr != nil {
			logger.Error("save failed document %d: %v", doc.ID, saveErr)
		}
		return doc, err
	}

	doc.Content = extracted.Content
	if doc.Title == doc.Filename && extracted.Title != "" {
		doc.Title = extracted.Title
	}
	doc.Status = domain.StatusCompleted
	doc.ErrorMessage = ""
	doc.ProcessedAt = s.now()
	doc.UpdatedAt = doc.ProcessedAt
	if err := s.store.Save(ctx, doc); err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	// Reingest also clears vectors left behind by an earlier failed run.
	report := s.retrieval.Reingest(ctx, doc.ID, doc.Content)
	if err := s.applyReport(ctx, doc, report); err != nil {
		return nil, err
	}
	return doc, nil
}

// Reindex rebuilds the vectors of a completed document from its stored
// content.
func (s *DocumentService) Reindex(ctx context.Context, ownerID, documentID int64) (domain.IngestReport, error) {
	doc, err := s.Get(ctx, ownerID, documentID)
	if err != nil {
		return domain.IngestReport{DocumentID: documentID, Err: err}, err
	}
	if doc.Status != domain.StatusCompleted {
		err := fmt.Errorf("%w: document %d is %s", domain.ErrInvalidInput, documentID, doc.Status)
		return domain.IngestReport{DocumentID: documentID, Err: err}, err
	}

	report := s.retrieval.Reingest(ctx, doc.ID, doc.Content)
	if err := s.applyReport(ctx, doc, report); err != nil {
		return report, err
	}
	return report, nil
}

func (s *DocumentService) applyReport(ctx context.Context, doc *domain.Document, report domain.IngestReport) error {
	if !report.Success {
		logger.Warn("document %d stored without vectors: %v", doc.ID, report.Err)
	}
	doc.IsVectorized = report.Success
	doc.VectorCount = report.VectorCount
	doc.UpdatedAt = s.now()
	if err := s.store.Save(ctx, doc); err != nil {
		return fmt.Errorf("save document: %w", err)
	}
	if err := s.store.RecordIngestion(ctx, report); err != nil {
		logger.Warn("record ingestion of document %d: %v", doc.ID, err)
	}
	return nil
}

// Get returns a document owned by ownerID.
func (s *DocumentService) Get(ctx context.Context, ownerID, documentID int64) (*domain.Document, error) {
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.OwnerID != ownerID {
		return nil, fmt.Errorf("%w: document %d", domain.ErrForbidden, documentID)
	}
	return doc, nil
}

// List returns every document of an owner, newest first.
func (s *DocumentService) List(ctx context.Context, ownerID int64) ([]domain.Document, error) {
	docs, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return docs[i].CreatedAt.After(docs[j].CreatedAt)
	})
	return docs, nil
}

// Summaries lists the completed documents of an owner.
func (s *DocumentService) Summaries(ctx context.Context, ownerID int64) ([]domain.DocumentSummary, error) {
	docs, err := s.List(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.DocumentSummary, 0, len(docs))
	for i := range docs {
		if docs[i].Status == domain.StatusCompleted {
			out = append(out, docs[i].Summary())
		}
	}
	return out, nil
}

// Delete removes a document's vectors and then its record.
func (s *DocumentService) Delete(ctx context.Context, ownerID, documentID int64) error {
	if _, err := s.Get(ctx, ownerID, documentID); err != nil {
		return err
	}
	if err := s.retrieval.DeleteDocument(ctx, documentID); err != nil {
		return fmt.Errorf("delete vectors: %w", err)
	}
	return s.store.Delete(ctx, documentID)
}
