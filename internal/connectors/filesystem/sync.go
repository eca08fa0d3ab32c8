package filesystem

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driving"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// DefaultDebounce coalesces bursts of events for the same file.
const DefaultDebounce = 500 * time.Millisecond

// SyncStats counts what a sync pass did.
type SyncStats struct {
	Added   int
	Updated int
	Deleted int
	Failed  int
}

// Syncer keeps the document store in step with a watched directory.
// Created and modified files are (re)added, which re-extracts and
// re-indexes them; removed files are deleted with their vectors.
type Syncer struct {
	connector *Connector
	docs      driving.DocumentService
	ownerID   int64
	debounce  time.Duration

	// OnChange is called after each applied change. Optional.
	OnChange func(Change, error)

	mu    sync.Mutex
	stats SyncStats
}

// NewSyncer creates a syncer for the owner's documents.
func NewSyncer(connector *Connector, docs driving.DocumentService, ownerID int64) *Syncer {
	return &Syncer{
		connector: connector,
		docs:      docs,
		ownerID:   ownerID,
		debounce:  DefaultDebounce,
	}
}

// SetDebounce overrides the event coalescing window. Zero applies every
// event immediately.
func (s *Syncer) SetDebounce(d time.Duration) {
	if d >= 0 {
		s.debounce = d
	}
}

// Stats returns the counters accumulated so far.
func (s *Syncer) Stats() SyncStats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Initial adds every accepted file under the root. Files already known
// are reprocessed in place.
func (s *Syncer) Initial(ctx context.Context) (SyncStats, error) {
	paths, err := s.connector.Scan(ctx)
	if err != nil {
		return SyncStats{}, err
	}
	if len(paths) == 0 {
		return SyncStats{}, nil
	}

	docs, failures := s.docs.AddBatch(ctx, s.ownerID, paths)

	var stats SyncStats
	for i := range docs {
		if docs[i].Status == domain.StatusFailed {
			stats.Failed++
			continue
		}
		stats.Added++
	}
	for path, err := range failures {
		stats.Failed++
		logger.Warn("sync %s: %v", path, err)
	}

	s.mu.Lock()
	s.stats.Added += stats.Added
	s.stats.Failed += stats.Failed
	s.mu.Unlock()

	return stats, nil
}

// Run applies watched changes until ctx is cancelled.
func (s *Syncer) Run(ctx context.Context) error {
	changes, err := s.connector.Watch(ctx)
	if err != nil {
		return err
	}

	pending := make(map[string]Change)
	var timer *time.Timer
	var fire <-chan time.Time

	flush := func() {
		paths := make([]string, 0, len(pending))
		for p := range pending {
			paths = append(paths, p)
		}
		sort.Strings(paths)
		for _, p := range paths {
			s.apply(ctx, pending[p])
		}
		pending = make(map[string]Change)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil

		case change, ok := <-changes:
			if !ok {
				flush()
				return nil
			}
			if s.debounce == 0 {
				s.apply(ctx, change)
				continue
			}
			pending[change.Path] = merge(pending[change.Path], change)
			if timer == nil {
				timer = time.NewTimer(s.debounce)
				fire = timer.C
			}

		case <-fire:
			timer = nil
			fire = nil
			flush()
		}
	}
}

// merge keeps "created" for a file that was created and then written
// within one window.
func merge(prev, next Change) Change {
	if prev.Type == ChangeCreated && next.Type == ChangeUpdated {
		return prev
	}
	return next
}

func (s *Syncer) apply(ctx context.Context, change Change) {
	var err error
	switch change.Type {
	case ChangeCreated, ChangeUpdated:
		var doc *domain.Document
		doc, err = s.docs.Add(ctx, driving.AddDocumentRequest{OwnerID: s.ownerID, Path: change.Path})
		if err == nil && doc != nil && doc.Status == domain.StatusFailed {
			err = fmt.Errorf("processing failed: %s", doc.ErrorMessage)
		}
	case ChangeDeleted:
		err = s.remove(ctx, change.Path)
	}

	s.mu.Lock()
	switch {
	case err != nil:
		s.stats.Failed++
	case change.Type == ChangeCreated:
		s.stats.Added++
	case change.Type == ChangeUpdated:
		s.stats.Updated++
	case change.Type == ChangeDeleted:
		s.stats.Deleted++
	}
	s.mu.Unlock()

	if err != nil {
		logger.Warn("sync %s %s: %v", change.Type, change.Path, err)
	} else {
		logger.Info("sync %s %s", change.Type, change.Path)
	}
	if s.OnChange != nil {
		s.OnChange(change, err)
	}
}

func (s *Syncer) remove(ctx context.Context, path string) error {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	docs, err := s.docs.List(ctx, s.ownerID)
	if err != nil {
		return err
	}
	for i := range docs {
		if docs[i].Path == path {
			return s.docs.Delete(ctx, s.ownerID, docs[i].ID)
		}
	}
	return nil
}
