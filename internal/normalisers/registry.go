package normalisers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/kbassist/internal/core/domain"
	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// DefaultAllowedTypes is the allow-list used when none is configured.
var DefaultAllowedTypes = []string{"pdf", "doc", "docx", "txt", "md"}

// Ensure Registry implements the interface.
var _ driven.NormaliserRegistry = (*Registry)(nil)

// Registry routes files to normalisers by declared file type.
type Registry struct {
	mu      sync.RWMutex
	byType  map[string][]driven.Normaliser
	allowed map[string]bool
}

// NewRegistry creates a registry accepting the given file types.
// An empty list means DefaultAllowedTypes.
func NewRegistry(allowed []string) *Registry {
	if len(allowed) == 0 {
		allowed = DefaultAllowedTypes
	}
	r := &Registry{
		byType:  make(map[string][]driven.Normaliser),
		allowed: make(map[string]bool, len(allowed)),
	}
	for _, t := range allowed {
		r.allowed[strings.ToLower(strings.TrimPrefix(t, "."))] = true
	}
	return r
}

// Register adds a normaliser for all its supported types.
func (r *Registry) Register(n driven.Normaliser) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range n.SupportedTypes() {
		list := append(r.byType[t], n)
		sort.SliceStable(list, func(i, j int) bool {
			return list[i].Priority() > list[j].Priority()
		})
		r.byType[t] = list
	}
}

// Get returns the highest-priority normaliser for the file type.
func (r *Registry) Get(fileType string) (driven.Normaliser, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := r.byType[strings.ToLower(fileType)]
	if len(list) == 0 {
		return nil, false
	}
	return list[0], true
}

// Allowed reports whether the file type is on the allow-list.
func (r *Registry) Allowed(fileType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.allowed[strings.ToLower(fileType)]
}

// Types returns the allowed file types in sorted order.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.allowed))
	for t := range r.allowed {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Extract reads the file at path and returns its text.
func (r *Registry) Extract(ctx context.Context, path, fileType string) (*driven.NormaliseResult, error) {
	fileType = strings.ToLower(strings.TrimPrefix(fileType, "."))
	if !r.Allowed(fileType) {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, fileType)
	}
	n, ok := r.Get(fileType)
	if !ok {
		return nil, fmt.Errorf("%w: no extractor for %q", domain.ErrUnsupportedFormat, fileType)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %w", domain.ErrExtractionFailure, filepath.Base(path), err)
	}

	logger.Debug("extracting %s (%s, %d bytes)", filepath.Base(path), fileType, len(content))

	result, err := n.Normalise(ctx, filepath.Base(path), content)
	if err != nil {
		if errors.Is(err, domain.ErrExtractionFailure) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrExtractionFailure, filepath.Base(path), err)
	}
	result.Content = strings.TrimSpace(result.Content)
	if result.Title == "" {
		result.Title = TitleFromFilename(path)
	}
	return result, nil
}
