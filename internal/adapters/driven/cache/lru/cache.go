// Package lru provides an in-process embedding cache with least-recently-used
// eviction.
package lru

import (
	"context"
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
)

// DefaultSize is the number of vectors kept when no size is configured.
const DefaultSize = 4096

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Cache is a fixed-size LRU of embeddings. Entries never expire; the ttl
// argument to Set is ignored.
type Cache struct {
	entries *lru.Cache[string, []float32]
}

// New creates a cache holding up to size vectors.
func New(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultSize
	}
	entries, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("init lru cache: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Get returns a copy of the cached vector.
func (c *Cache) Get(_ context.Context, key string) ([]float32, bool) {
	vec, ok := c.entries.Get(key)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a copy of vec.
func (c *Cache) Set(_ context.Context, key string, vec []float32, _ time.Duration) error {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.entries.Add(key, stored)
	return nil
}

// Len returns the number of cached vectors.
func (c *Cache) Len(context.Context) int {
	return c.entries.Len()
}
