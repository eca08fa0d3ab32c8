// Package redis provides an embedding cache shared between processes.
package redis

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/custodia-labs/kbassist/internal/core/ports/driven"
	"github.com/custodia-labs/kbassist/internal/logger"
)

// DefaultPrefix namespaces cache keys.
const DefaultPrefix = "kbassist:emb:"

// Ensure Cache implements the interface.
var _ driven.EmbeddingCache = (*Cache)(nil)

// Cache stores embeddings as little-endian float32 blobs.
type Cache struct {
	client *redis.Client
	prefix string
}

// New connects to the Redis server at url (redis://host:port/db).
func New(ctx context.Context, url string) (*Cache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewWithClient(client), nil
}

// NewWithClient wraps an existing client.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client, prefix: DefaultPrefix}
}

// Get returns the cached vector. Redis errors count as misses.
func (c *Cache) Get(ctx context.Context, key string) ([]float32, bool) {
	data, err := c.client.Get(ctx, c.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logger.Warn("embedding cache get failed: %v", err)
		}
		return nil, false
	}
	if len(data)%4 != 0 {
		return nil, false
	}
	return decode(data), true
}

// Set stores vec. A ttl of zero means no expiry.
func (c *Cache) Set(ctx context.Context, key string, vec []float32, ttl time.Duration) error {
	if err := c.client.Set(ctx, c.prefix+key, encode(vec), ttl).Err(); err != nil {
		return fmt.Errorf("embedding cache set: %w", err)
	}
	return nil
}

// Len returns -1; counting keys would need a full scan.
func (c *Cache) Len(context.Context) int {
	return -1
}

// Close closes the client.
func (c *Cache) Close() error {
	return c.client.Close()
}

func encode(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

func decode(data []byte) []float32 {
	vec := make([]float32, len(data)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return vec
}
