package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := New(context.Background(), "redis://"+mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c, mr
}

func TestCache_SetGet(t *testing.T) {
	c, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []float32{0.5, -1.25, 3}, 0))

	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []float32{0.5, -1.25, 3}, got)
	assert.True(t, mr.Exists(DefaultPrefix+"k"))
	assert.Equal(t, -1, c.Len(ctx))
}

func TestCache_Miss(t *testing.T) {
	c, _ := setup(t)

	_, ok := c.Get(context.Background(), "absent")

	assert.False(t, ok)
}

func TestCache_TTL(t *testing.T) {
	c, mr := setup(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", []float32{1}, time.Minute))
	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestCache_CorruptValue(t *testing.T) {
	c, mr := setup(t)
	require.NoError(t, mr.Set(DefaultPrefix+"bad", "abc"))

	_, ok := c.Get(context.Background(), "bad")

	assert.False(t, ok)
}

func TestNew_Errors(t *testing.T) {
	_, err := New(context.Background(), "not a url")
	assert.Error(t, err)

	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()
	_, err = New(context.Background(), "redis://"+addr)
	assert.Error(t, err)
}

func TestNewWithClient(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	c := NewWithClient(client)
	defer c.Close()

	require.NoError(t, c.Set(context.Background(), "x", []float32{7}, 0))
	got, ok := c.Get(context.Background(), "x")
	require.True(t, ok)
	assert.Equal(t, []float32{7}, got)
}
