package tokencache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMemory(t *testing.T, ttl time.Duration) *MemoryCache {
	t.Helper()
	c, err := NewMemoryCache(ttl, 100)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestKey(t *testing.T) {
	assert.Equal(t, "jwt42", Key("42"))
}

func TestMemoryCache_Miss(t *testing.T) {
	c := newMemory(t, time.Hour)

	_, found, err := c.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestMemoryCache_PutOverwrites(t *testing.T) {
	c := newMemory(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "u1", Entry{AccessToken: "a1", RefreshTokenHash: "r1"}))
	require.NoError(t, c.Put(ctx, "u1", Entry{AccessToken: "a2"}))

	e, found, err := c.Get(ctx, "u1")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, Entry{AccessToken: "a2"}, e)
}

func TestMemoryCache_KeepsUsersApart(t *testing.T) {
	c := newMemory(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "u1", Entry{AccessToken: "a1", IsRevoked: true}))
	require.NoError(t, c.Put(ctx, "u2", Entry{AccessToken: "a2"}))

	e1, _, _ := c.Get(ctx, "u1")
	e2, _, _ := c.Get(ctx, "u2")
	assert.True(t, e1.IsRevoked)
	assert.False(t, e2.IsRevoked)
}

func TestMemoryCache_Expires(t *testing.T) {
	c := newMemory(t, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "u1", Entry{AccessToken: "a1"}))

	assert.Eventually(t, func() bool {
		_, found, _ := c.Get(ctx, "u1")
		return !found
	}, 2*time.Second, 20*time.Millisecond)
}
