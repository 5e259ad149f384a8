package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreSetGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetWithTTL(ctx, "key", "value", time.Minute))

	val, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", val)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	store.Now = func() time.Time { return now }

	require.NoError(t, store.SetWithTTL(ctx, "key", "value", time.Minute))

	_, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)

	now = now.Add(2 * time.Minute)

	_, found, err = store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreZeroTTLNeverExpires(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	now := time.Unix(1_700_000_000, 0)
	store.Now = func() time.Time { return now }

	require.NoError(t, store.SetWithTTL(ctx, "key", "value", 0))

	now = now.Add(24 * time.Hour)

	_, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(mr.Addr(), "", 0)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	store := NewRedisStore(client)
	ctx := context.Background()

	_, found, err := store.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.SetWithTTL(ctx, "key", "value", time.Minute))

	val, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value", val)

	// TTL expiry through the store's own clock.
	mr.FastForward(2 * time.Minute)

	_, found, err = store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}
