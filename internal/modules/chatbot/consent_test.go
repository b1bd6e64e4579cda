package chatbot

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exerciseStore(t *testing.T, store ConsentStore) {
	t.Helper()
	ctx := context.Background()

	ok, err := store.HasConsent(ctx, 41)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Grant(ctx, 41))
	ok, err = store.HasConsent(ctx, 41)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.HasConsent(ctx, 42)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx, 41))
	ok, err = store.HasConsent(ctx, 41)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.Clear(ctx, 41))
}

func TestMemoryConsentStore(t *testing.T) {
	exerciseStore(t, NewMemoryConsentStore())
}

func TestMemoryConsentStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryConsentStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			_ = store.Grant(ctx, id%5)
			_, _ = store.HasConsent(ctx, id%5)
			if id%2 == 0 {
				_ = store.Clear(ctx, id%5+100)
			}
		}(int64(i))
	}
	wg.Wait()

	for id := int64(0); id < 5; id++ {
		ok, err := store.HasConsent(ctx, id)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func newRedisStore(t *testing.T) (*RedisConsentStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisConsentStore(client), mr
}

func TestRedisConsentStore(t *testing.T) {
	store, _ := newRedisStore(t)
	exerciseStore(t, store)
}

func TestRedisConsentStoreGrantNeverExpires(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Grant(ctx, 7))
	assert.Equal(t, "1", mustGet(t, mr, consentKey(7)))
	assert.Equal(t, time.Duration(0), mr.TTL(consentKey(7)))

	mr.FastForward(5 * 365 * 24 * time.Hour)
	ok, err := store.HasConsent(ctx, 7)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestRedisConsentStoreUnavailable(t *testing.T) {
	store, mr := newRedisStore(t)
	mr.Close()
	ctx := context.Background()

	ok, err := store.HasConsent(ctx, 7)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "failed to read consent")

	err = store.Grant(ctx, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store consent")

	err = store.Clear(ctx, 7)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to clear consent")
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}

func TestConsentKey(t *testing.T) {
	assert.Equal(t, "chatbot:consent:7", consentKey(7))
}
