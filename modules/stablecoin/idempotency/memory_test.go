package idempotency

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/sss-network/sss-indexer/common/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(ttl time.Duration) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	store := NewMemoryStore(ttl)
	store.Now = clock.Now
	return store, clock
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	t.Run("lock_complete", func(t *testing.T) {
		store, _ := newTestStore(time.Hour)

		result, err := store.Lock(ctx, "k1", "h1")
		require.NoError(t, err)
		assert.True(t, result.Acquired)

		result, err = store.Lock(ctx, "k1", "h1")
		require.NoError(t, err)
		assert.False(t, result.Acquired)
		require.NotNil(t, result.Existing)
		assert.Equal(t, StatusProcessing, result.Existing.Status)
		assert.Nil(t, result.Existing.Response)

		response := json.RawMessage(`{"status":"completed","signature":"sig-1"}`)
		require.NoError(t, store.Complete(ctx, "k1", response))

		result, err = store.Lock(ctx, "k1", "h1")
		require.NoError(t, err)
		assert.False(t, result.Acquired)
		assert.Equal(t, StatusCompleted, result.Existing.Status)
		assert.Equal(t, "h1", result.Existing.RequestHash)
		assert.JSONEq(t, string(response), string(result.Existing.Response))
	})
	t.Run("clear_releases", func(t *testing.T) {
		store, _ := newTestStore(time.Hour)

		_, err := store.Lock(ctx, "k2", "h")
		require.NoError(t, err)
		require.NoError(t, store.Clear(ctx, "k2"))
		require.NoError(t, store.Clear(ctx, "k2"))

		result, err := store.Lock(ctx, "k2", "h")
		require.NoError(t, err)
		assert.True(t, result.Acquired)
	})
	t.Run("ttl_lapse", func(t *testing.T) {
		store, clock := newTestStore(time.Minute)

		_, err := store.Lock(ctx, "k3", "h")
		require.NoError(t, err)
		clock.Advance(time.Minute)

		result, err := store.Lock(ctx, "k3", "h")
		require.NoError(t, err)
		assert.True(t, result.Acquired)
	})
	t.Run("complete_unknown_key", func(t *testing.T) {
		store, _ := newTestStore(time.Minute)
		err := store.Complete(ctx, "missing", json.RawMessage(`{}`))
		assert.True(t, errors.Is(err, errs.NotFound))
	})
	t.Run("empty_key", func(t *testing.T) {
		store, _ := newTestStore(time.Minute)
		_, err := store.Lock(ctx, " ", "h")
		assert.True(t, errors.Is(err, errs.InvalidArgument))
	})
	t.Run("purge_expired", func(t *testing.T) {
		store, clock := newTestStore(time.Minute)
		for _, key := range []string{"a", "b"} {
			_, err := store.Lock(ctx, key, "h")
			require.NoError(t, err)
		}
		clock.Advance(30 * time.Second)
		_, err := store.Lock(ctx, "c", "h")
		require.NoError(t, err)
		clock.Advance(30 * time.Second)

		purged, err := store.PurgeExpired(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), purged)
	})
	t.Run("single_holder_under_contention", func(t *testing.T) {
		store, _ := newTestStore(time.Hour)

		var acquired atomic.Int32
		var wg sync.WaitGroup
		for i := 0; i < 32; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := store.Lock(ctx, "hot", "h")
				if assert.NoError(t, err) && result.Acquired {
					acquired.Add(1)
				}
			}()
		}
		wg.Wait()
		assert.Equal(t, int32(1), acquired.Load())
	})
}
