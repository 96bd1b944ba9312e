package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore_MarkProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first delivery is new", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "payment.captured:ord-1001", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("redelivery is a duplicate", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "shipment.delivered:shp-2002", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "shipment.delivered:shp-2002", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew, "redelivered event should be deduplicated")
	})

	t.Run("expired marker admits the event again", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "order.refunded:ord-3003", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew)

		time.Sleep(20 * time.Millisecond)

		isNew, err = store.MarkProcessed(ctx, "order.refunded:ord-3003", 10*time.Millisecond)
		require.NoError(t, err)
		assert.True(t, isNew, "expired marker should no longer block processing")
	})
}

func TestInMemoryIdempotencyStore_IsProcessed(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("unknown event", func(t *testing.T) {
		processed, err := store.IsProcessed(ctx, "payment.captured:never-seen")
		require.NoError(t, err)
		assert.False(t, processed)
	})

	t.Run("marked event", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "payment.captured:ord-4004", time.Hour)
		require.NoError(t, err)

		processed, err := store.IsProcessed(ctx, "payment.captured:ord-4004")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("expired marker", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "payment.captured:ord-5005", 10*time.Millisecond)
		require.NoError(t, err)

		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, "payment.captured:ord-5005")
		require.NoError(t, err)
		assert.False(t, processed)
	})
}

func TestInMemoryIdempotencyStore_Size(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	assert.Equal(t, 0, store.Size())

	_, _ = store.MarkProcessed(ctx, "shipment.delivered:shp-1", time.Hour)
	_, _ = store.MarkProcessed(ctx, "shipment.delivered:shp-2", time.Hour)
	assert.Equal(t, 2, store.Size())

	// A duplicate does not grow the store.
	_, _ = store.MarkProcessed(ctx, "shipment.delivered:shp-1", time.Hour)
	assert.Equal(t, 2, store.Size())
}

func TestInMemoryIdempotencyStore_Cleanup(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "order.refunded:ord-1", 10*time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "order.refunded:ord-2", 10*time.Millisecond)
	_, _ = store.MarkProcessed(ctx, "payment.captured:ord-3", time.Hour)
	require.Equal(t, 3, store.Size())

	time.Sleep(20 * time.Millisecond)
	store.cleanup()

	assert.Equal(t, 1, store.Size())

	processed, err := store.IsProcessed(ctx, "payment.captured:ord-3")
	require.NoError(t, err)
	assert.True(t, processed)

	processed, err = store.IsProcessed(ctx, "order.refunded:ord-1")
	require.NoError(t, err)
	assert.False(t, processed)
}

func TestInMemoryIdempotencyStore_ConcurrentMarks(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	const workers = 100
	results := make(chan bool, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(ctx, "payment.captured:contended", time.Hour)
			results <- err == nil && isNew
		}()
	}
	wg.Wait()
	close(results)

	newCount := 0
	for isNew := range results {
		if isNew {
			newCount++
		}
	}
	assert.Equal(t, 1, newCount, "exactly one mark should win")
}

func TestInMemoryIdempotencyStore_Close(t *testing.T) {
	store := NewInMemoryIdempotencyStore()

	assert.NoError(t, store.Close())
	// Close is idempotent.
	assert.NoError(t, store.Close())
}
