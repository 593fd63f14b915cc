package kv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

func TestMemoryStore_GetSetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	var n int
	found, err := s.Get(ctx, "batch", &n)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "batch", 12))
	found, err = s.Get(ctx, "batch", &n)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, 12, n)

	require.NoError(t, s.Delete(ctx, "batch"))
	found, _ = s.Get(ctx, "batch", &n)
	assert.False(t, found)
}

func TestMemoryStore_ValuesAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	urls := []string{"a"}
	require.NoError(t, s.Set(ctx, "stores", urls))
	urls[0] = "changed"

	var got []string
	_, err := s.Get(ctx, "stores", &got)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, got)
}

func TestQueueStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mem := NewMemoryStore()
	qs := NewQueueStore(mem)

	snap, err := qs.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, snap)

	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, qs.Save(ctx, domain.QueueSnapshot{
		42: {ProductID: 42, Trigger: "order_7", EnqueuedAt: at, RetryCount: 1},
	}))

	snap, err = qs.Load(ctx)
	require.NoError(t, err)
	require.Contains(t, snap, int64(42))
	assert.Equal(t, "order_7", snap[42].Trigger)
	assert.Equal(t, 1, snap[42].RetryCount)
	assert.True(t, at.Equal(snap[42].EnqueuedAt))

	require.NoError(t, qs.Save(ctx, domain.QueueSnapshot{}))
	var raw map[string]any
	found, _ := mem.Get(ctx, QueueOptionKey, &raw)
	assert.False(t, found, "empty queue deletes the option")
}
