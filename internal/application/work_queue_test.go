package application

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/kv"
)

func newTestQueue() (*WorkQueue, *kv.QueueStore, *time.Time) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	store := kv.NewQueueStore(kv.NewMemoryStore())
	q := NewWorkQueue(store, func() time.Time { return now }, nil)
	return q, store, &now
}

func TestWorkQueue_EnqueueManyDeduplicates(t *testing.T) {
	ctx := context.Background()
	q, store, _ := newTestQueue()

	added, err := q.EnqueueMany(ctx, []int64{10, 11}, "order_1")
	require.NoError(t, err)
	assert.Equal(t, 2, added)

	added, err = q.EnqueueMany(ctx, []int64{11, 12, 0, -3}, "order_2")
	require.NoError(t, err)
	assert.Equal(t, 1, added)

	snap, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, snap, 3)
	assert.Equal(t, "order_1", snap[11].Trigger, "existing entry keeps its first trigger")
	assert.Equal(t, domain.SyncQuantityOnly, snap[12].Kind)
	assert.Zero(t, snap[12].RetryCount)
}

func TestWorkQueue_DrainRemovesSuccesses(t *testing.T) {
	ctx := context.Background()
	q, _, _ := newTestQueue()
	_, err := q.EnqueueMany(ctx, []int64{1, 2, 3}, "manual")
	require.NoError(t, err)

	var seen []int64
	res, err := q.Drain(ctx, func(_ context.Context, e domain.QueueEntry) error {
		seen = append(seen, e.ProductID)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, seen)
	assert.Equal(t, domain.DrainResult{Succeeded: 3}, res)

	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total)
}

func TestWorkQueue_AlwaysFailingDroppedAfterThreeAttempts(t *testing.T) {
	ctx := context.Background()
	q, store, _ := newTestQueue()
	_, err := q.EnqueueMany(ctx, []int64{7}, "manual")
	require.NoError(t, err)

	attempts := 0
	fail := func(context.Context, domain.QueueEntry) error {
		attempts++
		return fmt.Errorf("boom")
	}

	for i := 1; i <= 2; i++ {
		res, err := q.Drain(ctx, fail)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Retried)
		assert.Equal(t, 1, res.Remaining)

		snap, err := store.Load(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, snap[7].RetryCount)
	}

	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Retrying)
	assert.Zero(t, st.Pending)

	res, err := q.Drain(ctx, fail)
	require.NoError(t, err)
	assert.Equal(t, 1, res.FailedDropped)
	assert.Zero(t, res.Remaining)
	assert.Equal(t, domain.MaxQueueRetries, attempts)
}

func TestWorkQueue_VanishedProductIsRemoved(t *testing.T) {
	ctx := context.Background()
	q, _, _ := newTestQueue()
	_, err := q.EnqueueMany(ctx, []int64{5}, "manual")
	require.NoError(t, err)

	res, err := q.Drain(ctx, func(context.Context, domain.QueueEntry) error {
		return fmt.Errorf("product 5: %w", domain.ErrProductNotFound)
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Vanished)
	assert.Zero(t, res.Remaining)
}

func TestWorkQueue_EntriesAddedDuringDrainSurvive(t *testing.T) {
	ctx := context.Background()
	q, _, _ := newTestQueue()
	_, err := q.EnqueueMany(ctx, []int64{1}, "order_1")
	require.NoError(t, err)

	res, err := q.Drain(ctx, func(ctx context.Context, e domain.QueueEntry) error {
		_, err := q.EnqueueMany(ctx, []int64{99}, "order_2")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Succeeded)
	assert.Equal(t, 1, res.Remaining)

	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, st.Total)
}

func TestWorkQueue_ClearDuringDrainIsNotUndone(t *testing.T) {
	ctx := context.Background()
	q, _, _ := newTestQueue()
	_, err := q.EnqueueMany(ctx, []int64{1, 2}, "manual")
	require.NoError(t, err)

	res, err := q.Drain(ctx, func(ctx context.Context, e domain.QueueEntry) error {
		if e.ProductID == 1 {
			_, err := q.Clear(ctx)
			require.NoError(t, err)
		}
		return fmt.Errorf("still failing")
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Retried)
	assert.Zero(t, res.Remaining, "cleared entries must not come back with a retry count")
}

func TestWorkQueue_StatsAndClear(t *testing.T) {
	ctx := context.Background()
	q, _, now := newTestQueue()

	first := *now
	_, err := q.EnqueueMany(ctx, []int64{1}, "a")
	require.NoError(t, err)
	*now = now.Add(time.Minute)
	_, err = q.EnqueueMany(ctx, []int64{2, 3}, "b")
	require.NoError(t, err)

	st, err := q.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, st.Total)
	assert.Equal(t, 3, st.Pending)
	require.NotNil(t, st.Oldest)
	assert.True(t, st.Oldest.Equal(first))

	n, err := q.Clear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	st, err = q.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.Total)
	assert.Nil(t, st.Oldest)
}
