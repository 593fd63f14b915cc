package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

// ProcessFunc syncs one queued product. Returning domain.ErrProductNotFound
// removes the entry without retry.
type ProcessFunc func(ctx context.Context, e domain.QueueEntry) error

// WorkQueue is the persistent, de-duplicated set of products awaiting a
// quantity sync.
type WorkQueue struct {
	store      domain.QueueStore
	kind       domain.SyncKind
	maxRetries int
	now        func() time.Time
	log        *logger.Logger

	mu sync.Mutex
}

func NewWorkQueue(store domain.QueueStore, now func() time.Time, log *logger.Logger) *WorkQueue {
	if now == nil {
		now = time.Now
	}
	if log == nil {
		log = logger.Nop()
	}
	return &WorkQueue{
		store:      store,
		kind:       domain.SyncQuantityOnly,
		maxRetries: domain.MaxQueueRetries,
		now:        now,
		log:        log,
	}
}

// EnqueueMany adds the ids that are not already queued and reports how many
// were new. Non-positive ids are ignored.
func (q *WorkQueue) EnqueueMany(ctx context.Context, ids []int64, trigger string) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap, err := q.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load queue: %w", err)
	}

	now := q.now().UTC()
	added := 0
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, exists := snap[id]; exists {
			continue
		}
		snap[id] = domain.QueueEntry{
			ProductID:  id,
			Kind:       q.kind,
			Trigger:    trigger,
			EnqueuedAt: now,
		}
		added++
	}
	if added == 0 {
		return 0, nil
	}

	if err := q.store.Save(ctx, snap); err != nil {
		return 0, fmt.Errorf("save queue: %w", err)
	}
	q.log.Info().Int("added", added).Str("trigger", trigger).Msg("products queued for sync")
	return added, nil
}

type drainDecision struct {
	entry  domain.QueueEntry
	remove bool
}

// Drain processes a snapshot of the queue in enqueue order. Entries added
// while draining are kept; entries cleared while draining stay cleared.
func (q *WorkQueue) Drain(ctx context.Context, process ProcessFunc) (domain.DrainResult, error) {
	var res domain.DrainResult

	q.mu.Lock()
	snap, err := q.store.Load(ctx)
	q.mu.Unlock()
	if err != nil {
		return res, fmt.Errorf("load queue: %w", err)
	}
	if len(snap) == 0 {
		return res, nil
	}

	entries := make([]domain.QueueEntry, 0, len(snap))
	for _, e := range snap {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].EnqueuedAt.Equal(entries[j].EnqueuedAt) {
			return entries[i].EnqueuedAt.Before(entries[j].EnqueuedAt)
		}
		return entries[i].ProductID < entries[j].ProductID
	})

	decisions := make(map[int64]drainDecision, len(entries))
	for _, e := range entries {
		if ctx.Err() != nil {
			break
		}
		err := process(ctx, e)
		switch {
		case err == nil:
			res.Succeeded++
			decisions[e.ProductID] = drainDecision{entry: e, remove: true}
		case errors.Is(err, domain.ErrProductNotFound):
			res.Vanished++
			decisions[e.ProductID] = drainDecision{entry: e, remove: true}
			q.log.Warn().Int64("product_id", e.ProductID).Msg("queued product no longer exists, removed")
		default:
			next := e.RetryCount + 1
			if next >= q.maxRetries {
				res.FailedDropped++
				decisions[e.ProductID] = drainDecision{entry: e, remove: true}
				q.log.Error().Err(err).
					Int64("product_id", e.ProductID).
					Int("retry_count", next).
					Msg("queued product sync failed permanently, removed")
				continue
			}
			res.Retried++
			updated := e
			updated.RetryCount = next
			decisions[e.ProductID] = drainDecision{entry: updated}
			q.log.Warn().Err(err).
				Int64("product_id", e.ProductID).
				Int("retry_count", next).
				Msg("queued product sync failed, will retry")
		}
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	current, err := q.store.Load(ctx)
	if err != nil {
		return res, fmt.Errorf("reload queue: %w", err)
	}
	for id, d := range decisions {
		cur, ok := current[id]
		// cleared, or cleared and re-added, while we were draining
		if !ok || !sameEntry(cur, d.entry) {
			continue
		}
		if d.remove {
			delete(current, id)
		} else {
			current[id] = d.entry
		}
	}
	if err := q.store.Save(ctx, current); err != nil {
		return res, fmt.Errorf("save queue: %w", err)
	}
	res.Remaining = len(current)

	q.log.Info().
		Int("succeeded", res.Succeeded).
		Int("retried", res.Retried).
		Int("failed", res.FailedDropped).
		Int("vanished", res.Vanished).
		Int("remaining", res.Remaining).
		Msg("queue drained")
	return res, ctx.Err()
}

func sameEntry(a, b domain.QueueEntry) bool {
	return a.EnqueuedAt.Equal(b.EnqueuedAt) && a.Trigger == b.Trigger
}

func (q *WorkQueue) Stats(ctx context.Context) (domain.QueueStats, error) {
	q.mu.Lock()
	snap, err := q.store.Load(ctx)
	q.mu.Unlock()
	if err != nil {
		return domain.QueueStats{}, fmt.Errorf("load queue: %w", err)
	}

	st := domain.QueueStats{Total: len(snap)}
	for _, e := range snap {
		if e.RetryCount > 0 {
			st.Retrying++
		} else {
			st.Pending++
		}
		if st.Oldest == nil || e.EnqueuedAt.Before(*st.Oldest) {
			t := e.EnqueuedAt
			st.Oldest = &t
		}
	}
	return st, nil
}

// Clear empties the queue and returns how many entries were dropped.
func (q *WorkQueue) Clear(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	snap, err := q.store.Load(ctx)
	if err != nil {
		return 0, fmt.Errorf("load queue: %w", err)
	}
	if err := q.store.Save(ctx, domain.QueueSnapshot{}); err != nil {
		return 0, fmt.Errorf("save queue: %w", err)
	}
	if len(snap) > 0 {
		q.log.Info().Int("cleared", len(snap)).Msg("sync queue cleared")
	}
	return len(snap), nil
}
