package kv

import (
	"context"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// QueueOptionKey is the option holding the whole work queue.
const QueueOptionKey = "sync_queue"

// QueueStore persists the work queue as a single option blob.
type QueueStore struct {
	store domain.KeyValueStore
	key   string
}

func NewQueueStore(store domain.KeyValueStore) *QueueStore {
	return &QueueStore{store: store, key: QueueOptionKey}
}

func (q *QueueStore) Load(ctx context.Context) (domain.QueueSnapshot, error) {
	snap := domain.QueueSnapshot{}
	found, err := q.store.Get(ctx, q.key, &snap)
	if err != nil {
		return nil, err
	}
	if !found || snap == nil {
		return domain.QueueSnapshot{}, nil
	}
	return snap, nil
}

func (q *QueueStore) Save(ctx context.Context, snap domain.QueueSnapshot) error {
	if len(snap) == 0 {
		return q.store.Delete(ctx, q.key)
	}
	return q.store.Set(ctx, q.key, snap)
}
