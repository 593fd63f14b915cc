package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ProductRepository reads the source catalog. Missing products come back as (nil, nil).
type ProductRepository interface {
	GetByID(ctx context.Context, id int64) (*ProductView, error)
	FindBySku(ctx context.Context, sku string) (*ProductView, error)
	// FindEligible returns ids most-recently-modified first, unique, at most q.Limit.
	FindEligible(ctx context.Context, q EligibilityQuery) ([]int64, error)
	CountEligible(ctx context.Context, q EligibilityQuery) (int, error)
	// ListSyncedIDs returns syncable products that already reached at least one store.
	ListSyncedIDs(ctx context.Context) ([]int64, error)
}

type OrderRepository interface {
	GetByID(ctx context.Context, id int64) (*OrderView, error)
	// Recent returns the newest orders in the given statuses.
	Recent(ctx context.Context, limit int, statuses []OrderStatus) ([]OrderView, error)
}

type CategoryRepository interface {
	ListAll(ctx context.Context) ([]Category, error)
}

type SyncStateRepository interface {
	Get(ctx context.Context, productID int64) (SyncState, error)
	MarkFull(ctx context.Context, productID int64, now time.Time) error
	MarkLight(ctx context.Context, productID int64, now time.Time) error
	CompleteSync(ctx context.Context, productID int64, kind SyncKind, startedAt time.Time, stores []string, now time.Time) error
}

// KeyValueStore is the host option store: JSON values, no cross-key atomicity.
type KeyValueStore interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, value any) error
	Delete(ctx context.Context, key string) error
}

// QueueStore persists the whole work queue as one snapshot.
type QueueStore interface {
	Load(ctx context.Context) (QueueSnapshot, error)
	Save(ctx context.Context, snap QueueSnapshot) error
}

// Integration is the external collaborator that performs the remote writes.
type Integration interface {
	ApplySync(ctx context.Context, productID int64, stores []Store, kind SyncKind) error
	SyncCategory(ctx context.Context, store Store, category Category) error
	UpdateProductCategories(ctx context.Context, store Store, productID int64, categoryIDs []int64) error
}

// RunLock keeps a single pass or drain active at a time.
type RunLock interface {
	Acquire(ctx context.Context, name string) (release func(), err error)
}

type OutboxRepository interface {
	Insert(ctx context.Context, msg OutboxMessage) error
	GetPendingBatch(ctx context.Context, maxRetry, batchSize int) ([]OutboxMessage, error)
	Save(ctx context.Context, msg OutboxMessage) error
	PurgeProcessed(ctx context.Context, before time.Time) (int64, error)
}

type OutboxMessage struct {
	ID             uuid.UUID
	Type           string
	PayloadJSON    string
	OccurredAtUtc  int64 // unix seconds
	RetryCount     int
	ProcessedAtUtc *int64
}
