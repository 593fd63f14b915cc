package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// Outbox keeps outbox messages in memory for dev mode and tests.
type Outbox struct {
	mu   sync.Mutex
	msgs map[uuid.UUID]domain.OutboxMessage
}

func NewOutbox() *Outbox {
	return &Outbox{msgs: make(map[uuid.UUID]domain.OutboxMessage)}
}

func (o *Outbox) Insert(_ context.Context, msg domain.OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if msg.ID == uuid.Nil {
		msg.ID = uuid.New()
	}
	o.msgs[msg.ID] = msg
	return nil
}

func (o *Outbox) GetPendingBatch(_ context.Context, maxRetry, batchSize int) ([]domain.OutboxMessage, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []domain.OutboxMessage
	for _, m := range o.msgs {
		if m.ProcessedAtUtc == nil && m.RetryCount < maxRetry {
			out = append(out, m)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredAtUtc != out[j].OccurredAtUtc {
			return out[i].OccurredAtUtc < out[j].OccurredAtUtc
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	if batchSize > 0 && len(out) > batchSize {
		out = out[:batchSize]
	}
	return out, nil
}

func (o *Outbox) Save(_ context.Context, msg domain.OutboxMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs[msg.ID] = msg
	return nil
}

func (o *Outbox) PurgeProcessed(_ context.Context, before time.Time) (int64, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	var n int64
	for id, m := range o.msgs {
		if m.ProcessedAtUtc != nil && *m.ProcessedAtUtc < before.Unix() {
			delete(o.msgs, id)
			n++
		}
	}
	return n, nil
}

// All returns every message, oldest first.
func (o *Outbox) All() []domain.OutboxMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]domain.OutboxMessage, 0, len(o.msgs))
	for _, m := range o.msgs {
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAtUtc < out[j].OccurredAtUtc })
	return out
}
