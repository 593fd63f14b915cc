package integration

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

const (
	defaultReplyTimeout = 60 * time.Second
	replyPoll           = 250 * time.Millisecond
	replyKeyPrefix      = "sync_reply_"
)

type result = domain.IntegrationCommandResultPayload

// ReplyBook matches worker replies with the commands waiting for them.
// A reply for a command this replica is not waiting on goes to the KV
// store, where the replica that sent it picks it up.
type ReplyBook struct {
	kv      domain.KeyValueStore
	timeout time.Duration
	poll    time.Duration

	mu      sync.Mutex
	waiting map[string]chan result
}

func NewReplyBook(kv domain.KeyValueStore, timeout time.Duration) *ReplyBook {
	if timeout <= 0 {
		timeout = defaultReplyTimeout
	}
	return &ReplyBook{
		kv:      kv,
		timeout: timeout,
		poll:    replyPoll,
		waiting: make(map[string]chan result),
	}
}

func replyKey(id string) string { return replyKeyPrefix + id }

// expect registers id before the command leaves, so a fast reply is not lost.
func (b *ReplyBook) expect(id string) (<-chan result, func()) {
	ch := make(chan result, 1)
	b.mu.Lock()
	b.waiting[id] = ch
	b.mu.Unlock()
	return ch, func() {
		b.mu.Lock()
		delete(b.waiting, id)
		b.mu.Unlock()
	}
}

// Resolve delivers a worker reply.
func (b *ReplyBook) Resolve(ctx context.Context, res result) error {
	b.mu.Lock()
	ch, ok := b.waiting[res.CommandID]
	if ok {
		delete(b.waiting, res.CommandID)
	}
	b.mu.Unlock()

	if ok {
		ch <- res
		return nil
	}
	if b.kv == nil {
		return nil
	}
	return b.kv.Set(ctx, replyKey(res.CommandID), res)
}

func (b *ReplyBook) wait(ctx context.Context, id string, ch <-chan result) error {
	timer := time.NewTimer(b.timeout)
	defer timer.Stop()
	ticker := time.NewTicker(b.poll)
	defer ticker.Stop()

	for {
		select {
		case res := <-ch:
			return replyErr(res)
		case <-ticker.C:
			if b.kv == nil {
				continue
			}
			var res result
			found, err := b.kv.Get(ctx, replyKey(id), &res)
			if err != nil || !found {
				continue
			}
			_ = b.kv.Delete(ctx, replyKey(id))
			return replyErr(res)
		case <-timer.C:
			return fmt.Errorf("%w after %s", domain.ErrSyncTimeout, b.timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func replyErr(res result) error {
	if res.Success {
		return nil
	}
	if res.Error == "" {
		return domain.ErrSyncRejected
	}
	return fmt.Errorf("%w: %s", domain.ErrSyncRejected, res.Error)
}

// ResultHandler consumes IntegrationCommandResult events.
type ResultHandler struct {
	book *ReplyBook
	log  *logger.Logger
}

func NewResultHandler(book *ReplyBook) *ResultHandler {
	return &ResultHandler{book: book, log: logger.Named("result-handler")}
}

func (h *ResultHandler) Handle(ctx context.Context, ev primitives.Event) error {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		h.log.Warn().Msgf("invalid event type %T", ev)
		return nil
	}
	if env.Type != "IntegrationCommandResult" {
		return nil
	}

	var payload result
	if err := json.Unmarshal([]byte(env.PayloadJSON), &payload); err != nil {
		h.log.Warn().Err(err).Msg("failed to unmarshal payload")
		return nil
	}
	if payload.CommandID == "" {
		h.log.Warn().Msg("missing commandId")
		return nil
	}
	return h.book.Resolve(ctx, payload)
}
