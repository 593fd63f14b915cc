package integration

import (
	"context"
	"testing"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/kv"
)

func TestReplyBook_ReplyFromOtherReplicaGoesThroughKV(t *testing.T) {
	ctx := context.Background()
	store := kv.NewMemoryStore()
	sender := NewReplyBook(store, time.Second)
	sender.poll = 10 * time.Millisecond
	other := NewReplyBook(store, time.Second)

	reply, done := sender.expect("cmd-1")
	defer done()

	// la otra replica recibe la respuesta y no tiene a nadie esperando
	require.NoError(t, other.Resolve(ctx, result{CommandID: "cmd-1", Success: true}))

	require.NoError(t, sender.wait(ctx, "cmd-1", reply))
	found, err := store.Get(ctx, replyKey("cmd-1"), &result{})
	require.NoError(t, err)
	assert.False(t, found)
}

func TestReplyBook_RejectionWithoutMessage(t *testing.T) {
	book := NewReplyBook(nil, time.Second)
	reply, done := book.expect("cmd-2")
	defer done()

	require.NoError(t, book.Resolve(context.Background(), result{CommandID: "cmd-2"}))
	assert.Equal(t, domain.ErrSyncRejected, book.wait(context.Background(), "cmd-2", reply))
}

func TestReplyBook_DefaultTimeout(t *testing.T) {
	assert.Equal(t, 60*time.Second, NewReplyBook(nil, 0).timeout)
}

func TestResultHandler(t *testing.T) {
	ctx := context.Background()
	book := NewReplyBook(nil, time.Second)
	h := NewResultHandler(book)
	reply, done := book.expect("cmd-3")
	defer done()

	ignored := primitives.NewIntegrationEventEnvelope("StockChanged", `{"commandId":"cmd-3","success":true}`)
	require.NoError(t, h.Handle(ctx, &ignored))
	bad := primitives.NewIntegrationEventEnvelope("IntegrationCommandResult", `{"success":`)
	require.NoError(t, h.Handle(ctx, &bad))
	select {
	case <-reply:
		t.Fatal("reply resolved by an unrelated event")
	default:
	}

	env := primitives.NewIntegrationEventEnvelope("IntegrationCommandResult",
		`{"commandId":"cmd-3","success":false,"error":"store unreachable"}`)
	require.NoError(t, h.Handle(ctx, &env))

	err := book.wait(ctx, "cmd-3", reply)
	require.ErrorIs(t, err, domain.ErrSyncRejected)
	assert.ErrorContains(t, err, "store unreachable")
}
