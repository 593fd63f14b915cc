package integration

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/kv"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/memory"
)

// worker answers every command it has not seen yet, the way the REST worker
// does once the dispatcher published it.
type worker struct {
	t       *testing.T
	box     *memory.Outbox
	book    *ReplyBook
	answer  func(msgType string) (result, bool)
	seen    map[string]bool
	handled []string
}

func (w *worker) kick() {
	for _, m := range w.box.All() {
		var cmd struct {
			ID string `json:"id"`
		}
		require.NoError(w.t, json.Unmarshal([]byte(m.PayloadJSON), &cmd))
		require.NotEmpty(w.t, cmd.ID)
		if w.seen[cmd.ID] {
			continue
		}
		w.seen[cmd.ID] = true
		w.handled = append(w.handled, m.Type)

		res, ok := w.answer(m.Type)
		if !ok {
			continue
		}
		res.CommandID = cmd.ID
		require.NoError(w.t, w.book.Resolve(context.Background(), res))
	}
}

func newHarness(t *testing.T, answer func(string) (result, bool)) (*OutboxIntegration, *worker) {
	t.Helper()
	box := memory.NewOutbox()
	book := NewReplyBook(kv.NewMemoryStore(), 200*time.Millisecond)
	book.poll = 10 * time.Millisecond
	w := &worker{t: t, box: box, book: book, answer: answer, seen: map[string]bool{}}
	return NewOutboxIntegration(application.NewOutboxWriter(box), book, w.kick), w
}

func succeed(string) (result, bool) { return result{Success: true}, true }

func TestOutboxIntegration_WritesCommands(t *testing.T) {
	ctx := context.Background()
	in, w := newHarness(t, succeed)

	store := domain.Store{URL: "https://a.example.com", Status: true, ExcludeDescription: true}
	require.NoError(t, in.ApplySync(ctx, 42, []domain.Store{store}, domain.SyncQuantityOnly))
	require.NoError(t, in.SyncCategory(ctx, store, domain.Category{ID: 3, Name: "Shoes"}))
	require.NoError(t, in.UpdateProductCategories(ctx, store, 42, []int64{3}))

	msgs := w.box.All()
	require.Len(t, msgs, 3)

	byType := map[string]map[string]any{}
	for _, m := range msgs {
		var payload map[string]any
		require.NoError(t, json.Unmarshal([]byte(m.PayloadJSON), &payload))
		byType[m.Type] = payload
	}

	sync := byType["ProductSyncRequested"]
	require.NotNil(t, sync)
	assert.EqualValues(t, 42, sync["productId"])
	assert.Equal(t, "quantity", sync["syncKind"])
	assert.Equal(t, []any{"https://a.example.com"}, sync["storeUrls"])

	cat := byType["CategorySyncRequested"]
	require.NotNil(t, cat)
	assert.Equal(t, "Shoes", cat["categoryName"])
	assert.Equal(t, true, cat["excludeDescription"])

	upd := byType["ProductCategoriesUpdateRequested"]
	require.NotNil(t, upd)
	assert.Equal(t, []any{float64(3)}, upd["categoryIds"])
}

func TestOutboxIntegration_RequiresStores(t *testing.T) {
	in, w := newHarness(t, succeed)
	err := in.ApplySync(context.Background(), 1, nil, domain.SyncFull)
	assert.ErrorIs(t, err, domain.ErrNoStoresSelected)
	assert.Empty(t, w.handled)
}

func TestOutboxIntegration_WorkerFailureIsReturned(t *testing.T) {
	in, _ := newHarness(t, func(string) (result, bool) {
		return result{Success: false, Error: "401 invalid consumer key"}, true
	})
	err := in.ApplySync(context.Background(), 7, []domain.Store{{URL: "https://a.example.com"}}, domain.SyncFull)
	require.ErrorIs(t, err, domain.ErrSyncRejected)
	assert.ErrorContains(t, err, "401 invalid consumer key")
	assert.ErrorContains(t, err, "product sync 7")
}

func TestOutboxIntegration_NoReplyTimesOut(t *testing.T) {
	in, w := newHarness(t, func(string) (result, bool) { return result{}, false })
	err := in.SyncCategory(context.Background(), domain.Store{URL: "https://a.example.com"}, domain.Category{ID: 1})
	assert.ErrorIs(t, err, domain.ErrSyncTimeout)
	assert.Equal(t, []string{"CategorySyncRequested"}, w.handled)
}

func TestOutboxIntegration_ContextCancelStopsWaiting(t *testing.T) {
	in, _ := newHarness(t, func(string) (result, bool) { return result{}, false })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := in.ApplySync(ctx, 1, []domain.Store{{URL: "https://a.example.com"}}, domain.SyncFull)
	assert.ErrorIs(t, err, context.Canceled)
}
