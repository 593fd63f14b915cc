// Package integration turns sync requests into commands for the REST
// integration worker, delivered through the outbox, and waits for the
// worker's reply.
package integration

import (
	"context"
	"fmt"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// OutboxIntegration writes each command to the outbox and blocks until the
// worker reports the outcome, so a command only counts as done once it was
// applied on the destination.
type OutboxIntegration struct {
	outbox  application.OutboxWriter
	replies *ReplyBook
	kick    func()
}

// kick, when set, asks the dispatcher to publish right away instead of on
// its next tick.
func NewOutboxIntegration(w application.OutboxWriter, replies *ReplyBook, kick func()) *OutboxIntegration {
	return &OutboxIntegration{outbox: w, replies: replies, kick: kick}
}

var _ domain.Integration = (*OutboxIntegration)(nil)

func (i *OutboxIntegration) ApplySync(ctx context.Context, productID int64, stores []domain.Store, kind domain.SyncKind) error {
	if len(stores) == 0 {
		return domain.ErrNoStoresSelected
	}
	ev := domain.NewProductSyncRequestedEvent(productID, domain.StoreURLs(stores), kind)
	return i.send(ctx, ev, fmt.Sprintf("product sync %d", productID))
}

func (i *OutboxIntegration) SyncCategory(ctx context.Context, store domain.Store, c domain.Category) error {
	return i.send(ctx, domain.NewCategorySyncRequestedEvent(store, c), fmt.Sprintf("category sync %d", c.ID))
}

func (i *OutboxIntegration) UpdateProductCategories(ctx context.Context, store domain.Store, productID int64, categoryIDs []int64) error {
	ev := domain.NewProductCategoriesUpdateRequestedEvent(store.URL, productID, categoryIDs)
	return i.send(ctx, ev, fmt.Sprintf("category update %d", productID))
}

func (i *OutboxIntegration) send(ctx context.Context, ev primitives.Event, what string) error {
	id := ev.GetMessage().ID.String()
	reply, done := i.replies.expect(id)
	defer done()

	if err := i.outbox.Enqueue(ctx, ev); err != nil {
		return fmt.Errorf("enqueue %s: %w", what, err)
	}
	if i.kick != nil {
		i.kick()
	}
	if err := i.replies.wait(ctx, id, reply); err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	return nil
}
