package outbox

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/abstractions"
	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

type publishFunc func(ctx context.Context, env *primitives.IntegrationEventEnvelope) error

// Dispatcher publishes pending integration commands to the broker.
type Dispatcher struct {
	repo      domain.OutboxRepository
	publish   publishFunc
	maxRetry  int
	batchSize int
	now       func() time.Time
	log       *logger.Logger
}

func NewDispatcher(
	repo domain.OutboxRepository,
	eventBus abstractions.EventBus,
	maxRetry, batchSize int,
) *Dispatcher {
	return newDispatcher(repo, func(ctx context.Context, env *primitives.IntegrationEventEnvelope) error {
		return eventBus.Publish(ctx, env)
	}, maxRetry, batchSize)
}

func newDispatcher(repo domain.OutboxRepository, publish publishFunc, maxRetry, batchSize int) *Dispatcher {
	return &Dispatcher{
		repo:      repo,
		publish:   publish,
		maxRetry:  maxRetry,
		batchSize: batchSize,
		now:       time.Now,
		log:       logger.Named("outbox"),
	}
}

func (d *Dispatcher) DispatchOnce(ctx context.Context) (int, error) {
	msgs, err := d.repo.GetPendingBatch(ctx, d.maxRetry, d.batchSize)
	if err != nil {
		return 0, err
	}

	processed := 0
	for i := range msgs {
		msg := &msgs[i]

		if !json.Valid([]byte(msg.PayloadJSON)) {
			d.log.Error().Str("type", msg.Type).Str("id", msg.ID.String()).Msg("invalid payload, not published")
			msg.RetryCount++
			d.save(ctx, *msg)
			continue
		}

		// Envelope estándar, routing key = tipo del comando
		envelope := primitives.NewIntegrationEventEnvelope(msg.Type, msg.PayloadJSON)
		envelope.SetRoutingKey(msg.Type)

		if err := d.publish(ctx, &envelope); err != nil {
			msg.RetryCount++
			d.log.Warn().Err(err).Str("type", msg.Type).Int("retry_count", msg.RetryCount).Msg("publish failed")
			if msg.RetryCount >= d.maxRetry {
				d.log.Error().Str("type", msg.Type).Str("id", msg.ID.String()).Msg("giving up on outbox message")
			}
		} else {
			now := d.now().UTC().Unix()
			msg.ProcessedAtUtc = &now
			processed++
		}
		d.save(ctx, *msg)
	}
	return processed, nil
}

func (d *Dispatcher) save(ctx context.Context, msg domain.OutboxMessage) {
	if err := d.repo.Save(ctx, msg); err != nil {
		d.log.Error().Err(err).Str("id", msg.ID.String()).Msg("failed to save outbox message")
	}
}

// Purge removes messages published longer ago than retention.
func (d *Dispatcher) Purge(ctx context.Context, retention time.Duration) (int64, error) {
	return d.repo.PurgeProcessed(ctx, d.now().Add(-retention))
}
