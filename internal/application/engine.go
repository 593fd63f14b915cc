package application

import (
	"context"
	"fmt"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

type ItemFailure struct {
	ProductID  int64  `json:"product_id"`
	Identifier string `json:"identifier"`
	Error      string `json:"error"`
}

type BatchResult struct {
	SuccessCount int           `json:"success_count"`
	ErrorCount   int           `json:"error_count"`
	Failures     []ItemFailure `json:"failures,omitempty"`
}

// Engine pushes products to the destination stores one at a time.
type Engine struct {
	products    domain.ProductRepository
	states      domain.SyncStateRepository
	integration domain.Integration
	now         func() time.Time
	sleep       func(time.Duration)
	log         *logger.Logger
}

func NewEngine(
	products domain.ProductRepository,
	states domain.SyncStateRepository,
	integration domain.Integration,
	log *logger.Logger,
) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	return &Engine{
		products:    products,
		states:      states,
		integration: integration,
		now:         time.Now,
		sleep:       time.Sleep,
		log:         log,
	}
}

// WithClock swaps the clock and sleeper, used by tests.
func (e *Engine) WithClock(now func() time.Time, sleep func(time.Duration)) *Engine {
	if now != nil {
		e.now = now
	}
	if sleep != nil {
		e.sleep = sleep
	}
	return e
}

// SyncOne applies kind for one product to stores and records the outcome.
func (e *Engine) SyncOne(ctx context.Context, id int64, kind domain.SyncKind, stores []domain.Store) error {
	p, err := e.products.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load product %d: %w", id, err)
	}
	if p == nil {
		return fmt.Errorf("product %d: %w", id, domain.ErrProductNotFound)
	}

	started := e.now()
	if err := e.integration.ApplySync(ctx, id, stores, kind); err != nil {
		e.log.Error().Err(err).
			Int64("product_id", id).
			Str("sync_kind", string(kind)).
			Msgf("sync failed for product %s", p.Identifier())
		return err
	}

	if err := e.states.CompleteSync(ctx, id, kind, started, domain.StoreURLs(stores), e.now()); err != nil {
		return fmt.Errorf("record sync for product %d: %w", id, err)
	}
	e.log.Debug().Int64("product_id", id).Str("sync_kind", string(kind)).Msgf("synced product %s", p.Identifier())
	return nil
}

// RunBatch syncs ids in order, pausing delay between items. A failure on one
// item never stops the batch.
func (e *Engine) RunBatch(ctx context.Context, ids []int64, kind domain.SyncKind, stores []domain.Store, delay time.Duration) BatchResult {
	var res BatchResult
	for i, id := range ids {
		if ctx.Err() != nil {
			break
		}
		if i > 0 && delay > 0 {
			e.sleep(delay)
		}

		if err := e.SyncOne(ctx, id, kind, stores); err != nil {
			res.ErrorCount++
			res.Failures = append(res.Failures, ItemFailure{
				ProductID:  id,
				Identifier: e.identifier(ctx, id),
				Error:      err.Error(),
			})
			continue
		}
		res.SuccessCount++
	}
	return res
}

func (e *Engine) identifier(ctx context.Context, id int64) string {
	p, err := e.products.GetByID(ctx, id)
	if err != nil || p == nil {
		return domain.ProductIdentifier(id, "")
	}
	return p.Identifier()
}
