package application

import (
	"context"
	"encoding/json"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

// CatalogHooks is the part of Service the catalog handlers need.
type CatalogHooks interface {
	MarkProductChanged(ctx context.Context, productID int64) error
	MarkStockChanged(ctx context.Context, productID int64) error
	OnProductStatusTransition(ctx context.Context, productID int64, from, to domain.ProductStatus) error
}

func decodeEnvelope(log *logger.Logger, ev primitives.Event, dst any, types ...string) bool {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		log.Warn().Msgf("invalid event type %T", ev)
		return false
	}
	match := false
	for _, t := range types {
		if env.Type == t {
			match = true
			break
		}
	}
	if !match {
		return false
	}
	if err := json.Unmarshal([]byte(env.PayloadJSON), dst); err != nil {
		log.Warn().Err(err).Str("type", env.Type).Msg("failed to unmarshal payload")
		return false
	}
	return true
}

// ProductChangedHandler handles ProductCreated and ProductUpdated.
type ProductChangedHandler struct {
	hooks CatalogHooks
	log   *logger.Logger
}

func NewProductChangedHandler(h CatalogHooks) *ProductChangedHandler {
	return &ProductChangedHandler{hooks: h, log: logger.Named("catalog-handler")}
}

func (h *ProductChangedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.ProductChangedPayload
	if !decodeEnvelope(h.log, ev, &payload, "ProductCreated", "ProductUpdated") {
		return nil
	}
	if payload.ProductID <= 0 {
		h.log.Warn().Str("sku", payload.Sku).Msg("missing productId")
		return nil
	}
	return h.hooks.MarkProductChanged(ctx, payload.ProductID)
}

type ProductStatusChangedHandler struct {
	hooks CatalogHooks
	log   *logger.Logger
}

func NewProductStatusChangedHandler(h CatalogHooks) *ProductStatusChangedHandler {
	return &ProductStatusChangedHandler{hooks: h, log: logger.Named("catalog-handler")}
}

func (h *ProductStatusChangedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.ProductStatusChangedPayload
	if !decodeEnvelope(h.log, ev, &payload, "ProductStatusChanged") {
		return nil
	}
	if payload.ProductID <= 0 {
		return nil
	}
	return h.hooks.OnProductStatusTransition(ctx, payload.ProductID,
		domain.ProductStatus(payload.OldStatus), domain.ProductStatus(payload.NewStatus))
}

type StockChangedHandler struct {
	hooks CatalogHooks
	log   *logger.Logger
}

func NewStockChangedHandler(h CatalogHooks) *StockChangedHandler {
	return &StockChangedHandler{hooks: h, log: logger.Named("catalog-handler")}
}

func (h *StockChangedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	var payload domain.StockChangedPayload
	if !decodeEnvelope(h.log, ev, &payload, "StockChanged") {
		return nil
	}
	if payload.ProductID <= 0 {
		h.log.Warn().Str("sku", payload.Sku).Msg("missing productId")
		return nil
	}
	return h.hooks.MarkStockChanged(ctx, payload.ProductID)
}
