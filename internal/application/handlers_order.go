package application

import (
	"context"
	"encoding/json"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

type EventHandler interface {
	Handle(ctx context.Context, ev primitives.Event) error
}

// OrderTrigger is the part of Service the order handler needs.
type OrderTrigger interface {
	OnOrderStatusChanged(ctx context.Context, orderID int64, status domain.OrderStatus) (int, error)
}

// OrderStatusChangedHandler

type OrderStatusChangedHandler struct {
	trigger OrderTrigger
	log     *logger.Logger
}

func NewOrderStatusChangedHandler(t OrderTrigger) *OrderStatusChangedHandler {
	return &OrderStatusChangedHandler{trigger: t, log: logger.Named("order-handler")}
}

func (h *OrderStatusChangedHandler) Handle(ctx context.Context, ev primitives.Event) error {
	env, ok := ev.(*primitives.IntegrationEventEnvelope)
	if !ok {
		h.log.Warn().Msgf("invalid event type %T", ev)
		return nil
	}
	if env.Type != "OrderStatusChanged" {
		return nil
	}

	var payload domain.OrderStatusChangedPayload
	if err := json.Unmarshal([]byte(env.PayloadJSON), &payload); err != nil {
		h.log.Warn().Err(err).Msg("failed to unmarshal payload")
		return nil
	}
	if payload.OrderID <= 0 {
		h.log.Warn().Msg("missing orderId")
		return nil
	}

	added, err := h.trigger.OnOrderStatusChanged(ctx, payload.OrderID, domain.OrderStatus(payload.NewStatus))
	if err != nil {
		return err
	}
	if added > 0 {
		h.log.Info().Int64("order_id", payload.OrderID).Str("status", payload.NewStatus).
			Int("added", added).Msg("order products queued")
	}
	return nil
}
