package messaging

import (
	"context"

	messaging "github.com/rodolfodevapp/eventshop-messaging-go/rabbitmq"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

const (
	OrdersExchange    = "orders.events"
	CatalogExchange   = "catalog.events"
	StoreSyncExchange = "storesync.events"
	ResultsExchange   = "storesync.results"
)

type EventBuses struct {
	OrdersConsumer  *messaging.RabbitMqEventBus
	CatalogConsumer *messaging.RabbitMqEventBus
	ResultsConsumer *messaging.RabbitMqEventBus
	Producer        *messaging.RabbitMqEventBus
}

// Stop closes every bus.
func (b EventBuses) Stop() {
	for _, bus := range []*messaging.RabbitMqEventBus{b.OrdersConsumer, b.CatalogConsumer, b.ResultsConsumer, b.Producer} {
		if err := bus.Stop(); err != nil {
			logger.Named("messaging").Warn().Err(err).Msg("error stopping event bus")
		}
	}
}

func options(uri, exchange, queuePrefix string) messaging.RabbitMqOptions {
	return messaging.RabbitMqOptions{
		URI:          uri,
		ExchangeName: exchange,
		QueuePrefix:  queuePrefix,
		Prefetch:     32,
		RetryDelayMs: 30000,
	}
}

// Consumers de orders.events, catalog.events y storesync.results + producer para storesync.events
func NewEventBuses(rabbitUri string) EventBuses {
	return EventBuses{
		OrdersConsumer:  messaging.NewRabbitMqEventBus(options(rabbitUri, OrdersExchange, "storesync.orders-events.v1"), nil, nil),
		CatalogConsumer: messaging.NewRabbitMqEventBus(options(rabbitUri, CatalogExchange, "storesync.catalog-events.v1"), nil, nil),
		ResultsConsumer: messaging.NewRabbitMqEventBus(options(rabbitUri, ResultsExchange, "storesync.results.v1"), nil, nil),
		Producer:        messaging.NewRabbitMqEventBus(options(rabbitUri, StoreSyncExchange, "storesync.dispatcher.v1"), nil, nil),
	}
}

type CatalogHandlers struct {
	ProductChanged       application.EventHandler
	ProductStatusChanged application.EventHandler
	StockChanged         application.EventHandler
}

func RegisterOrderSubscriptions(
	ctx context.Context,
	bus *messaging.RabbitMqEventBus,
	orderStatusChanged application.EventHandler,
) error {
	bus.Subscribe("OrderStatusChanged", orderStatusChanged)

	if err := bus.StartConsumers(ctx); err != nil {
		logger.Named("messaging").Error().Err(err).Msg("error starting orders consumers")
		return err
	}
	return nil
}

func RegisterCatalogSubscriptions(
	ctx context.Context,
	bus *messaging.RabbitMqEventBus,
	h CatalogHandlers,
) error {
	bus.Subscribe("ProductCreated", h.ProductChanged)
	bus.Subscribe("ProductUpdated", h.ProductChanged)
	bus.Subscribe("ProductStatusChanged", h.ProductStatusChanged)
	bus.Subscribe("StockChanged", h.StockChanged)

	if err := bus.StartConsumers(ctx); err != nil {
		logger.Named("messaging").Error().Err(err).Msg("error starting catalog consumers")
		return err
	}
	return nil
}

// RegisterResultSubscriptions consumes the worker replies to the commands.
func RegisterResultSubscriptions(
	ctx context.Context,
	bus *messaging.RabbitMqEventBus,
	commandResult application.EventHandler,
) error {
	bus.Subscribe("IntegrationCommandResult", commandResult)

	if err := bus.StartConsumers(ctx); err != nil {
		logger.Named("messaging").Error().Err(err).Msg("error starting results consumers")
		return err
	}
	return nil
}
