package domain

import (
	"time"

	"github.com/rodolfodevapp/eventshop-messaging-go/core/primitives"
)

// =========== Payloads de eventos entrantes ===========

// OrderStatusChanged (desde orders.events)
type OrderStatusChangedPayload struct {
	OrderID   int64  `json:"orderId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
}

// ProductCreated / ProductUpdated (desde catalog.events)
type ProductChangedPayload struct {
	ProductID int64  `json:"productId"`
	Sku       string `json:"sku"`
	Status    string `json:"status"`
}

type ProductStatusChangedPayload struct {
	ProductID int64  `json:"productId"`
	OldStatus string `json:"oldStatus"`
	NewStatus string `json:"newStatus"`
}

type StockChangedPayload struct {
	ProductID     int64  `json:"productId"`
	Sku           string `json:"sku"`
	StockQuantity int    `json:"stockQuantity"`
}

// =========== Comandos salientes hacia la integracion ===========

type ProductSyncRequestedEvent struct {
	primitives.BaseEvent
	ProductID      int64     `json:"productId"`
	StoreURLs      []string  `json:"storeUrls"`
	SyncKind       SyncKind  `json:"syncKind"`
	RequestedAtUtc time.Time `json:"requestedAtUtc"`
}

func NewProductSyncRequestedEvent(productID int64, storeURLs []string, kind SyncKind) *ProductSyncRequestedEvent {
	ev := &ProductSyncRequestedEvent{
		BaseEvent:      primitives.NewBaseEvent(),
		ProductID:      productID,
		StoreURLs:      storeURLs,
		SyncKind:       kind,
		RequestedAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("ProductSyncRequested")
	return ev
}

type CategorySyncRequestedEvent struct {
	primitives.BaseEvent
	StoreURL           string    `json:"storeUrl"`
	CategoryID         int64     `json:"categoryId"`
	CategoryName       string    `json:"categoryName"`
	ExcludeDescription bool      `json:"excludeDescription"`
	RequestedAtUtc     time.Time `json:"requestedAtUtc"`
}

func NewCategorySyncRequestedEvent(store Store, c Category) *CategorySyncRequestedEvent {
	ev := &CategorySyncRequestedEvent{
		BaseEvent:          primitives.NewBaseEvent(),
		StoreURL:           store.URL,
		CategoryID:         c.ID,
		CategoryName:       c.Name,
		ExcludeDescription: store.ExcludeDescription,
		RequestedAtUtc:     time.Now().UTC(),
	}
	ev.SetRoutingKey("CategorySyncRequested")
	return ev
}

// Solo toca las categorias asignadas, ningun otro campo del producto.
type ProductCategoriesUpdateRequestedEvent struct {
	primitives.BaseEvent
	StoreURL       string    `json:"storeUrl"`
	ProductID      int64     `json:"productId"`
	CategoryIDs    []int64   `json:"categoryIds"`
	RequestedAtUtc time.Time `json:"requestedAtUtc"`
}

func NewProductCategoriesUpdateRequestedEvent(storeURL string, productID int64, categoryIDs []int64) *ProductCategoriesUpdateRequestedEvent {
	ev := &ProductCategoriesUpdateRequestedEvent{
		BaseEvent:      primitives.NewBaseEvent(),
		StoreURL:       storeURL,
		ProductID:      productID,
		CategoryIDs:    categoryIDs,
		RequestedAtUtc: time.Now().UTC(),
	}
	ev.SetRoutingKey("ProductCategoriesUpdateRequested")
	return ev
}

// =========== Respuesta del worker de integracion ===========

// IntegrationCommandResult (desde storesync.results). CommandID es el id del
// mensaje del comando.
type IntegrationCommandResultPayload struct {
	CommandID string `json:"commandId"`
	Success   bool   `json:"success"`
	Error     string `json:"error"`
}
