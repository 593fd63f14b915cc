package domain

import (
	"fmt"
	"time"
)

type ProductStatus string

const (
	StatusPublish ProductStatus = "publish"
	StatusPending ProductStatus = "pending"
	StatusDraft   ProductStatus = "draft"
	StatusPrivate ProductStatus = "private"
	StatusTrash   ProductStatus = "trash"
)

// SyncableStatuses are mirrored 1:1 to the destination catalogs.
var SyncableStatuses = []ProductStatus{StatusPublish, StatusPending}

func (s ProductStatus) Syncable() bool {
	return s == StatusPublish || s == StatusPending
}

// ProductView es la vista de solo lectura de un producto del catalogo origen.
type ProductView struct {
	ID          int64
	ParentID    int64
	Sku         string
	Name        string
	Status      ProductStatus
	CategoryIDs []int64
	TagIDs      []int64
	ModifiedAt  time.Time
}

// Identifier prefers the SKU, which is what operators search the logs for.
func (p ProductView) Identifier() string {
	return ProductIdentifier(p.ID, p.Sku)
}

func ProductIdentifier(id int64, sku string) string {
	if sku != "" {
		return "SKU: " + sku
	}
	return fmt.Sprintf("ID: %d", id)
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderProcessing OrderStatus = "processing"
	OrderOnHold     OrderStatus = "on-hold"
	OrderCompleted  OrderStatus = "completed"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
)

// Qualifies reports whether moving into this status should push stock out.
func (s OrderStatus) Qualifies() bool {
	return s == OrderProcessing || s == OrderCompleted
}

type OrderLine struct {
	ProductID   int64
	VariationID int64
}

type OrderView struct {
	ID        int64
	Status    OrderStatus
	CreatedAt time.Time
	Lines     []OrderLine
}

// ProductIDs returns product and variation ids of every line, first-seen order, unique.
func (o OrderView) ProductIDs() []int64 {
	return CollectOrderProducts([]OrderView{o})
}

func CollectOrderProducts(orders []OrderView) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	add := func(id int64) {
		if id == 0 {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	for _, o := range orders {
		for _, l := range o.Lines {
			add(l.ProductID)
			add(l.VariationID)
		}
	}
	return ids
}

type Category struct {
	ID       int64
	Name     string
	ParentID int64
}
