package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

const orderReportTTL = 5 * time.Minute

// the report also covers on-hold orders, the sync triggers do not
var reportOrderStatuses = []domain.OrderStatus{domain.OrderCompleted, domain.OrderProcessing, domain.OrderOnHold}

type StoreSyncStatus struct {
	Synced      bool `json:"synced"`
	StoreActive bool `json:"store_active"`
}

type ReportedProduct struct {
	ID     int64                `json:"id"`
	Name   string               `json:"name"`
	Sku    string               `json:"sku"`
	Status domain.ProductStatus `json:"status"`
}

type ProductSyncReport struct {
	Product      ReportedProduct            `json:"product"`
	Stores       map[string]StoreSyncStatus `json:"stores"`
	LastSync     *time.Time                 `json:"last_sync,omitempty"`
	LastSyncType domain.SyncKind            `json:"last_sync_type,omitempty"`
}

// OrderSyncReport tells, per product of the latest orders, which selected
// stores already have it.
type OrderSyncReport struct {
	Results      []ProductSyncReport `json:"results"`
	CheckedAt    time.Time           `json:"checked_at"`
	OrderCount   int                 `json:"order_count"`
	ProductCount int                 `json:"product_count"`
}

type reportCache struct {
	mu     sync.Mutex
	report *OrderSyncReport
}

func (c *reportCache) get(now time.Time) (OrderSyncReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.report == nil || now.Sub(c.report.CheckedAt) >= orderReportTTL {
		return OrderSyncReport{}, false
	}
	return *c.report, true
}

func (c *reportCache) put(r OrderSyncReport) {
	c.mu.Lock()
	c.report = &r
	c.mu.Unlock()
}

func (c *reportCache) invalidate() {
	c.mu.Lock()
	c.report = nil
	c.mu.Unlock()
}

// reportProductIDs uses the variation when the line has one, else the product.
func reportProductIDs(orders []domain.OrderView) []int64 {
	seen := make(map[int64]struct{})
	var ids []int64
	for _, o := range orders {
		for _, l := range o.Lines {
			id := l.ProductID
			if l.VariationID != 0 {
				id = l.VariationID
			}
			if id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// OrderSyncStatus reports the sync status of the products in the latest
// orders. The report is cached for five minutes unless refresh is set.
func (s *Service) OrderSyncStatus(ctx context.Context, refresh bool) (OrderSyncReport, error) {
	now := s.now()
	if !refresh {
		if r, ok := s.reports.get(now); ok {
			return r, nil
		}
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return OrderSyncReport{}, err
	}
	registered, err := s.settings.Stores(ctx)
	if err != nil {
		return OrderSyncReport{}, err
	}
	orders, err := s.orders.Recent(ctx, RecentOrdersWindow, reportOrderStatuses)
	if err != nil {
		return OrderSyncReport{}, fmt.Errorf("recent orders: %w", err)
	}

	report := OrderSyncReport{Results: []ProductSyncReport{}, CheckedAt: now, OrderCount: len(orders)}
	for _, id := range reportProductIDs(orders) {
		p, err := s.products.GetByID(ctx, id)
		if err != nil {
			return OrderSyncReport{}, fmt.Errorf("load product %d: %w", id, err)
		}
		if p == nil {
			continue
		}
		st, err := s.states.Get(ctx, id)
		if err != nil {
			return OrderSyncReport{}, fmt.Errorf("load sync state %d: %w", id, err)
		}

		row := ProductSyncReport{
			Product:      ReportedProduct{ID: p.ID, Name: p.Name, Sku: p.Sku, Status: p.Status},
			Stores:       make(map[string]StoreSyncStatus, len(cfg.SelectedStores)),
			LastSync:     st.LastSyncAt,
			LastSyncType: st.LastSyncKind,
		}
		for _, url := range cfg.SelectedStores {
			store, known := registered[url]
			row.Stores[url] = StoreSyncStatus{Synced: st.SyncedTo(url), StoreActive: known && store.Status}
		}
		report.Results = append(report.Results, row)
	}
	report.ProductCount = len(report.Results)

	s.reports.put(report)
	return report, nil
}

type ResyncResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message"`
	SyncedTo int    `json:"synced_to"`
}

// ResyncProduct pushes price and quantity of one product to the selected
// active stores right away.
func (s *Service) ResyncProduct(ctx context.Context, productID int64) (ResyncResult, error) {
	stores, err := s.preflight(ctx)
	if isPrecondition(err) {
		return ResyncResult{Message: err.Error()}, nil
	}
	if err != nil {
		return ResyncResult{}, err
	}

	if err := s.engine.SyncOne(ctx, productID, domain.SyncPriceAndQuantity, stores); err != nil {
		s.log.Error().Err(err).Int64("product_id", productID).Msg("manual re-sync failed")
		return ResyncResult{Message: err.Error()}, nil
	}
	s.reports.invalidate()
	s.selector.InvalidateCount()

	s.log.Info().Int64("product_id", productID).
		Msgf("manual re-sync: %s (price & quantity)", s.engine.identifier(ctx, productID))
	return ResyncResult{
		Success:  true,
		Message:  "Product synced successfully",
		SyncedTo: len(stores),
	}, nil
}
