// Package memory implements the catalog ports in process memory. Used by the
// CLI in memory mode and as the fake behind the application tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

type Catalog struct {
	mu         sync.RWMutex
	products   map[int64]domain.ProductView
	states     map[int64]domain.SyncState
	orders     map[int64]domain.OrderView
	categories map[int64]domain.Category
}

func NewCatalog() *Catalog {
	return &Catalog{
		products:   make(map[int64]domain.ProductView),
		states:     make(map[int64]domain.SyncState),
		orders:     make(map[int64]domain.OrderView),
		categories: make(map[int64]domain.Category),
	}
}

func (c *Catalog) PutProduct(p domain.ProductView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.products[p.ID] = p
}

func (c *Catalog) RemoveProduct(id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.products, id)
}

func (c *Catalog) PutState(st domain.SyncState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[st.ProductID] = st
}

func (c *Catalog) PutOrder(o domain.OrderView) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.orders[o.ID] = o
}

func (c *Catalog) PutCategory(cat domain.Category) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.categories[cat.ID] = cat
}

// Products

func (c *Catalog) GetByID(_ context.Context, id int64) (*domain.ProductView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (c *Catalog) FindBySku(_ context.Context, sku string) (*domain.ProductView, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var best *domain.ProductView
	for _, p := range c.products {
		if p.Sku != sku {
			continue
		}
		p := p
		if best == nil || skuRank(p) < skuRank(*best) || (skuRank(p) == skuRank(*best) && p.ID < best.ID) {
			best = &p
		}
	}
	return best, nil
}

// skuRank orders shared-sku matches like the Postgres adapter: published first.
func skuRank(p domain.ProductView) int {
	if p.Status == domain.StatusPublish {
		return 0
	}
	return 1
}

func (c *Catalog) FindEligible(_ context.Context, q domain.EligibilityQuery) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	matches := c.eligibleLocked(q)
	ids := make([]int64, 0, len(matches))
	for _, p := range matches {
		if q.Limit > 0 && len(ids) == q.Limit {
			break
		}
		ids = append(ids, p.ID)
	}
	return ids, nil
}

func (c *Catalog) CountEligible(_ context.Context, q domain.EligibilityQuery) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.eligibleLocked(q)), nil
}

func (c *Catalog) eligibleLocked(q domain.EligibilityQuery) []domain.ProductView {
	var out []domain.ProductView
	for _, p := range c.products {
		st := c.stateLocked(p.ID)
		if q.Matches(p, st) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ModifiedAt.Equal(out[j].ModifiedAt) {
			return out[i].ModifiedAt.After(out[j].ModifiedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (c *Catalog) ListSyncedIDs(_ context.Context) ([]int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var ids []int64
	for id, p := range c.products {
		if !p.Status.Syncable() {
			continue
		}
		if len(c.states[id].SyncedStores) > 0 {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// Sync state

func (c *Catalog) stateLocked(id int64) domain.SyncState {
	st, ok := c.states[id]
	if !ok {
		return domain.SyncState{ProductID: id}
	}
	st.SyncedStores = append([]string(nil), st.SyncedStores...)
	return st
}

func (c *Catalog) Get(_ context.Context, productID int64) (domain.SyncState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.stateLocked(productID), nil
}

func (c *Catalog) MarkFull(_ context.Context, productID int64, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stateLocked(productID)
	st.MarkFull(now)
	c.states[productID] = st
	return nil
}

func (c *Catalog) MarkLight(_ context.Context, productID int64, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stateLocked(productID)
	st.MarkLight(now)
	c.states[productID] = st
	return nil
}

func (c *Catalog) CompleteSync(_ context.Context, productID int64, kind domain.SyncKind, startedAt time.Time, stores []string, now time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := c.stateLocked(productID)
	st.CompleteSync(kind, startedAt, stores, now)
	c.states[productID] = st
	return nil
}

// Orders and categories are exposed through small adapters so the same
// Catalog can satisfy several ports whose method names overlap.

func (c *Catalog) Orders() *Orders { return &Orders{c: c} }

func (c *Catalog) Categories() *Categories { return &Categories{c: c} }

type Orders struct{ c *Catalog }

func (o *Orders) GetByID(_ context.Context, id int64) (*domain.OrderView, error) {
	o.c.mu.RLock()
	defer o.c.mu.RUnlock()
	ord, ok := o.c.orders[id]
	if !ok {
		return nil, nil
	}
	return &ord, nil
}

func (o *Orders) Recent(_ context.Context, limit int, statuses []domain.OrderStatus) ([]domain.OrderView, error) {
	o.c.mu.RLock()
	defer o.c.mu.RUnlock()
	var out []domain.OrderView
	for _, ord := range o.c.orders {
		if statusIn(ord.Status, statuses) {
			out = append(out, ord)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func statusIn(s domain.OrderStatus, xs []domain.OrderStatus) bool {
	if len(xs) == 0 {
		return true
	}
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}

type Categories struct{ c *Catalog }

func (cs *Categories) ListAll(_ context.Context) ([]domain.Category, error) {
	cs.c.mu.RLock()
	defer cs.c.mu.RUnlock()
	out := make([]domain.Category, 0, len(cs.c.categories))
	for _, cat := range cs.c.categories {
		out = append(out, cat)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
