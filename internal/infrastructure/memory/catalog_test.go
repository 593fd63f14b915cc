package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

func TestCatalog_FindEligibleOrderAndLimit(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 5; i++ {
		c.PutProduct(domain.ProductView{ID: i, Status: domain.StatusPublish, ModifiedAt: base.Add(time.Duration(i) * time.Hour)})
	}
	c.PutProduct(domain.ProductView{ID: 9, Status: domain.StatusDraft, ModifiedAt: base})

	ids, err := c.FindEligible(ctx, domain.EligibilityQuery{Kind: domain.SyncFull, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 4, 3}, ids)

	n, err := c.CountEligible(ctx, domain.EligibilityQuery{Kind: domain.SyncFull})
	require.NoError(t, err)
	assert.Equal(t, 5, n)
}

func TestCatalog_StateLifecycle(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	now := time.Now()

	st, err := c.Get(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), st.ProductID)
	assert.True(t, st.NeverSynced())

	require.NoError(t, c.MarkLight(ctx, 3, now))
	require.NoError(t, c.CompleteSync(ctx, 3, domain.SyncQuantityOnly, now.Add(time.Second), []string{"s1"}, now.Add(2*time.Second)))

	st, _ = c.Get(ctx, 3)
	assert.Equal(t, domain.NeedNone, st.Need)
	assert.Equal(t, domain.SyncQuantityOnly, st.LastSyncKind)
	assert.Equal(t, []string{"s1"}, st.SyncedStores)
}

func TestCatalog_ListSyncedIDs(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	c.PutProduct(domain.ProductView{ID: 1, Status: domain.StatusPublish})
	c.PutProduct(domain.ProductView{ID: 2, Status: domain.StatusPending})
	c.PutProduct(domain.ProductView{ID: 3, Status: domain.StatusTrash})
	c.PutProduct(domain.ProductView{ID: 4, Status: domain.StatusPublish})
	for _, id := range []int64{1, 2, 3} {
		c.PutState(domain.SyncState{ProductID: id, SyncedStores: []string{"s"}})
	}

	ids, err := c.ListSyncedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2}, ids)
}

func TestOrders_Recent(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	base := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	c.PutOrder(domain.OrderView{ID: 1, Status: domain.OrderCompleted, CreatedAt: base})
	c.PutOrder(domain.OrderView{ID: 2, Status: domain.OrderCancelled, CreatedAt: base.Add(time.Hour)})
	c.PutOrder(domain.OrderView{ID: 3, Status: domain.OrderProcessing, CreatedAt: base.Add(2 * time.Hour)})

	got, err := c.Orders().Recent(ctx, 15, []domain.OrderStatus{domain.OrderProcessing, domain.OrderCompleted})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, int64(3), got[0].ID)
	assert.Equal(t, int64(1), got[1].ID)
}

func TestCatalog_FindBySkuPrefersPublished(t *testing.T) {
	ctx := context.Background()
	c := NewCatalog()
	c.PutProduct(domain.ProductView{ID: 1, Sku: "SHARED", Status: domain.StatusDraft})
	c.PutProduct(domain.ProductView{ID: 5, Sku: "SHARED", Status: domain.StatusPublish})
	c.PutProduct(domain.ProductView{ID: 3, Sku: "SHARED", Status: domain.StatusPublish})
	c.PutProduct(domain.ProductView{ID: 2, Sku: "DRAFTS", Status: domain.StatusDraft})
	c.PutProduct(domain.ProductView{ID: 4, Sku: "DRAFTS", Status: domain.StatusPending})

	p, err := c.FindBySku(ctx, "SHARED")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(3), p.ID)

	p, err = c.FindBySku(ctx, "DRAFTS")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, int64(2), p.ID, "no published match falls back to the lowest id")

	p, err = c.FindBySku(ctx, "MISSING")
	require.NoError(t, err)
	assert.Nil(t, p)
}
