package application

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/memory"
)

func TestCategoryEngine_RunCategoryBatchTallies(t *testing.T) {
	cat := memory.NewCatalog()
	remote := newFakeIntegration()
	remote.failCats[3] = true
	var sleeps []time.Duration
	eng := NewCategoryEngine(cat, cat.Categories(), cat, remote, nil).
		WithSleeper(func(d time.Duration) { sleeps = append(sleeps, d) })

	a := activeStore(storeA)
	a.ExcludeCategories = []int64{2}
	cats := []domain.Category{{ID: 1, Name: "One"}, {ID: 2, Name: "Two"}, {ID: 3, Name: "Three"}}

	res := eng.RunCategoryBatch(context.Background(), cats, []domain.Store{a, activeStore(storeB)})
	assert.Equal(t, 3, res.SuccessCount)
	assert.Equal(t, 2, res.ErrorCount)
	assert.Equal(t, StoreTally{Success: 1, Errors: 1, Skipped: 1}, res.Stores[storeA])
	assert.Equal(t, StoreTally{Success: 2, Errors: 1}, res.Stores[storeB])
	assert.Len(t, sleeps, 4)
}

func TestCategoryEngine_UpdateProductCategories(t *testing.T) {
	ctx := context.Background()
	cat := memory.NewCatalog()
	remote := newFakeIntegration()
	eng := NewCategoryEngine(cat, cat.Categories(), cat, remote, nil).WithSleeper(func(time.Duration) {})

	cat.PutCategory(domain.Category{ID: 1, Name: "Keep"})
	cat.PutCategory(domain.Category{ID: 2, Name: "Excluded"})
	cat.PutProduct(domain.ProductView{ID: 10, Status: domain.StatusPublish, CategoryIDs: []int64{1, 2}})
	cat.PutProduct(domain.ProductView{ID: 11, Status: domain.StatusPublish, CategoryIDs: []int64{2}})
	cat.PutProduct(domain.ProductView{ID: 12, Status: domain.StatusPublish, CategoryIDs: []int64{1}})

	now := time.Now()
	require.NoError(t, cat.CompleteSync(ctx, 10, domain.SyncFull, now, []string{storeA}, now))
	require.NoError(t, cat.CompleteSync(ctx, 11, domain.SyncFull, now, []string{storeA}, now))

	a := activeStore(storeA)
	a.ExcludeCategories = []int64{2}
	res, err := eng.UpdateProductCategories(ctx, []int64{10, 11, 12}, []domain.Store{a})
	require.NoError(t, err)

	assert.Equal(t, 1, res.SuccessCount)
	assert.Equal(t, StoreTally{Success: 1, Skipped: 2}, res.Stores[storeA])
	assert.Equal(t, []int64{1}, remote.assignments[storeA][10])
	assert.NotContains(t, remote.assignments[storeA], int64(11))
	assert.NotContains(t, remote.assignments[storeA], int64(12), "never synced to this store")
	assert.Equal(t, []int64{1}, remote.categories[storeA], "category ensured once per run")
}
