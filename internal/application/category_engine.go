package application

import (
	"context"
	"fmt"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

const (
	categoryDelay   = 100 * time.Millisecond
	assignmentDelay = 50 * time.Millisecond
)

type StoreTally struct {
	Success int `json:"success"`
	Errors  int `json:"errors"`
	Skipped int `json:"skipped"`
}

type CategoryBatchResult struct {
	SuccessCount int                   `json:"success_count"`
	ErrorCount   int                   `json:"error_count"`
	Stores       map[string]StoreTally `json:"stores"`
}

func newCategoryBatchResult() CategoryBatchResult {
	return CategoryBatchResult{Stores: map[string]StoreTally{}}
}

// CategoryEngine mirrors the category tree and product assignments.
type CategoryEngine struct {
	products    domain.ProductRepository
	categories  domain.CategoryRepository
	states      domain.SyncStateRepository
	integration domain.Integration
	sleep       func(time.Duration)
	log         *logger.Logger
}

func NewCategoryEngine(
	products domain.ProductRepository,
	categories domain.CategoryRepository,
	states domain.SyncStateRepository,
	integration domain.Integration,
	log *logger.Logger,
) *CategoryEngine {
	if log == nil {
		log = logger.Nop()
	}
	return &CategoryEngine{
		products:    products,
		categories:  categories,
		states:      states,
		integration: integration,
		sleep:       time.Sleep,
		log:         log,
	}
}

func (c *CategoryEngine) WithSleeper(sleep func(time.Duration)) *CategoryEngine {
	if sleep != nil {
		c.sleep = sleep
	}
	return c
}

// RunCategoryBatch syncs every category to every store, skipping the ones a
// store excludes.
func (c *CategoryEngine) RunCategoryBatch(ctx context.Context, cats []domain.Category, stores []domain.Store) CategoryBatchResult {
	res := newCategoryBatchResult()
	first := true
	for _, st := range stores {
		tally := StoreTally{}
		for _, cat := range cats {
			if ctx.Err() != nil {
				break
			}
			if st.ExcludesCategory(cat.ID) {
				tally.Skipped++
				continue
			}
			if !first {
				c.sleep(categoryDelay)
			}
			first = false

			if err := c.integration.SyncCategory(ctx, st, cat); err != nil {
				tally.Errors++
				res.ErrorCount++
				c.log.Error().Err(err).Str("store", st.URL).Int64("category_id", cat.ID).Msg("category sync failed")
				continue
			}
			tally.Success++
			res.SuccessCount++
		}
		res.Stores[st.URL] = tally
		c.log.Info().
			Str("store", st.URL).
			Int("success", tally.Success).
			Int("errors", tally.Errors).
			Int("skipped", tally.Skipped).
			Msg("category sync finished for store")
	}
	return res
}

// UpdateProductCategories rewrites category assignments for products already
// present on each store.
func (c *CategoryEngine) UpdateProductCategories(ctx context.Context, productIDs []int64, stores []domain.Store) (CategoryBatchResult, error) {
	res := newCategoryBatchResult()

	all, err := c.categories.ListAll(ctx)
	if err != nil {
		return res, fmt.Errorf("list categories: %w", err)
	}
	byID := make(map[int64]domain.Category, len(all))
	for _, cat := range all {
		byID[cat.ID] = cat
	}

	for _, st := range stores {
		tally := StoreTally{}
		// categories confirmed on this store during this run
		ensured := map[int64]bool{}

		for _, pid := range productIDs {
			if ctx.Err() != nil {
				break
			}
			state, err := c.states.Get(ctx, pid)
			if err != nil {
				return res, fmt.Errorf("load sync state %d: %w", pid, err)
			}
			if !state.SyncedTo(st.URL) {
				tally.Skipped++
				continue
			}
			p, err := c.products.GetByID(ctx, pid)
			if err != nil {
				return res, fmt.Errorf("load product %d: %w", pid, err)
			}
			if p == nil {
				tally.Skipped++
				continue
			}

			ids := make([]int64, 0, len(p.CategoryIDs))
			for _, cid := range p.CategoryIDs {
				if st.ExcludesCategory(cid) {
					continue
				}
				ok, seen := ensured[cid]
				if !seen {
					cat, known := byID[cid]
					ok = known && c.integration.SyncCategory(ctx, st, cat) == nil
					ensured[cid] = ok
				}
				if ok {
					ids = append(ids, cid)
				}
			}
			if len(ids) == 0 {
				tally.Skipped++
				continue
			}

			if err := c.integration.UpdateProductCategories(ctx, st, pid, ids); err != nil {
				tally.Errors++
				res.ErrorCount++
				c.log.Error().Err(err).Str("store", st.URL).Int64("product_id", pid).
					Msgf("category update failed for product %s", p.Identifier())
			} else {
				tally.Success++
				res.SuccessCount++
			}
			c.sleep(assignmentDelay)
		}
		res.Stores[st.URL] = tally
	}
	return res, nil
}
