package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// CountCacheTTL bounds how stale a pending count may be.
const CountCacheTTL = 60 * time.Second

type countEntry struct {
	n  int
	at time.Time
}

// Selector produces the candidate products for a pass.
type Selector struct {
	products domain.ProductRepository
	settings *Settings
	now      func() time.Time

	mu    sync.Mutex
	cache map[string]countEntry
}

func NewSelector(products domain.ProductRepository, settings *Settings, now func() time.Time) *Selector {
	if now == nil {
		now = time.Now
	}
	return &Selector{
		products: products,
		settings: settings,
		now:      now,
		cache:    make(map[string]countEntry),
	}
}

// Select returns up to limit product ids for kind, most recently modified first.
// limit <= 0 means unbounded.
func (s *Selector) Select(ctx context.Context, kind domain.SyncKind, limit int) ([]int64, error) {
	ex, err := s.exclusions(ctx)
	if err != nil {
		return nil, err
	}
	if limit < 0 {
		limit = 0
	}

	ids, err := s.products.FindEligible(ctx, domain.EligibilityQuery{Kind: kind, Exclusions: ex, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("find eligible %s: %w", kind, err)
	}

	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// Count is len(Select(kind, unbounded)), cached for CountCacheTTL.
func (s *Selector) Count(ctx context.Context, kind domain.SyncKind) (int, error) {
	ex, err := s.exclusions(ctx)
	if err != nil {
		return 0, err
	}
	key := fmt.Sprintf("%s|%v|%v", kind, ex.Categories, ex.Tags)

	s.mu.Lock()
	if e, ok := s.cache[key]; ok && s.now().Sub(e.at) < CountCacheTTL {
		s.mu.Unlock()
		return e.n, nil
	}
	s.mu.Unlock()

	n, err := s.products.CountEligible(ctx, domain.EligibilityQuery{Kind: kind, Exclusions: ex})
	if err != nil {
		return 0, fmt.Errorf("count eligible %s: %w", kind, err)
	}

	s.mu.Lock()
	s.cache[key] = countEntry{n: n, at: s.now()}
	s.mu.Unlock()
	return n, nil
}

// InvalidateCount drops cached counts.
func (s *Selector) InvalidateCount() {
	s.mu.Lock()
	s.cache = make(map[string]countEntry)
	s.mu.Unlock()
}

// exclusions is the union over the selected active stores; no selection means none.
func (s *Selector) exclusions(ctx context.Context) (domain.Exclusions, error) {
	stores, err := s.settings.ActiveStores(ctx)
	if errors.Is(err, domain.ErrNoStoresConfigured) || errors.Is(err, domain.ErrNoStoresSelected) {
		return domain.Exclusions{}, nil
	}
	if err != nil {
		return domain.Exclusions{}, err
	}
	return domain.UnionExclusions(stores), nil
}
