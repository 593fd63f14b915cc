package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/kv"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/memory"
)

var errRemote = errors.New("remote store rejected the request")

type syncCall struct {
	ProductID int64
	Kind      domain.SyncKind
	Stores    []string
}

type fakeIntegration struct {
	mu           sync.Mutex
	calls        []syncCall
	failProducts map[int64]bool
	failCats     map[int64]bool
	categories   map[string][]int64
	assignments  map[string]map[int64][]int64
	onApply      func(id int64)
}

func newFakeIntegration() *fakeIntegration {
	return &fakeIntegration{
		failProducts: map[int64]bool{},
		failCats:     map[int64]bool{},
		categories:   map[string][]int64{},
		assignments:  map[string]map[int64][]int64{},
	}
}

func (f *fakeIntegration) ApplySync(_ context.Context, id int64, stores []domain.Store, kind domain.SyncKind) error {
	f.mu.Lock()
	f.calls = append(f.calls, syncCall{ProductID: id, Kind: kind, Stores: domain.StoreURLs(stores)})
	fail := f.failProducts[id]
	hook := f.onApply
	f.mu.Unlock()
	if hook != nil {
		hook(id)
	}
	if fail {
		return errRemote
	}
	return nil
}

func (f *fakeIntegration) SyncCategory(_ context.Context, st domain.Store, c domain.Category) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCats[c.ID] {
		return errRemote
	}
	f.categories[st.URL] = append(f.categories[st.URL], c.ID)
	return nil
}

func (f *fakeIntegration) UpdateProductCategories(_ context.Context, st domain.Store, pid int64, ids []int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.assignments[st.URL] == nil {
		f.assignments[st.URL] = map[int64][]int64{}
	}
	f.assignments[st.URL][pid] = ids
	return nil
}

func (f *fakeIntegration) syncedIDs() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]int64, 0, len(f.calls))
	for _, c := range f.calls {
		ids = append(ids, c.ProductID)
	}
	return ids
}

func (f *fakeIntegration) setFail(id int64, fail bool) {
	f.mu.Lock()
	f.failProducts[id] = fail
	f.mu.Unlock()
}

type fixture struct {
	ctx     context.Context
	catalog *memory.Catalog
	kv      *kv.MemoryStore
	queue   *kv.QueueStore
	remote  *fakeIntegration
	now     time.Time
	sleeps  []time.Duration
	svc     *Service
}

const (
	storeA = "https://a.example.com"
	storeB = "https://b.example.com"
)

// peakNoon and offPeakNight are in UTC, the fixture's site timezone.
var (
	peakNoon     = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	offPeakNight = time.Date(2024, 5, 10, 3, 0, 0, 0, time.UTC)
)

func newFixture(t *testing.T, now time.Time) *fixture {
	t.Helper()
	f := &fixture{
		ctx:     context.Background(),
		catalog: memory.NewCatalog(),
		kv:      kv.NewMemoryStore(),
		remote:  newFakeIntegration(),
		now:     now,
	}
	f.queue = kv.NewQueueStore(f.kv)
	f.svc = f.build(f.remote)
	return f
}

func (f *fixture) build(integration domain.Integration) *Service {
	d := Deps{
		Products:   f.catalog,
		Orders:     f.catalog.Orders(),
		Categories: f.catalog.Categories(),
		States:     f.catalog,
		KV:         f.kv,
		Queue:      f.queue,
	}
	if integration != nil {
		d.Integration = integration
	}
	var mu sync.Mutex
	return NewService(d, Options{
		Location:     time.UTC,
		PeakDelay:    200 * time.Millisecond,
		OffPeakDelay: 50 * time.Millisecond,
		QueueDelay:   100 * time.Millisecond,
		Now:          func() time.Time { return f.now },
		Sleep: func(d time.Duration) {
			mu.Lock()
			f.sleeps = append(f.sleeps, d)
			mu.Unlock()
		},
	})
}

// withStores registers stores and selects them.
func (f *fixture) withStores(t *testing.T, stores ...domain.Store) {
	t.Helper()
	urls := make([]string, 0, len(stores))
	for _, st := range stores {
		require.NoError(t, f.svc.Settings().RegisterStore(f.ctx, st))
		urls = append(urls, st.URL)
	}
	cfg := DefaultSyncSettings()
	cfg.SelectedStores = urls
	require.NoError(t, f.svc.Settings().Save(f.ctx, cfg))
}

func (f *fixture) updateSettings(t *testing.T, mut func(*SyncSettings)) {
	t.Helper()
	cfg, err := f.svc.Settings().Load(f.ctx)
	require.NoError(t, err)
	mut(&cfg)
	require.NoError(t, f.svc.Settings().Save(f.ctx, cfg))
}

func (f *fixture) product(id int64, sku string, status domain.ProductStatus, modified time.Time) {
	f.catalog.PutProduct(domain.ProductView{ID: id, Sku: sku, Name: sku, Status: status, ModifiedAt: modified})
}

func (f *fixture) syncedState(id int64, need domain.SyncNeed, at time.Time, stores ...string) {
	t := at
	f.catalog.PutState(domain.SyncState{
		ProductID:    id,
		Need:         need,
		LastSyncAt:   &t,
		LastSyncKind: domain.SyncFull,
		SyncedStores: stores,
	})
}

func activeStore(url string) domain.Store {
	return domain.Store{URL: url, Status: true}
}
