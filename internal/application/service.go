package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

const (
	// RecentOrdersWindow is how many orders the manual and hourly order checks look at.
	RecentOrdersWindow = 15
	emptyLogInterval   = time.Hour
	verifyStaleAfter   = time.Hour

	lockScheduledPass = "scheduled_pass"
	lockQueueDrain    = "queue_drain"
	lockVerifyOrders  = "verify_orders"
)

var recentOrderStatuses = []domain.OrderStatus{domain.OrderProcessing, domain.OrderCompleted}

// Deps are the ports the Service is built on. Integration and Lock may be nil.
type Deps struct {
	Products    domain.ProductRepository
	Orders      domain.OrderRepository
	Categories  domain.CategoryRepository
	States      domain.SyncStateRepository
	KV          domain.KeyValueStore
	Queue       domain.QueueStore
	Integration domain.Integration
	Lock        domain.RunLock
}

type Options struct {
	Location     *time.Location
	PeakDelay    time.Duration
	OffPeakDelay time.Duration
	QueueDelay   time.Duration
	PassInterval time.Duration
	Now          func() time.Time
	Sleep        func(time.Duration)
	Log          *logger.Logger
}

// Service is the outward interface of the sync core: scheduled passes, the
// order queue, manual triggers and catalog hooks.
type Service struct {
	settings   *Settings
	selector   *Selector
	queue      *WorkQueue
	engine     *Engine
	categories *CategoryEngine
	jobs       *Jobs
	reports    reportCache

	products    domain.ProductRepository
	orders      domain.OrderRepository
	categoryRp  domain.CategoryRepository
	states      domain.SyncStateRepository
	kv          domain.KeyValueStore
	integration domain.Integration
	lock        domain.RunLock

	opts Options
	now  func() time.Time
	log  *logger.Logger
}

func NewService(d Deps, opts Options) *Service {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	if opts.Log == nil {
		opts.Log = logger.Nop()
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.PassInterval <= 0 {
		opts.PassInterval = 15 * time.Minute
	}

	settings := NewSettings(d.KV)
	log := opts.Log
	return &Service{
		settings:    settings,
		selector:    NewSelector(d.Products, settings, opts.Now),
		queue:       NewWorkQueue(d.Queue, opts.Now, sub(log, "queue")),
		engine:      NewEngine(d.Products, d.States, d.Integration, sub(log, "engine")).WithClock(opts.Now, opts.Sleep),
		categories:  NewCategoryEngine(d.Products, d.Categories, d.States, d.Integration, sub(log, "categories")).WithSleeper(opts.Sleep),
		jobs:        NewJobs(d.KV, opts.Now, sub(log, "jobs")),
		products:    d.Products,
		orders:      d.Orders,
		categoryRp:  d.Categories,
		states:      d.States,
		kv:          d.KV,
		integration: d.Integration,
		lock:        d.Lock,
		opts:        opts,
		now:         opts.Now,
		log:         log,
	}
}

func sub(l *logger.Logger, component string) *logger.Logger {
	c := l.With().Str("component", component).Logger()
	return &c
}

func (s *Service) Settings() *Settings { return s.settings }
func (s *Service) Jobs() *Jobs         { return s.jobs }

// withLock runs fn under the named run lock when one is configured.
func (s *Service) withLock(ctx context.Context, name string, fn func() error) error {
	if s.lock == nil {
		return fn()
	}
	release, err := s.lock.Acquire(ctx, name)
	if err != nil {
		return err
	}
	defer release()
	return fn()
}

// preflight checks the integration and resolves the active stores.
func (s *Service) preflight(ctx context.Context) ([]domain.Store, error) {
	if s.integration == nil {
		return nil, domain.ErrIntegrationUnavailable
	}
	return s.settings.ActiveStores(ctx)
}

func isPrecondition(err error) bool {
	return errors.Is(err, domain.ErrIntegrationUnavailable) ||
		errors.Is(err, domain.ErrNoStoresConfigured) ||
		errors.Is(err, domain.ErrNoStoresSelected)
}

// --- scheduled pass ---

type PassResult struct {
	Skipped        string                `json:"skipped,omitempty"`
	Classification domain.Classification `json:"classification"`
	Selected       int                   `json:"selected"`
	Batch          BatchResult           `json:"batch"`
}

func (s *Service) policy(cfg SyncSettings) domain.TimePolicy {
	return domain.TimePolicy{
		Location:         s.opts.Location,
		PeakBatchSize:    cfg.PeakBatchSize,
		OffPeakBatchSize: cfg.OffPeakBatchSize,
		ForceFullSync:    cfg.ForceFullSync,
		PeakDelay:        s.opts.PeakDelay,
		OffPeakDelay:     s.opts.OffPeakDelay,
	}
}

// RunScheduledPass runs one time-policy driven batch. Precondition failures
// are logged and reported through PassResult.Skipped.
func (s *Service) RunScheduledPass(ctx context.Context) (PassResult, error) {
	var res PassResult
	err := s.withLock(ctx, lockScheduledPass, func() error {
		var err error
		res, err = s.runPass(ctx)
		return err
	})
	if errors.Is(err, domain.ErrLockNotObtained) {
		s.log.Info().Msg("scheduled pass already running elsewhere, skipped")
		return PassResult{Skipped: err.Error()}, nil
	}
	return res, err
}

func (s *Service) runPass(ctx context.Context) (PassResult, error) {
	var res PassResult

	stores, err := s.preflight(ctx)
	if isPrecondition(err) {
		s.log.Warn().Err(err).Msg("scheduled pass skipped")
		res.Skipped = err.Error()
		return res, nil
	}
	if err != nil {
		return res, err
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return res, err
	}
	now := s.now()
	cls := s.policy(cfg).Classify(now)
	res.Classification = cls

	ids, err := s.selector.Select(ctx, cls.SyncKind, cls.BatchSize)
	if err != nil {
		return res, err
	}
	res.Selected = len(ids)

	if len(ids) == 0 {
		s.logNothingToSync(ctx, cls.SyncKind, now)
		return res, s.kv.Set(ctx, OptLastSyncCheck, now.UTC())
	}
	if err := s.kv.Delete(ctx, optLastEmptyLog+string(cls.SyncKind)); err != nil {
		return res, err
	}

	s.log.Info().
		Bool("off_peak", cls.IsOffPeak).
		Str("sync_kind", string(cls.SyncKind)).
		Int("products", len(ids)).
		Strs("stores", domain.StoreURLs(stores)).
		Msg("scheduled pass started")

	res.Batch = s.engine.RunBatch(ctx, ids, cls.SyncKind, stores, cls.ItemDelay)
	s.selector.InvalidateCount()

	s.log.Info().
		Int("success", res.Batch.SuccessCount).
		Int("errors", res.Batch.ErrorCount).
		Msg("scheduled pass finished")
	return res, s.kv.Set(ctx, OptLastSyncCheck, s.now().UTC())
}

// logNothingToSync writes the idle message at most once per hour per kind.
func (s *Service) logNothingToSync(ctx context.Context, kind domain.SyncKind, now time.Time) {
	key := optLastEmptyLog + string(kind)
	var last time.Time
	found, err := s.kv.Get(ctx, key, &last)
	if err != nil {
		s.log.Error().Err(err).Msg("read empty-log marker")
		return
	}
	if found && now.Sub(last) < emptyLogInterval {
		return
	}
	s.log.Info().Str("sync_kind", string(kind)).Msg("no products need syncing")
	if err := s.kv.Set(ctx, key, now.UTC()); err != nil {
		s.log.Error().Err(err).Msg("write empty-log marker")
	}
}

// --- queue ---

// ProcessQueue drains the work queue with quantity syncs.
func (s *Service) ProcessQueue(ctx context.Context) (domain.DrainResult, error) {
	var res domain.DrainResult
	err := s.withLock(ctx, lockQueueDrain, func() error {
		stores, err := s.preflight(ctx)
		if isPrecondition(err) {
			s.log.Warn().Err(err).Msg("queue drain skipped")
			return nil
		}
		if err != nil {
			return err
		}
		res, err = s.drain(ctx, stores)
		return err
	})
	if errors.Is(err, domain.ErrLockNotObtained) {
		s.log.Info().Msg("queue drain already running elsewhere, skipped")
		return res, nil
	}
	return res, err
}

func (s *Service) drain(ctx context.Context, stores []domain.Store) (domain.DrainResult, error) {
	first := true
	return s.queue.Drain(ctx, func(ctx context.Context, e domain.QueueEntry) error {
		if !first && s.opts.QueueDelay > 0 {
			s.opts.Sleep(s.opts.QueueDelay)
		}
		first = false
		kind := e.Kind
		if kind == "" {
			kind = domain.SyncQuantityOnly
		}
		return s.engine.SyncOne(ctx, e.ProductID, kind, stores)
	})
}

func (s *Service) GetQueueStats(ctx context.Context) (domain.QueueStats, error) {
	return s.queue.Stats(ctx)
}

func (s *Service) CancelQueue(ctx context.Context) (int, error) {
	return s.queue.Clear(ctx)
}

type FlushResult struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	Remaining int    `json:"remaining"`
}

// FlushQueueNow drains immediately, outside the drain schedule.
func (s *Service) FlushQueueNow(ctx context.Context) (FlushResult, error) {
	st, err := s.queue.Stats(ctx)
	if err != nil {
		return FlushResult{}, err
	}
	if st.Total == 0 {
		return FlushResult{Message: "Queue is empty"}, nil
	}
	stores, err := s.preflight(ctx)
	if isPrecondition(err) {
		return FlushResult{Message: err.Error(), Remaining: st.Total}, nil
	}
	if err != nil {
		return FlushResult{}, err
	}

	// mismo lock que el drain programado: nunca dos drains sobre el mismo snapshot
	var res domain.DrainResult
	err = s.withLock(ctx, lockQueueDrain, func() error {
		var dErr error
		res, dErr = s.drain(ctx, stores)
		return dErr
	})
	if errors.Is(err, domain.ErrLockNotObtained) {
		return FlushResult{Message: "Queue drain already running", Remaining: st.Total}, nil
	}
	if err != nil {
		return FlushResult{}, err
	}
	processed := res.Succeeded + res.Retried + res.FailedDropped + res.Vanished
	return FlushResult{
		Success:   true,
		Message:   fmt.Sprintf("Processed %d products, %d remaining", processed, res.Remaining),
		Processed: processed,
		Remaining: res.Remaining,
	}, nil
}

// GetPendingCount reports how many products currently need kind.
func (s *Service) GetPendingCount(ctx context.Context, kind domain.SyncKind) (int, error) {
	return s.selector.Count(ctx, kind)
}

// --- order triggers ---

// EnqueueOrderProducts queues every product and variation of an order when
// order-triggered sync is enabled.
func (s *Service) EnqueueOrderProducts(ctx context.Context, orderID int64) (int, error) {
	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !cfg.AutoSyncOrders {
		return 0, nil
	}
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return 0, fmt.Errorf("load order %d: %w", orderID, err)
	}
	if o == nil {
		s.log.Warn().Int64("order_id", orderID).Msg("order not found, nothing queued")
		return 0, nil
	}
	return s.queue.EnqueueMany(ctx, o.ProductIDs(), fmt.Sprintf("order_%d", orderID))
}

// OnOrderStatusChanged reacts to processing and completed transitions only.
func (s *Service) OnOrderStatusChanged(ctx context.Context, orderID int64, status domain.OrderStatus) (int, error) {
	if !status.Qualifies() {
		return 0, nil
	}
	return s.EnqueueOrderProducts(ctx, orderID)
}

type VerifyResult struct {
	Checked int         `json:"checked"`
	Missing int         `json:"missing"`
	Batch   BatchResult `json:"batch"`
}

// VerifyRecentOrders pushes price and quantity of recently ordered products
// that missed a store or were not synced within the last hour.
func (s *Service) VerifyRecentOrders(ctx context.Context) (VerifyResult, error) {
	var res VerifyResult
	err := s.withLock(ctx, lockVerifyOrders, func() error {
		stores, err := s.preflight(ctx)
		if isPrecondition(err) {
			s.log.Warn().Err(err).Msg("order verification skipped")
			return nil
		}
		if err != nil {
			return err
		}
		orders, err := s.orders.Recent(ctx, RecentOrdersWindow, recentOrderStatuses)
		if err != nil {
			return fmt.Errorf("recent orders: %w", err)
		}
		ids := domain.CollectOrderProducts(orders)
		res.Checked = len(ids)

		now := s.now()
		var missing []int64
		for _, id := range ids {
			st, err := s.states.Get(ctx, id)
			if err != nil {
				return fmt.Errorf("load sync state %d: %w", id, err)
			}
			if needsVerification(st, stores, now) {
				missing = append(missing, id)
			}
		}
		res.Missing = len(missing)
		if len(missing) == 0 {
			return nil
		}
		s.log.Info().Int("products", len(missing)).Msg("recent order products out of date, syncing")
		res.Batch = s.engine.RunBatch(ctx, missing, domain.SyncPriceAndQuantity, stores, s.opts.QueueDelay)
		return nil
	})
	if errors.Is(err, domain.ErrLockNotObtained) {
		return res, nil
	}
	return res, err
}

func needsVerification(st domain.SyncState, stores []domain.Store, now time.Time) bool {
	if st.LastSyncAt == nil || now.Sub(*st.LastSyncAt) > verifyStaleAfter {
		return true
	}
	for _, store := range stores {
		if !st.SyncedTo(store.URL) {
			return true
		}
	}
	return false
}

// --- manual triggers ---

type ManualResult struct {
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	QueuedCount int    `json:"queued_count"`
	RunID       string `json:"run_id,omitempty"`
}

func failed(err error) ManualResult {
	return ManualResult{Message: err.Error()}
}

// QueueForceSyncLastOrders quantity-syncs the products of the latest orders
// in the background.
func (s *Service) QueueForceSyncLastOrders(ctx context.Context) (ManualResult, error) {
	stores, err := s.preflight(ctx)
	if isPrecondition(err) {
		return failed(err), nil
	}
	if err != nil {
		return ManualResult{}, err
	}
	orders, err := s.orders.Recent(ctx, RecentOrdersWindow, recentOrderStatuses)
	if err != nil {
		return ManualResult{}, fmt.Errorf("recent orders: %w", err)
	}
	if len(orders) == 0 {
		return failed(domain.ErrNoRecentOrders), nil
	}
	ids := domain.CollectOrderProducts(orders)
	if len(ids) == 0 {
		return failed(domain.ErrNoOrderProducts), nil
	}

	st, err := s.jobs.Submit(ctx, JobForceSyncOrders, func(ctx context.Context) (any, error) {
		return s.engine.RunBatch(ctx, ids, domain.SyncQuantityOnly, stores, s.opts.QueueDelay), nil
	})
	if errors.Is(err, domain.ErrJobRunning) {
		return failed(err), nil
	}
	if err != nil {
		return ManualResult{}, err
	}
	return ManualResult{
		Success:     true,
		Message:     fmt.Sprintf("Queued %d products from %d recent orders", len(ids), len(orders)),
		QueuedCount: len(ids),
		RunID:       st.RunID,
	}, nil
}

type SKUError struct {
	Sku   string `json:"sku"`
	Error string `json:"error"`
}

type SKUSyncResult struct {
	Success     bool       `json:"success"`
	QueuedCount int        `json:"queued_count"`
	Queued      []string   `json:"queued"`
	NotFound    []string   `json:"not_found"`
	Errors      []SKUError `json:"errors"`
	Message     string     `json:"message"`
	RunID       string     `json:"run_id,omitempty"`
}

// ParseSKUList splits on commas and newlines, trims and de-duplicates.
func ParseSKUList(list string) []string {
	fields := strings.FieldsFunc(list, func(r rune) bool {
		return r == ',' || r == '\n' || r == '\r'
	})
	seen := map[string]struct{}{}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

// QueueSKUSync resolves the SKUs and full-syncs the published ones in the background.
func (s *Service) QueueSKUSync(ctx context.Context, list string) (SKUSyncResult, error) {
	res := SKUSyncResult{Queued: []string{}, NotFound: []string{}, Errors: []SKUError{}}

	stores, err := s.preflight(ctx)
	if isPrecondition(err) {
		res.Errors = append(res.Errors, SKUError{Sku: "N/A", Error: err.Error()})
		res.Message = err.Error()
		return res, nil
	}
	if err != nil {
		return res, err
	}

	skus := ParseSKUList(list)
	if len(skus) == 0 {
		res.Errors = append(res.Errors, SKUError{Sku: "N/A", Error: domain.ErrEmptySKUList.Error()})
		res.Message = domain.ErrEmptySKUList.Error()
		return res, nil
	}

	var ids []int64
	for _, sku := range skus {
		p, err := s.products.FindBySku(ctx, sku)
		if err != nil {
			return res, fmt.Errorf("find sku %s: %w", sku, err)
		}
		if p == nil || p.Status != domain.StatusPublish {
			res.NotFound = append(res.NotFound, sku)
			continue
		}
		ids = append(ids, p.ID)
		res.Queued = append(res.Queued, sku)
	}

	if len(ids) > 0 {
		st, err := s.jobs.Submit(ctx, JobSKUSync, func(ctx context.Context) (any, error) {
			return s.engine.RunBatch(ctx, ids, domain.SyncFull, stores, s.opts.OffPeakDelay), nil
		})
		switch {
		case errors.Is(err, domain.ErrJobRunning):
			for _, sku := range res.Queued {
				res.Errors = append(res.Errors, SKUError{Sku: sku, Error: err.Error()})
			}
			res.Queued = []string{}
		case err != nil:
			return res, err
		default:
			res.RunID = st.RunID
		}
	}

	res.QueuedCount = len(res.Queued)
	res.Success = res.QueuedCount > 0
	res.Message = fmt.Sprintf("%d queued, %d not found", res.QueuedCount, len(res.NotFound))
	if len(res.Errors) > 0 {
		res.Message += fmt.Sprintf(", %d errors", len(res.Errors))
	}
	return res, nil
}

// SyncAllCategories mirrors the category tree to every selected store.
func (s *Service) SyncAllCategories(ctx context.Context) (ManualResult, error) {
	stores, err := s.preflight(ctx)
	if isPrecondition(err) {
		return failed(err), nil
	}
	if err != nil {
		return ManualResult{}, err
	}

	st, err := s.jobs.Submit(ctx, JobCategorySync, func(ctx context.Context) (any, error) {
		cats, err := s.categoryRp.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		if len(cats) == 0 {
			return nil, domain.ErrNoCategories
		}
		return s.categories.RunCategoryBatch(ctx, cats, stores), nil
	})
	if errors.Is(err, domain.ErrJobRunning) {
		return failed(err), nil
	}
	if err != nil {
		return ManualResult{}, err
	}
	return ManualResult{Success: true, Message: "Category sync started", RunID: st.RunID}, nil
}

// ForceUpdateProductCategories rewrites category assignments of every product
// already present on a store.
func (s *Service) ForceUpdateProductCategories(ctx context.Context) (ManualResult, error) {
	stores, err := s.preflight(ctx)
	if isPrecondition(err) {
		return failed(err), nil
	}
	if err != nil {
		return ManualResult{}, err
	}

	st, err := s.jobs.Submit(ctx, JobProductCategories, func(ctx context.Context) (any, error) {
		ids, err := s.products.ListSyncedIDs(ctx)
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, domain.ErrNoSyncedProducts
		}
		return s.categories.UpdateProductCategories(ctx, ids, stores)
	})
	if errors.Is(err, domain.ErrJobRunning) {
		return failed(err), nil
	}
	if err != nil {
		return ManualResult{}, err
	}
	return ManualResult{Success: true, Message: "Product category update started", RunID: st.RunID}, nil
}

func (s *Service) JobStatus(ctx context.Context, name string) (JobStatus, error) {
	return s.jobs.Status(ctx, name)
}

type CronStatus struct {
	LastRun  *time.Time `json:"last_run,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	Interval string     `json:"interval"`
	OffPeak  bool       `json:"off_peak"`
	SyncKind string     `json:"sync_kind"`
}

// CronStatus reports the last pass and an estimate of the next one.
func (s *Service) CronStatus(ctx context.Context) (CronStatus, error) {
	out := CronStatus{Interval: s.opts.PassInterval.String()}

	var last time.Time
	found, err := s.kv.Get(ctx, OptLastSyncCheck, &last)
	if err != nil {
		return out, err
	}
	if found {
		next := last.Add(s.opts.PassInterval)
		out.LastRun, out.NextRun = &last, &next
	}

	cfg, err := s.settings.Load(ctx)
	if err != nil {
		return out, err
	}
	cls := s.policy(cfg).Classify(s.now())
	out.OffPeak = cls.IsOffPeak
	out.SyncKind = string(cls.SyncKind)
	return out, nil
}
