package application

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
)

// Option keys, shared with the integration plugin where noted.
const (
	OptStores           = "stores" // owned by the integration plugin
	OptPeakBatchSize    = "cron_batch_size"
	OptOffPeakBatchSize = "cron_batch_size_offpeak"
	OptSelectedStores   = "cron_selected_stores"
	OptAutoSyncOrders   = "auto_sync_orders"
	OptForceFullSync    = "force_full_sync"
	OptLastSyncCheck    = "last_sync_check"
	optLastEmptyLog     = "last_empty_log_"
)

// SyncSettings is the runtime configuration surface edited by operators.
type SyncSettings struct {
	PeakBatchSize    int      `json:"cron_batch_size" validate:"min=1,max=500"`
	OffPeakBatchSize int      `json:"cron_batch_size_offpeak" validate:"min=1,max=500"`
	SelectedStores   []string `json:"cron_selected_stores" validate:"dive,required,url"`
	AutoSyncOrders   bool     `json:"auto_sync_orders"`
	ForceFullSync    bool     `json:"force_full_sync"`
}

func DefaultSyncSettings() SyncSettings {
	return SyncSettings{
		PeakBatchSize:    domain.DefaultPeakBatchSize,
		OffPeakBatchSize: domain.DefaultOffPeakBatchSize,
		SelectedStores:   []string{},
	}
}

// Settings reads and writes SyncSettings as individual options.
type Settings struct {
	kv       domain.KeyValueStore
	validate *validator.Validate
}

func NewSettings(kv domain.KeyValueStore) *Settings {
	return &Settings{kv: kv, validate: validator.New()}
}

func (s *Settings) Load(ctx context.Context) (SyncSettings, error) {
	out := DefaultSyncSettings()
	fields := []struct {
		key string
		dst any
	}{
		{OptPeakBatchSize, &out.PeakBatchSize},
		{OptOffPeakBatchSize, &out.OffPeakBatchSize},
		{OptSelectedStores, &out.SelectedStores},
		{OptAutoSyncOrders, &out.AutoSyncOrders},
		{OptForceFullSync, &out.ForceFullSync},
	}
	for _, f := range fields {
		if _, err := s.kv.Get(ctx, f.key, f.dst); err != nil {
			return SyncSettings{}, fmt.Errorf("load option %s: %w", f.key, err)
		}
	}
	if out.SelectedStores == nil {
		out.SelectedStores = []string{}
	}
	return out, nil
}

// Validate returns validator.ValidationErrors for bad input.
func (s *Settings) Validate(in SyncSettings) error {
	return s.validate.Struct(in)
}

func (s *Settings) Save(ctx context.Context, in SyncSettings) error {
	if err := s.Validate(in); err != nil {
		return err
	}
	if in.SelectedStores == nil {
		in.SelectedStores = []string{}
	}
	values := map[string]any{
		OptPeakBatchSize:    in.PeakBatchSize,
		OptOffPeakBatchSize: in.OffPeakBatchSize,
		OptSelectedStores:   in.SelectedStores,
		OptAutoSyncOrders:   in.AutoSyncOrders,
		OptForceFullSync:    in.ForceFullSync,
	}
	for k, v := range values {
		if err := s.kv.Set(ctx, k, v); err != nil {
			return fmt.Errorf("save option %s: %w", k, err)
		}
	}
	return nil
}

// Stores returns the destination registrations keyed by url.
func (s *Settings) Stores(ctx context.Context) (map[string]domain.Store, error) {
	all := map[string]domain.Store{}
	if _, err := s.kv.Get(ctx, OptStores, &all); err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	return all, nil
}

// RegisterStore is used by tooling and tests; in production the integration
// plugin owns the registrations.
func (s *Settings) RegisterStore(ctx context.Context, st domain.Store) error {
	all, err := s.Stores(ctx)
	if err != nil {
		return err
	}
	all[st.URL] = st
	return s.kv.Set(ctx, OptStores, all)
}

// ActiveStores resolves the selected, registered and enabled destinations.
// It fails with ErrNoStoresConfigured or ErrNoStoresSelected.
func (s *Settings) ActiveStores(ctx context.Context) ([]domain.Store, error) {
	all, err := s.Stores(ctx)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, domain.ErrNoStoresConfigured
	}
	cfg, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	stores := domain.ResolveStores(all, cfg.SelectedStores)
	if len(stores) == 0 {
		return nil, domain.ErrNoStoresSelected
	}
	return stores, nil
}

// StoresByURL resolves an explicit url list, keeping only active registrations.
func (s *Settings) StoresByURL(ctx context.Context, urls []string) ([]domain.Store, error) {
	all, err := s.Stores(ctx)
	if err != nil {
		return nil, err
	}
	stores := domain.ResolveStores(all, urls)
	if len(stores) == 0 {
		return nil, domain.ErrNoStoresSelected
	}
	return stores, nil
}
