package domain

import "errors"

var (
	ErrIntegrationUnavailable = errors.New("integration plugin not available")
	ErrNoStoresConfigured     = errors.New("no stores configured")
	ErrNoStoresSelected       = errors.New("no active stores selected")
	ErrProductNotFound        = errors.New("product not found")
	ErrOrderNotFound          = errors.New("order not found")
	ErrJobRunning             = errors.New("job already running")
	ErrEmptySKUList           = errors.New("sku list is empty")
	ErrNoRecentOrders         = errors.New("no recent orders found")
	ErrNoOrderProducts        = errors.New("no products found in recent orders")
	ErrNoCategories           = errors.New("no categories found to sync")
	ErrNoSyncedProducts       = errors.New("no synced products found")
	ErrLockNotObtained        = errors.New("run lock held by another worker")
	ErrSyncRejected           = errors.New("integration worker rejected the command")
	ErrSyncTimeout            = errors.New("no reply from integration worker")
)
