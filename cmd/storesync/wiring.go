package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/redis/go-redis/v9"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/db"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/integration"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/kv"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/lock"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/memory"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/messaging"
	outboxinfra "github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/outbox"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

// app is everything the commands share.
type app struct {
	cfg     config.Config
	svc     *application.Service
	outbox  domain.OutboxRepository
	buses   *messaging.EventBuses
	closers []func()

	// start runs the outbox dispatcher and the reply consumer; nil when
	// events are off.
	start func(ctx context.Context) error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

func buildApp(ctx context.Context, cfg config.Config) (*app, error) {
	log := logger.Named("wiring")
	a := &app{cfg: cfg}

	var dbConn *sql.DB
	if cfg.CatalogBackend == "postgres" || cfg.KVBackend == "postgres" {
		conn, err := sql.Open("pgx", cfg.PgDsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		a.closers = append(a.closers, func() { _ = conn.Close() })
		if err := conn.PingContext(ctx); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		if err := db.EnsureSchema(ctx, conn); err != nil {
			a.Close()
			return nil, err
		}
		dbConn = conn
	}

	var rdb redis.UniversalClient
	if cfg.RedisAddr != "" {
		rdb = redis.NewUniversalClient(&redis.UniversalOptions{Addrs: []string{cfg.RedisAddr}})
		a.closers = append(a.closers, func() { _ = rdb.Close() })
		if err := rdb.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("ping redis: %w", err)
		}
	}

	deps := application.Deps{}

	switch cfg.CatalogBackend {
	case "postgres":
		deps.Products = db.NewPgProductRepository(dbConn)
		deps.Orders = db.NewPgOrderRepository(dbConn)
		deps.Categories = db.NewPgCategoryRepository(dbConn)
		deps.States = db.NewPgSyncStateRepository(dbConn)
		a.outbox = db.NewPgOutboxRepository(dbConn)
	case "memory":
		cat := memory.NewCatalog()
		deps.Products, deps.States = cat, cat
		deps.Orders, deps.Categories = cat.Orders(), cat.Categories()
		a.outbox = memory.NewOutbox()
	default:
		a.Close()
		return nil, fmt.Errorf("unknown CATALOG_BACKEND %q", cfg.CatalogBackend)
	}

	switch cfg.KVBackend {
	case "postgres":
		deps.KV = db.NewPgOptionsStore(dbConn)
	case "redis":
		if rdb == nil {
			a.Close()
			return nil, fmt.Errorf("KV_BACKEND=redis requires REDIS_ADDRESS")
		}
		deps.KV = kv.NewRedisStore(rdb, "storesync:")
	case "memory":
		deps.KV = kv.NewMemoryStore()
	default:
		a.Close()
		return nil, fmt.Errorf("unknown KV_BACKEND %q", cfg.KVBackend)
	}
	deps.Queue = kv.NewQueueStore(deps.KV)

	if rdb != nil {
		deps.Lock = lock.NewRedisRunLock(rdb, cfg.RunLockTTL)
	} else {
		deps.Lock = lock.NewLocalRunLock()
	}

	// sin broker no hay quien publique los comandos ni quien responda:
	// el servicio reporta "integration plugin not available"
	if cfg.ConsumeEvents {
		buses := messaging.NewEventBuses(cfg.RabbitUri)
		a.buses = &buses
		a.closers = append(a.closers, buses.Stop)

		dispatcher := outboxinfra.NewDispatcher(a.outbox, buses.Producer, cfg.OutboxMaxRetry, cfg.OutboxBatchSize)
		outboxSched := outboxinfra.NewScheduler(dispatcher, cfg.OutboxIntervalSec)
		replies := integration.NewReplyBook(deps.KV, cfg.SyncReplyTimeout)
		deps.Integration = integration.NewOutboxIntegration(application.NewOutboxWriter(a.outbox), replies, outboxSched.Kick)

		a.start = func(ctx context.Context) error {
			outboxSched.Start(ctx)
			return messaging.RegisterResultSubscriptions(ctx, buses.ResultsConsumer, integration.NewResultHandler(replies))
		}
	}

	a.svc = application.NewService(deps, application.Options{
		Location:     cfg.Location(),
		PeakDelay:    cfg.PeakDelay,
		OffPeakDelay: cfg.OffPeakDelay,
		QueueDelay:   cfg.QueueDelay,
		PassInterval: time.Duration(cfg.PassIntervalSec) * time.Second,
		Log:          logger.Named("storesync"),
	})

	log.Info().
		Str("catalog", cfg.CatalogBackend).
		Str("kv", cfg.KVBackend).
		Bool("redis_lock", rdb != nil).
		Bool("events", cfg.ConsumeEvents).
		Msg("storesync wired")
	return a, nil
}
