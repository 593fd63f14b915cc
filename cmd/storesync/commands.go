package main

import (
	"context"
	"encoding/json"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/api"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/application"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/config"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/domain"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/messaging"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/infrastructure/scheduler"
	"github.com/RodolfoDevApp/eventshop-storesync-go/internal/logger"
)

type rootOptions struct {
	LogLevel string
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "storesync",
		Short: "Keeps remote shop destinations in sync with the source catalog",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			lo := logger.FromEnv()
			if opts.LogLevel != "" {
				lo.Level = opts.LogLevel
			}
			lo.Writer = cmd.ErrOrStderr()
			logger.Init(lo)
		},
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newOneShotCommand("pass", "Run one scheduled sync pass", func(ctx context.Context, svc *application.Service) (any, error) {
		return svc.RunScheduledPass(ctx)
	}))
	cmd.AddCommand(newOneShotCommand("drain", "Drain the order work queue", func(ctx context.Context, svc *application.Service) (any, error) {
		return svc.ProcessQueue(ctx)
	}))
	cmd.AddCommand(newOneShotCommand("stats", "Show work queue statistics", func(ctx context.Context, svc *application.Service) (any, error) {
		return svc.GetQueueStats(ctx)
	}))
	cmd.AddCommand(newOneShotCommand("clear", "Clear the work queue", func(ctx context.Context, svc *application.Service) (any, error) {
		n, err := svc.CancelQueue(ctx)
		return map[string]int{"cleared": n}, err
	}))
	cmd.AddCommand(newPendingCommand())
	return cmd
}

// withApp loads config, wires the service and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app) error) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := buildApp(ctx, config.Load())
	if err != nil {
		return err
	}
	defer a.Close()

	if a.start != nil {
		runCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := a.start(runCtx); err != nil {
			return err
		}
		ctx = runCtx
	}
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newOneShotCommand(use, short string, run func(context.Context, *application.Service) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				out, err := run(ctx, a.svc)
				if err != nil {
					return err
				}
				return printJSON(cmd, out)
			})
		},
	}
}

func newPendingCommand() *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "pending",
		Short: "Count products pending a sync of the given kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := domain.ParseSyncKind(kind)
			if err != nil {
				return err
			}
			return withApp(cmd, func(ctx context.Context, a *app) error {
				n, err := a.svc.GetPendingCount(ctx, k)
				if err != nil {
					return err
				}
				return printJSON(cmd, map[string]any{"kind": k, "count": n})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "full", "sync kind (full|light|quantity)")
	return cmd
}

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, the schedulers and the event consumers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, serve)
		},
	}
}

func serve(parent context.Context, a *app) error {
	log := logger.Named("serve")
	cfg := a.cfg
	log.Info().Str("port", cfg.HttpPort).Msg("starting storesync service")

	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	svc := a.svc
	sched := scheduler.New(
		scheduler.Task{Name: "scheduled_pass", Interval: secs(cfg.PassIntervalSec), Run: func(ctx context.Context) error {
			_, err := svc.RunScheduledPass(ctx)
			return err
		}},
		scheduler.Task{Name: "queue_drain", Interval: secs(cfg.DrainIntervalSec), Run: func(ctx context.Context) error {
			_, err := svc.ProcessQueue(ctx)
			return err
		}},
		scheduler.Task{Name: "verify_orders", Interval: secs(cfg.VerifyIntervalSec), Run: func(ctx context.Context) error {
			_, err := svc.VerifyRecentOrders(ctx)
			return err
		}},
	)
	sched.Start(ctx)

	if buses := a.buses; buses != nil {
		if err := messaging.RegisterOrderSubscriptions(ctx, buses.OrdersConsumer,
			application.NewOrderStatusChangedHandler(svc),
		); err != nil {
			return err
		}
		if err := messaging.RegisterCatalogSubscriptions(ctx, buses.CatalogConsumer, messaging.CatalogHandlers{
			ProductChanged:       application.NewProductChangedHandler(svc),
			ProductStatusChanged: application.NewProductStatusChangedHandler(svc),
			StockChanged:         application.NewStockChangedHandler(svc),
		}); err != nil {
			return err
		}
	}

	httpSrv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           api.NewServer(svc).WithCORS(cfg.CorsOrigins).Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Msg("HTTP listening")
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Esperar señal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var runErr error
	select {
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down storesync service")
	case runErr = <-errCh:
		log.Error().Err(runErr).Msg("http server error")
	case <-parent.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("http shutdown error")
	}
	cancel()
	sched.Wait()
	return runErr
}

func secs(n int) time.Duration { return time.Duration(n) * time.Second }
