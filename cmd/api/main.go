package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/merchantkit/unionpay-bridge/internal/bootstrap"
	"github.com/merchantkit/unionpay-bridge/internal/controller"
	"github.com/merchantkit/unionpay-bridge/internal/gateway"
	infraRedis "github.com/merchantkit/unionpay-bridge/internal/infrastructure/redis"
	"github.com/merchantkit/unionpay-bridge/internal/repository/postgres"
	"github.com/merchantkit/unionpay-bridge/internal/service"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.New(ctx, "unionpay-bridge", "unionpay")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap: %v\n", err)
		os.Exit(1)
	}
	defer app.Close()

	gwCfg := app.Config.Gateway

	// --- Repositories ---
	orderStore := postgres.NewOrderStore(app.Pool)
	idempotencyRepo := postgres.NewIdempotencyRepository(app.Pool)

	// --- Gateway ---
	yedpay := gateway.NewYedpayClient(
		gateway.OperationMode(gwCfg.Mode),
		gwCfg.APIToken,
		gateway.WithTimeout(gwCfg.RequestTimeout),
	)
	factory := gateway.NewFactory(gateway.NewInstrumentedGateway(yedpay, app.Metrics))

	// --- Services ---
	locker := infraRedis.NewOrderLocker(
		app.Redis,
		app.Config.Reconcile.LockTTL,
		app.Config.Reconcile.LockRetries,
		app.Config.Reconcile.LockRetryDelay,
		app.Metrics,
	)
	initiator := service.NewInitiator(orderStore, factory, service.InitiatorConfig{
		GatewayName: yedpay.Name(),
		StoreID:     gwCfg.StoreID,
		ReturnURL:   gwCfg.ReturnURL,
		NotifyURL:   gwCfg.NotifyURL,
	}, app.Logger)
	txManager := postgres.NewTxManager(app.Pool)
	reconciler := service.NewReconciler(orderStore, locker, txManager, app.Logger)
	refundProcessor := service.NewRefundProcessor(orderStore, factory, locker, txManager, yedpay.Name(), app.Logger)

	// --- Build router ---
	router := controller.NewRouter(controller.RouterDeps{
		Pool:            app.Pool,
		RedisClient:     app.Redis,
		Initiator:       initiator,
		Reconciler:      reconciler,
		RefundProcessor: refundProcessor,
		IdempotencyRepo: idempotencyRepo,
		Metrics:         app.Metrics,
		CORSConfig:      app.Config.Server.CORS,
		WebhookSecret:   gwCfg.WebhookSecret,
	})

	// --- HTTP server ---
	addr := fmt.Sprintf(":%d", app.Config.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  app.Config.Server.ReadTimeout,
		WriteTimeout: app.Config.Server.WriteTimeout,
		IdleTimeout:  app.Config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		app.Logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return runIdempotencySweeper(gCtx, app.Logger, idempotencyRepo)
	})

	g.Go(func() error {
		select {
		case <-gCtx.Done():
			return gCtx.Err()
		case <-quit:
			app.Logger.Info().Msg("Shutting down server...")
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), app.Config.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			app.Logger.Error().Err(err).Msg("Server forced to shutdown")
		}
		cancel()
		return nil
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		app.Logger.Error().Err(err).Msg("Server error")
	}
	app.Logger.Info().Msg("Server exited")
}

// runIdempotencySweeper deletes expired idempotency keys on an hourly tick.
func runIdempotencySweeper(ctx context.Context, logger zerolog.Logger, repo *postgres.IdempotencyRepository) error {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}

		removed, err := repo.Cleanup(ctx)
		if err != nil {
			logger.Error().Err(err).Msg("Idempotency key cleanup failed")
			continue
		}
		if removed > 0 {
			logger.Info().Int64("removed", removed).Msg("Expired idempotency keys removed")
		}
	}
}
