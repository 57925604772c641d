package main

import (
	"context"
	"errors"
	"fmt"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/jwenger100/event-tickets-reservations/internal/app"
	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/config"
	"github.com/jwenger100/event-tickets-reservations/internal/events"
	"github.com/jwenger100/event-tickets-reservations/internal/logging"
	"github.com/jwenger100/event-tickets-reservations/internal/observability"
	"github.com/jwenger100/event-tickets-reservations/internal/storage/memory"
	"github.com/jwenger100/event-tickets-reservations/internal/storage/postgres"
	transporthttp "github.com/jwenger100/event-tickets-reservations/internal/transport/http"
	"github.com/jwenger100/event-tickets-reservations/migrations"
)

const (
	startupTimeout  = 5 * time.Second
	shutdownTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		stdlog.Fatalf("api: %v", err)
	}
}

func run() error {
	envPath, envErr := config.LoadEnvFile()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	defer cancel()

	providers, err := observability.Setup(startupCtx, cfg.OtelEndpoint, cfg.OtelInsecure)
	if err != nil {
		return fmt.Errorf("setup telemetry: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = providers.Shutdown(ctx)
	}()

	logger, err := logging.New(cfg.LogLevel, providers.LoggerProvider())
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	switch {
	case envErr != nil:
		logger.Warn("failed to load .env", zap.Error(envErr))
	case envPath == "":
		logger.Debug(".env not found in current or parent directories")
	default:
		logger.Info("loaded env file", zap.String("path", envPath))
	}

	repos, err := openRepositories(startupCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer repos.close()

	if len(cfg.KafkaBrokers) > 0 {
		logger.Info("publishing lifecycle events to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}
	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()

	clk := clock.NewSystem()
	opts := []app.Option{
		app.WithHoldTTL(cfg.HoldTTL()),
		app.WithSweepInterval(cfg.SweepInterval()),
		app.WithRates(cfg.ServiceFeeBP, cfg.TaxBP),
		app.WithLogger(logger),
		app.WithPublisher(publisher),
	}
	sweeper := app.NewSweeper(repos.sweep, clk, opts...)

	router := transporthttp.NewRouter(transporthttp.Deps{
		Holds:     app.NewHoldService(repos.holds, clk, opts...),
		Sales:     app.NewSaleService(repos.sales, clk, opts...),
		Inventory: app.NewInventoryService(repos.inventory, clk),
		Admin:     app.NewAdminService(repos.admin, clk),
		Sweeper:   sweeper,
		Clock:     clk,
		Logger:    logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           transporthttp.CORS(cfg.CORSOrigins, router),
		ReadHeaderTimeout: 10 * time.Second,
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sweeper.Run(stopCtx)
	}()

	srvErr := make(chan error, 1)
	go func() {
		srvErr <- server.ListenAndServe()
	}()
	logger.Info("api listening",
		zap.String("port", cfg.Port),
		zap.String("storage", cfg.StorageDriver),
		zap.Duration("hold_ttl", cfg.HoldTTL()),
	)

	select {
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", zap.Error(err))
		}
		stop()
	case <-stopCtx.Done():
		logger.Info("shutdown signal received, stopping server")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server shutdown error", zap.Error(err))
	}
	wg.Wait()
	logger.Info("server stopped")
	return nil
}

type repositories struct {
	holds     app.HoldRepository
	sales     app.SaleRepository
	inventory app.InventoryRepository
	admin     app.AdminRepository
	sweep     app.SweepRepository
	close     func()
}

func openRepositories(ctx context.Context, cfg config.Config, logger *zap.Logger) (repositories, error) {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn("using in-memory storage; data is lost on restart")
		store := memory.New()
		return repositories{
			holds:     store,
			sales:     store,
			inventory: store,
			admin:     store,
			sweep:     store,
			close:     func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return repositories{}, fmt.Errorf("connect to db: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return repositories{}, fmt.Errorf("db ping: %w", err)
	}
	if _, err := migrations.Apply(ctx, pool, logger); err != nil {
		pool.Close()
		return repositories{}, fmt.Errorf("apply migrations: %w", err)
	}

	holds := postgres.NewHoldRepository(pool)
	return repositories{
		holds:     holds,
		sales:     postgres.NewSaleRepository(pool),
		inventory: holds,
		admin:     postgres.NewAdminRepository(pool),
		sweep:     holds,
		close:     pool.Close,
	}, nil
}
