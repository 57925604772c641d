// Command sweep releases expired holds against the configured Postgres
// database. By default it runs one sweep and exits, for use from cron; with
// --loop it keeps sweeping until interrupted.
package main

import (
	"context"
	"fmt"
	stdlog "log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/jwenger100/event-tickets-reservations/internal/app"
	"github.com/jwenger100/event-tickets-reservations/internal/clock"
	"github.com/jwenger100/event-tickets-reservations/internal/config"
	"github.com/jwenger100/event-tickets-reservations/internal/events"
	"github.com/jwenger100/event-tickets-reservations/internal/logging"
	"github.com/jwenger100/event-tickets-reservations/internal/observability"
	"github.com/jwenger100/event-tickets-reservations/internal/storage/postgres"
)

const shutdownTimeout = 10 * time.Second

func main() {
	loop := pflag.Bool("loop", false, "keep sweeping on an interval until interrupted")
	interval := pflag.Duration("interval", 0, "sweep interval with --loop (defaults to SWEEP_INTERVAL_MINUTES)")
	databaseURL := pflag.String("database-url", "", "Postgres DSN (defaults to DATABASE_URL)")
	logLevel := pflag.String("log-level", "", "log level (defaults to LOG_LEVEL)")
	pflag.Parse()

	if err := run(*loop, *interval, *databaseURL, *logLevel); err != nil {
		stdlog.Fatalf("sweep: %v", err)
	}
}

func run(loop bool, interval time.Duration, databaseURL, logLevel string) error {
	if _, err := config.LoadEnvFile(); err != nil {
		stdlog.Printf("WARN: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if databaseURL != "" {
		cfg.DatabaseURL = databaseURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if interval <= 0 {
		interval = cfg.SweepInterval()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := observability.Setup(ctx, cfg.OtelEndpoint, cfg.OtelInsecure)
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

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Warn("close event publisher", zap.Error(err))
		}
	}()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect to db: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	sweeper := app.NewSweeper(postgres.NewHoldRepository(pool), clock.NewSystem(),
		app.WithSweepInterval(interval),
		app.WithLogger(logger),
		app.WithPublisher(publisher),
	)

	if loop {
		sweeper.Run(ctx)
		return nil
	}

	result, err := sweeper.RunOnce(ctx)
	if err != nil {
		return err
	}
	logger.Info("sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", result.Failed),
	)
	return nil
}
