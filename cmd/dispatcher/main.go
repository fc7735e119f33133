package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fastworkhq/fastwork-backend/internal/notifications"
	"github.com/fastworkhq/fastwork-backend/pkg/config"
	"github.com/fastworkhq/fastwork-backend/pkg/db"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
	"github.com/fastworkhq/fastwork-backend/pkg/metrics"
	"github.com/fastworkhq/fastwork-backend/pkg/migrate"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "dispatcher"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "dispatcher",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	conn := dbClient.DB()
	dispatcher, err := notifications.NewDispatcher(
		outbox.NewRepository(conn),
		notifications.NewRepository(conn),
		dbClient,
		logg,
		metrics.NewDispatcherMetrics(prometheus.DefaultRegisterer),
		cfg.Dispatcher,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create dispatcher", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"pollInterval": cfg.Dispatcher.PollInterval.String(),
		"batchSize":    cfg.Dispatcher.BatchSize,
	})
	logg.Info(ctx, "starting notification dispatcher")

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "dispatcher stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "dispatcher shutting down gracefully")
}
