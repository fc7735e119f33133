package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/fastworkhq/fastwork-backend/api/routes"
	"github.com/fastworkhq/fastwork-backend/internal/jobs"
	"github.com/fastworkhq/fastwork-backend/internal/lifecycle"
	"github.com/fastworkhq/fastwork-backend/internal/notifications"
	"github.com/fastworkhq/fastwork-backend/internal/ratings"
	"github.com/fastworkhq/fastwork-backend/internal/users"
	"github.com/fastworkhq/fastwork-backend/internal/wallet"
	"github.com/fastworkhq/fastwork-backend/pkg/config"
	"github.com/fastworkhq/fastwork-backend/pkg/db"
	"github.com/fastworkhq/fastwork-backend/pkg/logger"
	"github.com/fastworkhq/fastwork-backend/pkg/metrics"
	"github.com/fastworkhq/fastwork-backend/pkg/migrate"
	"github.com/fastworkhq/fastwork-backend/pkg/outbox"
	"github.com/fastworkhq/fastwork-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
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

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	userRepo := users.NewRepository(conn)

	userService, err := users.NewService(userRepo, dbClient, cfg.Password)
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	jobService, err := jobs.NewService(jobs.NewRepository(conn), userRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create jobs service", err)
		os.Exit(1)
	}

	walletService, err := wallet.NewService(wallet.NewRepository(conn), dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	ratingService, err := ratings.NewService(ratings.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create ratings service", err)
		os.Exit(1)
	}

	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	lifecycleService, err := lifecycle.NewService(
		lifecycle.NewRepository(conn),
		dbClient,
		publisher,
		walletService,
		ratingService,
		userRepo,
		metrics.NewLifecycleMetrics(prometheus.DefaultRegisterer),
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create lifecycle service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(conn))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			userService,
			jobService,
			lifecycleService,
			walletService,
			notificationService,
		),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
