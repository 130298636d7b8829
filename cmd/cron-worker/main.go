package main

import (
	"context"
	"errors"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/ecoforge/ecoforge-backend/internal/cron"
	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	"github.com/ecoforge/ecoforge-backend/internal/notifications"
	"github.com/ecoforge/ecoforge-backend/internal/projects"
	"github.com/ecoforge/ecoforge-backend/internal/quantity"
	"github.com/ecoforge/ecoforge-backend/internal/requests"
	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	store, err := keytree.NewFirebaseStore(context.Background(), cfg.Firebase)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap firebase", err)
		os.Exit(1)
	}

	var tree keytree.Store = store
	if !cfg.Stream.Disable {
		tree = keytree.WithEvents(store, redisClient, cfg.Stream.Channel, logg)
	}

	ledger, err := quantity.NewLedger(tree, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create quantity ledger", err)
		os.Exit(1)
	}

	rewardsService, err := gamification.NewService(gamification.ServiceParams{
		Repo:    gamification.NewRepository(tree),
		Rewards: cfg.Rewards,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create gamification service", err)
		os.Exit(1)
	}

	projectsService, err := projects.NewService(projects.ServiceParams{
		Repo:    projects.NewRepository(tree),
		Ledger:  ledger,
		Rewards: rewardsService,
		Config:  cfg.Rewards,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create projects service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.ServiceParams{
		Repo:   notifications.NewRepository(tree),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	cleanupJob, err := cron.NewNotificationCleanupJob(cron.NotificationCleanupJobParams{
		Logger:        logg,
		Notifications: notificationsService,
		Retention:     cfg.Cron.NotificationRetention,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create notification cleanup job", err)
		os.Exit(1)
	}

	backfillJob, err := cron.NewMaterialBackfillJob(cron.MaterialBackfillJobParams{
		Logger:    logg,
		Requests:  requests.NewRepository(tree),
		Projects:  projectsService,
		BatchSize: cfg.Cron.BackfillBatchSize,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create material backfill job", err)
		os.Exit(1)
	}

	lock, err := cron.NewRedisLock(redisClient, redisClient.LockKey("cron-worker"), cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: cron.NewRegistry(cleanupJob, backfillJob),
		Lock:     lock,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create cron service", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithField(ctx, "env", cfg.App.Env)
	logg.Info(ctx, "starting cron worker")

	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(ctx, "cron worker shutting down gracefully")
}
