package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	"github.com/ecoforge/ecoforge-backend/api/routes"
	"github.com/ecoforge/ecoforge-backend/internal/achievements"
	"github.com/ecoforge/ecoforge-backend/internal/donations"
	"github.com/ecoforge/ecoforge-backend/internal/gamification"
	"github.com/ecoforge/ecoforge-backend/internal/notifications"
	"github.com/ecoforge/ecoforge-backend/internal/projects"
	"github.com/ecoforge/ecoforge-backend/internal/quantity"
	"github.com/ecoforge/ecoforge-backend/internal/requests"
	"github.com/ecoforge/ecoforge-backend/pkg/auth/session"
	"github.com/ecoforge/ecoforge-backend/pkg/config"
	"github.com/ecoforge/ecoforge-backend/pkg/keytree"
	"github.com/ecoforge/ecoforge-backend/pkg/logger"
	"github.com/ecoforge/ecoforge-backend/pkg/redis"
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
	var hub *keytree.Hub
	if !cfg.Stream.Disable {
		tree = keytree.WithEvents(store, redisClient, cfg.Stream.Channel, logg)
		hub = keytree.NewHub(logg, cfg.Stream.BufferSize)
	}

	sessions, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
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

	donationsService, err := donations.NewService(donations.ServiceParams{
		Repo:   donations.NewRepository(tree),
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create donations service", err)
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

	requestsService, err := requests.NewService(requests.ServiceParams{
		Repo:      requests.NewRepository(tree),
		Donations: donationsService,
		Ledger:    ledger,
		Projects:  projectsService,
		Rewards:   rewardsService,
		Notifier:  notificationsService,
		Logger:    logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create requests service", err)
		os.Exit(1)
	}

	achievementsService, err := achievements.NewService(achievements.ServiceParams{
		Repo:    achievements.NewRepository(tree),
		Rewards: rewardsService,
		Logger:  logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create achievements service", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if hub != nil {
		pubsub, err := redisClient.Subscribe(ctx, cfg.Stream.Channel)
		if err != nil {
			logg.Error(ctx, "failed to subscribe to stream channel", err)
			os.Exit(1)
		}
		defer pubsub.Close()
		go hub.Run(ctx, pubsub.Channel())
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Config:        cfg,
			Logger:        logg,
			Sessions:      sessions,
			Hub:           hub,
			Donations:     donationsService,
			Requests:      requestsService,
			Projects:      projectsService,
			Stats:         rewardsService,
			Achievements:  achievementsService,
			Notifications: notificationsService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(logCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
