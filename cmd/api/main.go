package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/danielvega/portfolio-backend/api/routes"
	"github.com/danielvega/portfolio-backend/internal/authz"
	"github.com/danielvega/portfolio-backend/internal/blogs"
	"github.com/danielvega/portfolio-backend/internal/notifications"
	"github.com/danielvega/portfolio-backend/internal/tags"
	"github.com/danielvega/portfolio-backend/internal/users"
	"github.com/danielvega/portfolio-backend/pkg/config"
	"github.com/danielvega/portfolio-backend/pkg/db"
	"github.com/danielvega/portfolio-backend/pkg/identity"
	"github.com/danielvega/portfolio-backend/pkg/logger"
	"github.com/danielvega/portfolio-backend/pkg/migrate"
	"github.com/danielvega/portfolio-backend/pkg/outbox"
	"github.com/danielvega/portfolio-backend/pkg/redis"
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

	identityClient, err := identity.NewClient(cfg.Identity, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create identity client", err)
		os.Exit(1)
	}

	writer := outbox.NewWriter(outbox.NewRepository(dbClient.DB()), logg)

	usersService, err := users.NewService(users.ServiceParams{
		DB:       dbClient,
		Identity: identityClient,
		Writer:   writer,
		Logger:   logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create users service", err)
		os.Exit(1)
	}

	tagsService, err := tags.NewService(tags.ServiceParams{
		DB:     dbClient,
		Writer: writer,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create tags service", err)
		os.Exit(1)
	}

	blogsService, err := blogs.NewService(blogs.ServiceParams{
		DB:     dbClient,
		Writer: writer,
		Tags:   tagsService,
		Logger: logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create blogs service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	authzService, err := authz.NewService(authz.ServiceParams{
		Repository: authz.NewRepository(dbClient.DB()),
		Cache:      redisClient,
		Logger:     logg,
		TTL:        cfg.Cache.DefaultTTL,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create authorization service", err)
		os.Exit(1)
	}

	metricsRegistry := prometheus.NewRegistry()

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
		Handler: routes.NewRouter(routes.RouterParams{
			Config:        cfg,
			Logger:        logg,
			DBPinger:      dbClient,
			RedisPinger:   redisClient,
			Registry:      metricsRegistry,
			Users:         usersService,
			Blogs:         blogsService,
			Tags:          tagsService,
			Notifications: notificationsService,
			Authz:         authzService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
