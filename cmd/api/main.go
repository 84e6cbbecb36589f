package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/studyloop/studyloop-backend/api/routes"
	"github.com/studyloop/studyloop-backend/internal/accesscodes"
	"github.com/studyloop/studyloop-backend/internal/courses"
	"github.com/studyloop/studyloop-backend/internal/entitlements"
	"github.com/studyloop/studyloop-backend/internal/grants"
	"github.com/studyloop/studyloop-backend/internal/users"
	"github.com/studyloop/studyloop-backend/internal/wallet"
	"github.com/studyloop/studyloop-backend/pkg/auth/session"
	"github.com/studyloop/studyloop-backend/pkg/config"
	"github.com/studyloop/studyloop-backend/pkg/db"
	"github.com/studyloop/studyloop-backend/pkg/logger"
	"github.com/studyloop/studyloop-backend/pkg/metrics"
	"github.com/studyloop/studyloop-backend/pkg/migrate"
	"github.com/studyloop/studyloop-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	codesRepo := accesscodes.NewRepository(dbClient.DB())
	grantsRepo := grants.NewRepository(dbClient.DB())
	coursesRepo := courses.NewRepository(dbClient.DB())
	usersRepo := users.NewRepository(dbClient.DB())
	walletRepo := wallet.NewRepository(dbClient.DB())

	walletService, err := wallet.NewService(walletRepo, usersRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create wallet service", err)
		os.Exit(1)
	}

	codesService, err := accesscodes.NewService(codesRepo, coursesRepo, usersRepo, cfg.Access.CodeTTL, cfg.Access.MaxBatchSize)
	if err != nil {
		logg.Error(context.Background(), "failed to create access code service", err)
		os.Exit(1)
	}

	entitlementsService, err := entitlements.NewService(
		codesRepo,
		grantsRepo,
		coursesRepo,
		walletService,
		logg,
		cfg.Access.AdminHorizon,
		nil,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create entitlement service", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(promRegistry)

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	id := os.Getenv("DYNO")
	if id == "" {
		id = "local"
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": id,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.Deps{
			Cfg:            cfg,
			Logg:           logg,
			DBPinger:       dbClient,
			RedisClient:    redisClient,
			Sessions:       sessionManager,
			SessionManager: sessionManager,
			Metrics:        httpMetrics,
			MetricsHandler: promRegistry,
			AccessCodes:    codesService,
			Entitlements:   entitlementsService,
			Wallet:         walletService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
