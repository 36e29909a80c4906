package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"

	"github.com/brickyield/brickyield-backend/api/routes"
	"github.com/brickyield/brickyield-backend/internal/distribution"
	"github.com/brickyield/brickyield-backend/internal/properties"
	"github.com/brickyield/brickyield-backend/internal/registry"
	"github.com/brickyield/brickyield-backend/internal/roles"
	"github.com/brickyield/brickyield-backend/internal/vault"
	"github.com/brickyield/brickyield-backend/pkg/config"
	"github.com/brickyield/brickyield-backend/pkg/db"
	"github.com/brickyield/brickyield-backend/pkg/logger"
	"github.com/brickyield/brickyield-backend/pkg/metrics"
	"github.com/brickyield/brickyield-backend/pkg/migrate"
	"github.com/brickyield/brickyield-backend/pkg/outbox"
	"github.com/brickyield/brickyield-backend/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

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

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}

	shareRegistry, err := registry.NewHTTPRegistry(cfg.Registry)
	if err != nil {
		logg.Error(context.Background(), "failed to build share registry client", err)
		os.Exit(1)
	}
	stableVault, err := vault.NewHTTPVault(cfg.Vault)
	if err != nil {
		logg.Error(context.Background(), "failed to build vault client", err)
		os.Exit(1)
	}

	promRegistry := prometheus.NewRegistry()
	distMetrics := metrics.NewDistributionMetrics(promRegistry)

	conn := dbClient.DB()
	propsRepo := properties.NewRepository(conn)
	distRepo := distribution.NewRepository(conn)
	publisher := outbox.NewService(outbox.NewRepository(conn), logg)

	roleService, err := roles.NewService(propsRepo, roles.NewRepository(conn), distRepo, dbClient, publisher, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create role service", err)
		os.Exit(1)
	}

	distService, err := distribution.NewService(
		propsRepo, distRepo, dbClient, publisher,
		stableVault, shareRegistry, distMetrics, cfg.Distribution, logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create distribution service", err)
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
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, dbClient, redisClient, promRegistry, roleService, distService),
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		if err != nil {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-sigCtx.Done():
		logg.Info(ctx, "shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err = multierr.Combine(
		server.Shutdown(shutdownCtx),
		redisClient.Close(),
		dbClient.Close(),
	)
	if err != nil {
		logg.Error(ctx, "error during shutdown", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server shut down cleanly")
}
