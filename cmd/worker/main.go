package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/sellgrid/marketplace-backend/internal/analytics"
	"github.com/sellgrid/marketplace-backend/internal/notifications"
	ordersvc "github.com/sellgrid/marketplace-backend/internal/orders"
	"github.com/sellgrid/marketplace-backend/pkg/config"
	"github.com/sellgrid/marketplace-backend/pkg/db"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/metrics"
	"github.com/sellgrid/marketplace-backend/pkg/migrate"
	"github.com/sellgrid/marketplace-backend/pkg/outbox/idempotency"
	"github.com/sellgrid/marketplace-backend/pkg/pubsub"
	"github.com/sellgrid/marketplace-backend/pkg/redis"
)

func main() {
	ctx := context.Background()
	logg := logger.New(logger.Options{ServiceName: "worker"})

	_ = godotenv.Load()

	cfg, err := config.Load()
	requireResource(ctx, logg, "config", err)

	cfg.Service.Kind = "worker"

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(ctx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		requireResource(ctx, logg, "migrations", err)
	}

	redisClient, err := redis.New(ctx, cfg.Redis)
	requireResource(ctx, logg, "redis", err)
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(ctx, "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
	requireResource(ctx, logg, "pubsub", err)
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(ctx, "error closing pubsub client", err)
		}
	}()

	manager, err := idempotency.NewManager(redisClient, cfg.Eventing.ConsumerIdempotencyTTL)
	requireResource(ctx, logg, "idempotency manager", err)

	notificationsSub := pubsubClient.NotificationsSubscription()
	if notificationsSub == nil {
		requireResource(ctx, logg, "notifications subscription", errors.New("subscription not configured"))
	}
	analyticsSub := pubsubClient.AnalyticsSubscription()
	if analyticsSub == nil {
		requireResource(ctx, logg, "analytics subscription", errors.New("subscription not configured"))
	}

	ordersRepo := ordersvc.NewRepository(dbClient.DB())
	dispatcher, err := notifications.NewDispatcher(notifications.NewRepository(dbClient.DB()), ordersRepo, logg)
	requireResource(ctx, logg, "notification dispatcher", err)

	notificationsConsumer, err := notifications.NewConsumer(dispatcher, notificationsSub, manager, logg)
	requireResource(ctx, logg, "notifications consumer", err)

	analyticsRepo := analytics.NewRepository(dbClient.DB())
	rollup, err := analytics.NewRollup(analyticsRepo, logg)
	requireResource(ctx, logg, "analytics rollup", err)

	analyticsConsumer, err := analytics.NewConsumer(rollup, analyticsSub, manager, logg)
	requireResource(ctx, logg, "analytics consumer", err)

	registry := prometheus.NewRegistry()
	jobMetrics := metrics.NewJobMetrics(registry)

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	runCtx = logg.WithFields(runCtx, map[string]any{
		"env":         cfg.App.Env,
		"serviceKind": cfg.Service.Kind,
	})
	logg.Info(runCtx, "worker ready")

	group, groupCtx := errgroup.WithContext(runCtx)
	group.Go(func() error {
		return runConsumer(groupCtx, jobMetrics, "seller-notifications", notificationsConsumer.Run)
	})
	group.Go(func() error {
		return runConsumer(groupCtx, jobMetrics, "seller-analytics", analyticsConsumer.Run)
	})
	group.Go(func() error {
		return serveMetrics(groupCtx, logg, cfg.App.Port, registry)
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(runCtx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}

	logg.Info(runCtx, "worker shutting down gracefully")
}

func runConsumer(ctx context.Context, jobMetrics *metrics.JobMetrics, name string, run func(context.Context) error) error {
	start := time.Now()
	err := run(ctx)
	jobMetrics.ObserveDuration(name, time.Since(start))
	if err != nil && !errors.Is(err, context.Canceled) {
		jobMetrics.IncFailure(name)
		return fmt.Errorf("%s consumer: %w", name, err)
	}
	jobMetrics.IncSuccess(name)
	return err
}

func serveMetrics(ctx context.Context, logg *logger.Logger, port string, registry *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))

	server := &http.Server{Addr: ":" + port, Handler: mux}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "metrics server shutdown failed", err)
		}
		return ctx.Err()
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
