package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/sellgrid/marketplace-backend/api/routes"
	"github.com/sellgrid/marketplace-backend/internal/analytics"
	"github.com/sellgrid/marketplace-backend/internal/auth"
	"github.com/sellgrid/marketplace-backend/internal/cart"
	"github.com/sellgrid/marketplace-backend/internal/chat"
	"github.com/sellgrid/marketplace-backend/internal/checkout"
	"github.com/sellgrid/marketplace-backend/internal/comments"
	"github.com/sellgrid/marketplace-backend/internal/notifications"
	"github.com/sellgrid/marketplace-backend/internal/orders"
	"github.com/sellgrid/marketplace-backend/internal/products"
	"github.com/sellgrid/marketplace-backend/internal/profiles"
	paymentwebhook "github.com/sellgrid/marketplace-backend/internal/webhooks/payment"
	"github.com/sellgrid/marketplace-backend/pkg/auth/session"
	"github.com/sellgrid/marketplace-backend/pkg/config"
	"github.com/sellgrid/marketplace-backend/pkg/db"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/migrate"
	"github.com/sellgrid/marketplace-backend/pkg/outbox"
	"github.com/sellgrid/marketplace-backend/pkg/redis"
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

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	profileRepo := profiles.NewRepository(dbClient.DB())
	productRepo := products.NewRepository(dbClient.DB())
	cartRepo := cart.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	notificationsRepo := notifications.NewRepository(dbClient.DB())
	chatRepo := chat.NewRepository(dbClient.DB())
	commentsRepo := comments.NewRepository(dbClient.DB())
	analyticsRepo := analytics.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	authService, err := auth.NewService(auth.ServiceParams{
		ProfileRepo:    profileRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
	})
	exitOnError(logg, "auth service", err)

	registerService, err := auth.NewRegisterService(auth.RegisterServiceParams{
		DB:             dbClient,
		PasswordConfig: cfg.Password,
	})
	exitOnError(logg, "register service", err)

	profilesService, err := profiles.NewService(profileRepo)
	exitOnError(logg, "profiles service", err)

	productsService, err := products.NewService(productRepo)
	exitOnError(logg, "products service", err)

	cartService, err := cart.NewService(cartRepo, productRepo)
	exitOnError(logg, "cart service", err)

	paymentSessions, err := checkout.NewStripeSessionCreator(cfg.Stripe)
	exitOnError(logg, "stripe session creator", err)

	checkoutService, err := checkout.NewService(dbClient, cartRepo, ordersRepo, productRepo, outboxService, paymentSessions)
	exitOnError(logg, "checkout service", err)

	ordersService, err := orders.NewService(dbClient, ordersRepo, outboxService)
	exitOnError(logg, "orders service", err)

	notificationsService, err := notifications.NewService(notificationsRepo)
	exitOnError(logg, "notifications service", err)

	dispatcher, err := notifications.NewDispatcher(notificationsRepo, ordersRepo, logg)
	exitOnError(logg, "notification dispatcher", err)

	chatService, err := chat.NewService(chatRepo, profileRepo, redisClient, logg)
	exitOnError(logg, "chat service", err)

	chatStreamer, err := chat.NewStreamer(redisClient, cfg.Chat, logg)
	exitOnError(logg, "chat streamer", err)

	commentsService, err := comments.NewService(commentsRepo, productRepo)
	exitOnError(logg, "comments service", err)

	analyticsService, err := analytics.NewService(analyticsRepo)
	exitOnError(logg, "analytics service", err)

	webhookService, err := paymentwebhook.NewService(dbClient, ordersRepo, outboxService, logg, cfg.Stripe)
	exitOnError(logg, "payment webhook service", err)

	router := routes.NewRouter(routes.Deps{
		Config:       cfg,
		Logger:       logg,
		DB:           dbClient,
		Redis:        redisClient,
		Sessions:     sessionManager,
		AuthService:  authService,
		Register:     registerService,
		Profiles:     profilesService,
		Products:     productsService,
		Cart:         cartService,
		Checkout:     checkoutService,
		Orders:       ordersService,
		Notification: notificationsService,
		Dispatcher:   dispatcher,
		Chat:         chatService,
		ChatStreamer: chatStreamer,
		Comments:     commentsService,
		Analytics:    analyticsService,
		Webhook:      webhookService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "api server shutdown failed", err)
			os.Exit(1)
		}
		logg.Info(ctx, "api server shutting down gracefully")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	}
}

func exitOnError(logg *logger.Logger, component string, err error) {
	if err == nil {
		return
	}
	logg.Error(context.Background(), "failed to create "+component, err)
	os.Exit(1)
}
