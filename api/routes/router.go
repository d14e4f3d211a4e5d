package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sellgrid/marketplace-backend/api/controllers"
	"github.com/sellgrid/marketplace-backend/api/middleware"
	analyticsvc "github.com/sellgrid/marketplace-backend/internal/analytics"
	"github.com/sellgrid/marketplace-backend/internal/auth"
	"github.com/sellgrid/marketplace-backend/internal/cart"
	chatsvc "github.com/sellgrid/marketplace-backend/internal/chat"
	checkoutsvc "github.com/sellgrid/marketplace-backend/internal/checkout"
	commentsvc "github.com/sellgrid/marketplace-backend/internal/comments"
	"github.com/sellgrid/marketplace-backend/internal/notifications"
	ordersvc "github.com/sellgrid/marketplace-backend/internal/orders"
	"github.com/sellgrid/marketplace-backend/internal/products"
	"github.com/sellgrid/marketplace-backend/internal/profiles"
	paymentwebhook "github.com/sellgrid/marketplace-backend/internal/webhooks/payment"
	"github.com/sellgrid/marketplace-backend/pkg/auth/session"
	"github.com/sellgrid/marketplace-backend/pkg/config"
	"github.com/sellgrid/marketplace-backend/pkg/db"
	"github.com/sellgrid/marketplace-backend/pkg/enums"
	"github.com/sellgrid/marketplace-backend/pkg/logger"
	"github.com/sellgrid/marketplace-backend/pkg/redis"
)

// Deps bundles everything the HTTP surface needs. Optional pieces may be nil;
// their routes then answer with an internal error instead of panicking.
type Deps struct {
	Config       *config.Config
	Logger       *logger.Logger
	DB           db.Pinger
	Redis        *redis.Client
	Sessions     session.AccessSessionChecker
	AuthService  auth.Service
	Register     auth.RegisterService
	Profiles     profiles.Service
	Products     products.Service
	Cart         cart.Service
	Checkout     checkoutsvc.Service
	Orders       ordersvc.Service
	Notification notifications.Service
	Dispatcher   *notifications.Dispatcher
	Chat         chatsvc.Service
	ChatStreamer *chatsvc.Streamer
	Comments     commentsvc.Service
	Analytics    analyticsvc.Service
	Webhook      *paymentwebhook.Service
}

func NewRouter(d Deps) http.Handler {
	cfg := d.Config
	logg := d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	loginPolicy := middleware.NewAuthRateLimitPolicy(
		"login",
		cfg.AuthRateLimit.LoginWindow,
		cfg.AuthRateLimit.LoginIPLimit,
		cfg.AuthRateLimit.LoginEmailLimit,
	)
	registerPolicy := middleware.NewAuthRateLimitPolicy(
		"register",
		cfg.AuthRateLimit.RegisterWindow,
		cfg.AuthRateLimit.RegisterIPLimit,
		cfg.AuthRateLimit.RegisterEmailLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", controllers.StripeWebhook(d.Webhook, logg))
	})

	r.Route("/api/v1/auth", func(r chi.Router) {
		r.With(middleware.AuthRateLimit(registerPolicy, d.Redis, logg)).
			Post("/register", controllers.AuthRegister(d.Register, d.AuthService, logg))
		r.With(middleware.AuthRateLimit(loginPolicy, d.Redis, logg)).
			Post("/login", controllers.AuthLogin(d.AuthService, logg))
		r.Post("/refresh", controllers.AuthRefresh(d.AuthService, logg))
		r.Post("/logout", controllers.AuthLogout(cfg.JWT, d.AuthService, logg))
	})

	// Typed nil must not reach the middleware's interface check.
	var idemStore redis.IdempotencyStore
	if d.Redis != nil {
		idemStore = d.Redis
	}

	// Catalog reads are public; mutations live on the same mount because a
	// separate /api/v1 registration for /products paths would be shadowed by
	// this more specific subrouter.
	r.Route("/api/v1/products", func(r chi.Router) {
		r.Get("/", controllers.ListProducts(d.Products, logg))
		r.Get("/{productId}", controllers.GetProduct(d.Products, logg))
		r.Get("/{productId}/comments", controllers.ListProductComments(d.Comments, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
			r.Use(middleware.RequireRole(string(enums.ProfileRoleSeller), logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Post("/", controllers.CreateProduct(d.Products, logg))
			r.Patch("/{productId}", controllers.UpdateProduct(d.Products, logg))
			r.Delete("/{productId}", controllers.DeactivateProduct(d.Products, logg))
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.Idempotency(idemStore, logg))

		r.Route("/me", func(r chi.Router) {
			r.Get("/", controllers.Me(d.Profiles, logg))
			r.Patch("/", controllers.UpdateMe(d.Profiles, logg))
		})

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", controllers.GetCart(d.Cart, logg))
			r.Post("/items", controllers.AddCartItem(d.Cart, logg))
			r.Patch("/items", controllers.UpdateCartQuantity(d.Cart, logg))
			r.Delete("/items/{productId}", controllers.RemoveCartItem(d.Cart, logg))
			r.Delete("/", controllers.ClearCart(d.Cart, logg))
		})

		r.Post("/checkout", controllers.Checkout(d.Checkout, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", controllers.ListOrders(d.Orders, logg))
			r.Get("/{orderId}", controllers.GetOrder(d.Orders, logg))
			r.Patch("/{orderId}/status", controllers.UpdateOrderStatus(d.Orders, logg))
			r.Post("/{orderId}/driver", controllers.AssignDriver(d.Orders, logg))
		})

		r.Route("/chat", func(r chi.Router) {
			r.Post("/messages", controllers.SendMessage(d.Chat, logg))
			r.Post("/messages/{messageId}/read", controllers.MarkMessageRead(d.Chat, logg))
			r.Get("/{otherId}", controllers.ChatHistory(d.Chat, logg))
			r.Get("/{otherId}/ws", controllers.ChatStream(d.ChatStreamer, logg))
		})

		r.Route("/comments", func(r chi.Router) {
			r.Post("/", controllers.CreateComment(d.Comments, logg))
			r.Patch("/{commentId}", controllers.UpdateComment(d.Comments, logg))
			r.Delete("/{commentId}", controllers.DeleteComment(d.Comments, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.ProfileRoleSeller), logg))

			r.Get("/seller/products", controllers.ListSellerProducts(d.Products, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(d.Notification, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(d.Notification, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notification, logg))
			})

			r.Get("/seller/analytics/summary", controllers.SellerAnalyticsSummary(d.Analytics, logg))
		})
	})

	// Operator tooling, replays the fan-out for an order.
	r.Route("/internal", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, d.Sessions, logg))
		r.Use(middleware.RequireRole(string(enums.ProfileRoleSeller), logg))
		r.Post("/notifications/dispatch", controllers.DispatchNotifications(d.Dispatcher, logg))
	})

	return r
}
