package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/bazaar-backend/api/controllers"
	bargaincontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/bargains"
	ordercontrollers "github.com/angelmondragon/bazaar-backend/api/controllers/orders"
	"github.com/angelmondragon/bazaar-backend/api/middleware"
	"github.com/angelmondragon/bazaar-backend/internal/auth"
	"github.com/angelmondragon/bazaar-backend/internal/bargains"
	"github.com/angelmondragon/bazaar-backend/internal/notifications"
	"github.com/angelmondragon/bazaar-backend/internal/orders"
	"github.com/angelmondragon/bazaar-backend/internal/products"
	"github.com/angelmondragon/bazaar-backend/internal/settlement"
	"github.com/angelmondragon/bazaar-backend/internal/stores"
	"github.com/angelmondragon/bazaar-backend/pkg/config"
	"github.com/angelmondragon/bazaar-backend/pkg/enums"
	"github.com/angelmondragon/bazaar-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/bazaar-backend/pkg/redis"
)

// Cache is the redis surface the HTTP layer needs for idempotency and rate limiting.
type Cache interface {
	pkgredis.IdempotencyStore
	rateLimitStore
	Ping(ctx context.Context) error
}

type rateLimitStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Auth          auth.Service
	Stores        stores.Service
	Products      products.Service
	Bargains      bargains.Service
	Orders        orders.Service
	Settlement    settlement.Service
	Notifications notifications.Service
}

func NewRouter(cfg *config.Config, logg *logger.Logger, db controllers.Pinger, cache Cache, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	limits := cfg.RateLimit
	loginPolicy := middleware.LoginPolicy(limits.LoginWindow, limits.LoginIPLimit, limits.LoginEmailLimit)
	registerPolicy := middleware.RegisterPolicy(limits.RegisterWindow, limits.RegisterIPLimit, limits.RegisterEmailLimit)
	proposePolicy := middleware.ActorPolicy("bargain_propose", limits.BargainWindow, limits.BargainUserLimit)
	messagePolicy := middleware.ActorPolicy("bargain_message", limits.BargainWindow, limits.MessageUserLimit)

	var (
		rateStore rateLimitStore
		idemStore pkgredis.IdempotencyStore
	)
	readyDeps := map[string]controllers.Pinger{"database": db}
	if cache != nil {
		rateStore = cache
		idemStore = cache
		readyDeps["redis"] = cache
	}

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, readyDeps))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.RateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(svc.Auth, logg))
			r.With(middleware.RateLimit(registerPolicy, rateStore, logg)).Post("/register", controllers.AuthRegister(svc.Auth, logg))
		})

		r.Get("/products", controllers.ListProducts(svc.Products, logg))
		r.Get("/products/{productId}", controllers.GetProduct(svc.Products, logg))

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.JWT, logg))
			r.Use(middleware.Idempotency(idemStore, logg))

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
				r.Get("/unread-count", controllers.UnreadNotificationCount(svc.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
				r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
			})

			r.Route("/bargains", func(r chi.Router) {
				r.With(middleware.RequireRole(logg, enums.UserRoleBuyer), middleware.RateLimit(proposePolicy, rateStore, logg)).Post("/", bargaincontrollers.Propose(svc.Bargains, logg))
				r.With(middleware.RequireRole(logg, enums.UserRoleBuyer)).Get("/my", bargaincontrollers.ListMine(svc.Bargains, logg))
				r.Get("/{bargainId}", bargaincontrollers.Get(svc.Bargains, logg))
				r.With(middleware.RequireRole(logg, enums.UserRoleBuyer)).Post("/{bargainId}/respond", bargaincontrollers.BuyerRespond(svc.Bargains, logg))
				r.With(middleware.RateLimit(messagePolicy, rateStore, logg)).Post("/{bargainId}/messages", bargaincontrollers.PostMessage(svc.Bargains, logg))
			})

			r.Route("/orders", func(r chi.Router) {
				r.Get("/{orderId}", ordercontrollers.Detail(svc.Orders, logg))
				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireRole(logg, enums.UserRoleBuyer))
					r.Post("/", ordercontrollers.Create(svc.Orders, logg))
					r.Get("/my", ordercontrollers.ListMine(svc.Orders, logg))
					r.Post("/{orderId}/cancel", ordercontrollers.Cancel(svc.Orders, logg))
					r.Post("/{orderId}/payment", ordercontrollers.ConfirmPayment(svc.Orders, logg))
				})
			})

			r.Route("/seller", func(r chi.Router) {
				r.Use(middleware.RequireRole(logg, enums.UserRoleSeller))

				r.Post("/store", controllers.SellerCreateStore(svc.Stores, logg))
				r.Get("/store", controllers.SellerGetStore(svc.Stores, logg))
				r.Patch("/store", controllers.SellerUpdateStore(svc.Stores, logg))

				r.Get("/products", controllers.SellerListProducts(svc.Products, logg))
				r.Post("/products", controllers.SellerCreateProduct(svc.Products, logg))
				r.Patch("/products/{productId}", controllers.SellerUpdateProduct(svc.Products, logg))

				r.Get("/bargains", bargaincontrollers.SellerList(svc.Bargains, logg))
				r.Post("/bargains/{bargainId}/respond", bargaincontrollers.SellerRespond(svc.Bargains, logg))

				r.Get("/orders", ordercontrollers.SellerList(svc.Orders, logg))
				r.Post("/orders/{orderId}/status", ordercontrollers.SellerUpdateStatus(svc.Orders, logg))

				r.Get("/transactions", controllers.SellerTransactions(svc.Settlement, logg))
				r.Get("/transactions/summary", controllers.SellerTransactionSummary(svc.Settlement, logg))
			})
		})
	})

	return r
}
