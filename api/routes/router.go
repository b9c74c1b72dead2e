package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/farmmarket-backend/api/controllers"
	ordercontrollers "github.com/angelmondragon/farmmarket-backend/api/controllers/orders"
	"github.com/angelmondragon/farmmarket-backend/api/middleware"
	"github.com/angelmondragon/farmmarket-backend/internal/admin"
	"github.com/angelmondragon/farmmarket-backend/internal/auth"
	"github.com/angelmondragon/farmmarket-backend/internal/catalog"
	"github.com/angelmondragon/farmmarket-backend/internal/orders"
	"github.com/angelmondragon/farmmarket-backend/internal/payments"
	"github.com/angelmondragon/farmmarket-backend/pkg/auth/session"
	"github.com/angelmondragon/farmmarket-backend/pkg/config"
	"github.com/angelmondragon/farmmarket-backend/pkg/enums"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/metrics"
	"github.com/angelmondragon/farmmarket-backend/pkg/redis"
)

// NewRouter assembles the HTTP surface. redisClient may be nil, which turns
// off idempotency replay and auth rate limiting. metricsHandler defaults to
// the global prometheus handler.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisClient *redis.Client,
	sessions session.Checker,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	authService auth.Service,
	catalogService catalog.Service,
	buyerLocator controllers.BuyerLocator,
	ordersService orders.Service,
	paymentsService payments.Service,
	adminService admin.Service,
) http.Handler {
	var (
		idempotencyStore redis.IdempotencyStore
		rateStore        middleware.RateLimiterStore
		redisPinger      controllers.Pinger
	)
	if redisClient != nil {
		idempotencyStore = redisClient
		rateStore = redisClient
		redisPinger = redisClient
	}
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg, httpMetrics),
		middleware.CORS(cfg.App.CORSOrigins),
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

	idempotent := middleware.Idempotency(idempotencyStore, logg, middleware.DefaultIdempotencyTTL)
	idempotentOrder := middleware.Idempotency(idempotencyStore, logg, middleware.OrderIdempotencyTTL)
	authed := middleware.Auth(cfg.JWT, sessions, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisPinger))
	})
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(registerPolicy, rateStore, logg), idempotent).Post("/register", controllers.AuthRegister(authService, logg))
			r.With(middleware.AuthRateLimit(loginPolicy, rateStore, logg)).Post("/login", controllers.AuthLogin(authService, logg))
			r.Post("/refresh", controllers.AuthRefresh(authService, logg))
			r.With(authed).Post("/logout", controllers.AuthLogout(authService, logg))
			r.With(authed).Get("/me", controllers.AuthMe(authService, logg))
		})

		r.With(middleware.OptionalAuth(cfg.JWT, sessions, logg)).Get("/products", controllers.ListProducts(catalogService, buyerLocator, logg))

		r.Route("/orders", func(r chi.Router) {
			r.Use(authed)
			buyerOnly := middleware.RequireRole(logg, enums.UserRoleBuyer)
			r.With(buyerOnly, idempotentOrder).Post("/", ordercontrollers.Create(ordersService, logg))
			r.With(buyerOnly).Get("/", ordercontrollers.ListBuyer(ordersService, logg))
			r.Get("/{orderId}", ordercontrollers.Detail(ordersService, logg))
			r.With(buyerOnly, idempotent).Post("/{orderId}/verify-payment", ordercontrollers.VerifyPayment(paymentsService, logg))
		})

		r.Route("/farmer", func(r chi.Router) {
			r.Use(authed, middleware.RequireRole(logg, enums.UserRoleFarmer))
			r.Route("/products", func(r chi.Router) {
				r.Get("/", controllers.FarmerListProducts(catalogService, logg))
				r.Post("/", controllers.FarmerCreateProduct(catalogService, logg))
				r.Put("/{productId}", controllers.FarmerUpdateProduct(catalogService, logg))
				r.Delete("/{productId}", controllers.FarmerDeleteProduct(catalogService, logg))
			})
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", ordercontrollers.ListFarmer(ordersService, logg))
				r.Put("/{orderId}/status", ordercontrollers.UpdateStatus(ordersService, logg))
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(authed, middleware.RequireRole(logg, enums.UserRoleAdmin))
			r.Get("/farmers/pending", controllers.AdminPendingFarmers(adminService, logg))
			r.Put("/farmers/{userId}/approval", controllers.AdminSetFarmerApproval(adminService, logg))
			r.Get("/users", controllers.AdminListUsers(adminService, logg))
			r.Delete("/users/{userId}", controllers.AdminDeleteUser(adminService, logg))
			r.Get("/products", controllers.AdminListProducts(catalogService, logg))
			r.Delete("/products/{productId}", controllers.AdminDeleteProduct(catalogService, logg))
			r.Get("/stats", controllers.AdminStats(adminService, logg))
		})
	})

	return r
}
