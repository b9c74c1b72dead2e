package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/farmmarket-backend/api/routes"
	"github.com/angelmondragon/farmmarket-backend/internal/admin"
	"github.com/angelmondragon/farmmarket-backend/internal/auth"
	"github.com/angelmondragon/farmmarket-backend/internal/catalog"
	"github.com/angelmondragon/farmmarket-backend/internal/inventory"
	"github.com/angelmondragon/farmmarket-backend/internal/orders"
	"github.com/angelmondragon/farmmarket-backend/internal/payments"
	"github.com/angelmondragon/farmmarket-backend/internal/users"
	"github.com/angelmondragon/farmmarket-backend/pkg/auth/session"
	"github.com/angelmondragon/farmmarket-backend/pkg/config"
	"github.com/angelmondragon/farmmarket-backend/pkg/db"
	"github.com/angelmondragon/farmmarket-backend/pkg/geo"
	"github.com/angelmondragon/farmmarket-backend/pkg/logger"
	"github.com/angelmondragon/farmmarket-backend/pkg/metrics"
	"github.com/angelmondragon/farmmarket-backend/pkg/migrate"
	"github.com/angelmondragon/farmmarket-backend/pkg/outbox"
	pkgpayments "github.com/angelmondragon/farmmarket-backend/pkg/payments"
	"github.com/angelmondragon/farmmarket-backend/pkg/redis"
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

	if err := run(cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logg *logger.Logger) error {
	bootCtx := context.Background()

	dbClient, err := db.New(bootCtx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(bootCtx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(bootCtx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(bootCtx, "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := metrics.NewRegistry()

	gateway, err := pkgpayments.NewGateway(bootCtx, cfg.Payment, logg)
	if err != nil {
		return err
	}
	signer, err := pkgpayments.NewSigner(cfg.Payment.KeySecret)
	if err != nil {
		return err
	}

	region := geo.Region{
		Name:   cfg.Region.Name,
		MinLat: cfg.Region.MinLat,
		MaxLat: cfg.Region.MaxLat,
		MinLng: cfg.Region.MinLng,
		MaxLng: cfg.Region.MaxLng,
	}

	usersRepo := users.NewRepository(dbClient.DB())
	productsRepo := catalog.NewRepository(dbClient.DB())
	ordersRepo := orders.NewRepository(dbClient.DB())
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)

	if _, err := admin.EnsureAdmin(bootCtx, usersRepo, cfg.Admin, cfg.Password, logg); err != nil {
		return err
	}

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Region:         region,
		Logger:         logg,
	})
	if err != nil {
		return err
	}

	catalogService, err := catalog.NewService(productsRepo, dbClient, cfg.Catalog.RadiusKm)
	if err != nil {
		return err
	}

	ordersService, err := orders.NewService(orders.ServiceParams{
		Repo:         ordersRepo,
		Tx:           dbClient,
		Ledger:       inventory.NewLedger(),
		Gateway:      gateway,
		Outbox:       outboxService,
		Metrics:      metrics.NewOrderMetrics(reg),
		Logger:       logg,
		Currency:     cfg.Payment.Currency,
		PaymentKeyID: cfg.Payment.KeyID,
		RadiusKm:     cfg.Catalog.RadiusKm,
	})
	if err != nil {
		return err
	}

	paymentsService, err := payments.NewService(ordersRepo, dbClient, signer, outboxService, metrics.NewPaymentMetrics(reg), logg)
	if err != nil {
		return err
	}

	adminService, err := admin.NewService(admin.ServiceParams{
		Users:    usersRepo,
		Products: productsRepo,
		Orders:   ordersRepo,
		Tx:       dbClient,
		Outbox:   outboxService,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(bootCtx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(
			cfg,
			logg,
			dbClient,
			redisClient,
			sessionManager,
			metrics.NewHTTPMetrics(reg),
			metrics.Handler(reg),
			authService,
			catalogService,
			usersRepo,
			ordersService,
			paymentsService,
			adminService,
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
