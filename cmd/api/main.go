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
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hoangkimbao/garage-backend/api/routes"
	"github.com/hoangkimbao/garage-backend/internal/appointments"
	"github.com/hoangkimbao/garage-backend/internal/auth"
	cartsvc "github.com/hoangkimbao/garage-backend/internal/cart"
	"github.com/hoangkimbao/garage-backend/internal/catalog"
	checkoutsvc "github.com/hoangkimbao/garage-backend/internal/checkout"
	"github.com/hoangkimbao/garage-backend/internal/contact"
	"github.com/hoangkimbao/garage-backend/internal/notifications"
	"github.com/hoangkimbao/garage-backend/internal/orders"
	"github.com/hoangkimbao/garage-backend/internal/payments/vnpay"
	"github.com/hoangkimbao/garage-backend/internal/revenue"
	"github.com/hoangkimbao/garage-backend/internal/users"
	"github.com/hoangkimbao/garage-backend/pkg/auth/session"
	"github.com/hoangkimbao/garage-backend/pkg/config"
	"github.com/hoangkimbao/garage-backend/pkg/db"
	"github.com/hoangkimbao/garage-backend/pkg/logger"
	"github.com/hoangkimbao/garage-backend/pkg/metrics"
	"github.com/hoangkimbao/garage-backend/pkg/migrate"
	"github.com/hoangkimbao/garage-backend/pkg/redis"
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

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	httpMetrics := metrics.NewHTTPMetrics(registry)
	payMetrics := metrics.NewPaymentMetrics(registry)

	mailer := notifications.NewMailer(cfg.SMTP)
	usersRepo := users.NewRepository(dbClient.DB())

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       usersRepo,
		SessionManager: sessionManager,
		OTPStore:       redisClient,
		Mailer:         mailer,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
		Logger:         logg,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(dbClient.DB())
	catalogService, err := catalog.NewService(catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	cartService, err := cartsvc.NewService(redisClient, catalogRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create cart service", err)
		os.Exit(1)
	}

	ordersRepo := orders.NewRepository(dbClient.DB())
	ordersService, err := orders.NewService(ordersRepo, dbClient)
	if err != nil {
		logg.Error(context.Background(), "failed to create orders service", err)
		os.Exit(1)
	}

	var paymentsService *vnpay.Service
	if cfg.VNPay.TmnCode != "" && cfg.VNPay.HashSecret != "" {
		gateway, err := vnpay.NewGateway(cfg.VNPay)
		if err != nil {
			logg.Error(context.Background(), "failed to create vnpay gateway", err)
			os.Exit(1)
		}
		paymentsService, err = vnpay.NewService(gateway, ordersService, cfg.Payment, payMetrics, logg)
		if err != nil {
			logg.Error(context.Background(), "failed to create payment service", err)
			os.Exit(1)
		}
	} else {
		logg.Warn(context.Background(), "vnpay credentials not configured, gateway checkout disabled")
	}

	var checkoutService *checkoutsvc.Service
	if paymentsService != nil {
		checkoutService, err = checkoutsvc.NewService(cartService, ordersRepo, dbClient, paymentsService, logg)
	} else {
		checkoutService, err = checkoutsvc.NewService(cartService, ordersRepo, dbClient, nil, logg)
	}
	if err != nil {
		logg.Error(context.Background(), "failed to create checkout service", err)
		os.Exit(1)
	}

	notificationsService, err := notifications.NewService(notifications.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create notifications service", err)
		os.Exit(1)
	}

	appointmentsService, err := appointments.NewService(
		appointments.NewRepository(dbClient.DB()),
		notificationsService,
		mailer,
		usersRepo,
		logg,
	)
	if err != nil {
		logg.Error(context.Background(), "failed to create appointments service", err)
		os.Exit(1)
	}

	contactService, err := contact.NewService(dbClient.DB())
	if err != nil {
		logg.Error(context.Background(), "failed to create contact service", err)
		os.Exit(1)
	}

	revenueService, err := revenue.NewService(revenue.NewRepository(dbClient.DB()))
	if err != nil {
		logg.Error(context.Background(), "failed to create revenue service", err)
		os.Exit(1)
	}

	router := routes.NewRouter(routes.Deps{
		Config:        cfg,
		Logger:        logg,
		HTTPMetrics:   httpMetrics,
		DB:            dbClient,
		Redis:         redisClient,
		Sessions:      sessionManager,
		Auth:          authService,
		Catalog:       catalogService,
		Cart:          cartService,
		Checkout:      checkoutService,
		Orders:        ordersService,
		Payments:      paymentsService,
		Appointments:  appointmentsService,
		Notifications: notificationsService,
		Contact:       contactService,
		Revenue:       revenueService,
		Users:         usersRepo,
		Metrics:       promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

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
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-shutdownCtx.Done():
		logg.Info(ctx, "shutting down api server")
		timeoutCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(timeoutCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
		}
	}
}
