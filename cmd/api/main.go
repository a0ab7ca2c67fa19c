package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/multierr"

	"github.com/angelmondragon/deliverycart/api/controllers"
	"github.com/angelmondragon/deliverycart/api/routes"
	"github.com/angelmondragon/deliverycart/internal/cart"
	"github.com/angelmondragon/deliverycart/internal/checkout"
	"github.com/angelmondragon/deliverycart/internal/delivery"
	"github.com/angelmondragon/deliverycart/internal/handoff"
	"github.com/angelmondragon/deliverycart/internal/vendors"
	"github.com/angelmondragon/deliverycart/pkg/config"
	"github.com/angelmondragon/deliverycart/pkg/db"
	"github.com/angelmondragon/deliverycart/pkg/logger"
	"github.com/angelmondragon/deliverycart/pkg/maps"
	"github.com/angelmondragon/deliverycart/pkg/metrics"
	"github.com/angelmondragon/deliverycart/pkg/migrate"
	"github.com/angelmondragon/deliverycart/pkg/ordersapi"
	"github.com/angelmondragon/deliverycart/pkg/outbox"
	"github.com/angelmondragon/deliverycart/pkg/redis"
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

func run(cfg *config.Config, logg *logger.Logger) (err error) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, dbClient.Close()) }()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() { err = multierr.Append(err, redisClient.Close()) }()

	cartRepo, err := cart.NewRepository(redisClient, cfg.Session.CartTTL)
	if err != nil {
		return err
	}
	cartLock, err := cart.NewRedisSessionLock(redisClient, cfg.Session.CartLockTTL, cfg.Session.CartLockWait)
	if err != nil {
		return err
	}
	cartService, err := cart.NewService(cartRepo, cartLock)
	if err != nil {
		return err
	}
	handoffService, err := handoff.NewService(redisClient, cartService, cfg.Session.HandoffTTL)
	if err != nil {
		return err
	}

	schedule, err := delivery.ScheduleFromConfig(cfg.Delivery)
	if err != nil {
		return err
	}
	calculator, err := delivery.NewCalculator(schedule)
	if err != nil {
		return err
	}

	ordersClient, err := ordersapi.NewClient(cfg.OrdersAPI.BaseURL, ordersapi.WithTimeout(cfg.OrdersAPI.Timeout))
	if err != nil {
		return err
	}

	guard, err := checkout.NewSubmitGuard(redisClient, cfg.Session.SubmitGuardTTL)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	checkoutMetrics := metrics.NewCheckoutMetrics(registry)

	events := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	params := checkout.ServiceParams{
		Carts:      cartService,
		Vendors:    vendors.NewRepository(dbClient.DB()),
		Orders:     ordersClient,
		Pricing:    calculator,
		Guard:      guard,
		Attempts:   checkout.NewRepository(dbClient.DB(), events),
		Metrics:    checkoutMetrics,
		Logger:     logg,
		GeoTimeout: cfg.Delivery.GeoTimeout,
	}

	if cfg.GoogleMaps.APIKey != "" {
		mapsClient, err := maps.NewClient(cfg.GoogleMaps.APIKey)
		if err != nil {
			return err
		}
		params.Geocoder = mapsClient
	} else {
		logg.Warn(ctx, "google maps key not set, delivery fees fall back when no device location is sent")
	}

	checkoutService, err := checkout.NewService(params)
	if err != nil {
		return err
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":        cfg.App.Env,
		"addr":       addr,
		"fee_policy": schedule.Policy.String(),
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: routes.NewRouter(cfg, logg, map[string]controllers.Pinger{"db": dbClient, "redis": redisClient}, registry, cartService, handoffService, checkoutService),
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "api server shutting down gracefully")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.App.ShutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
