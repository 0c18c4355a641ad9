// Package app wires the checkout API server together.
package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/xenking/kart-checkout/internal/domain/catalog"
	"github.com/xenking/kart-checkout/internal/domain/checkout"
	"github.com/xenking/kart-checkout/internal/domain/order"
	"github.com/xenking/kart-checkout/internal/handler"
	stripeprovider "github.com/xenking/kart-checkout/internal/provider/stripe"
	"github.com/xenking/kart-checkout/internal/storage/postgres"
	"github.com/xenking/kart-checkout/pkg/health"
	"github.com/xenking/kart-checkout/pkg/httpmiddleware"
)

// Run creates all dependencies, starts the HTTP server, and handles graceful
// shutdown. It is the single wiring point for the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))

	// Repositories.
	itemRepo := postgres.NewItemRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	pricingRepo := postgres.NewPricingRepository(pool)

	// Domain services.
	creds := cfg.Stripe.Credentials()
	for _, cur := range catalog.Currencies() {
		if _, ok := creds.SecretKey(cur); !ok {
			lg.Warn("Stripe secret key not configured", zap.Stringer("currency", cur))
		}
	}
	orderService := order.NewService(orderRepo, pricingRepo)
	checkoutService, err := checkout.NewService(
		checkout.Config{
			Credentials: creds,
			SuccessURL:  cfg.Stripe.SuccessURL,
			CancelURL:   cfg.Stripe.CancelURL,
		},
		itemRepo,
		orderRepo,
		stripeprovider.New(stripeprovider.Config{APIURL: cfg.Stripe.APIURL}, lg),
		m.TracerProvider(),
		m.MeterProvider(),
	)
	if err != nil {
		return errors.Wrap(err, "create checkout service")
	}

	// HTTP.
	h, err := handler.New(itemRepo, orderService, checkoutService)
	if err != nil {
		return errors.Wrap(err, "create handler")
	}
	limiter := httpmiddleware.NewLimiter(httpmiddleware.RateLimitConfig{
		Max:    cfg.RateLimit.Max,
		Window: cfg.RateLimit.Window,
	})
	go limiter.Run(ctx)

	router := h.Router(handler.RouterConfig{
		Health:        healthSvc,
		CheckoutLimit: limiter.Middleware(),
	})

	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler:           serverHandler(zctx.From(ctx), router, cfg, m.TracerProvider(), m.MeterProvider()),
	}
	healthSvc.SetReady(true)

	// Graceful shutdown: wait for context cancellation, drain, then stop.
	shutdownDone := make(chan struct{})
	go func() {
		<-ctx.Done()
		healthSvc.SetReady(false)
		lg.Info("Readiness set to false, draining", zap.Duration("delay", cfg.Graceful.ReadinessDelay))
		time.Sleep(cfg.Graceful.ReadinessDelay)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Graceful.ShutdownTimeout)
		defer cancel()

		lg.Info("Shutting down server", zap.Duration("timeout", cfg.Graceful.ShutdownTimeout))
		if err := server.Shutdown(shutdownCtx); err != nil {
			lg.Error("Server shutdown error", zap.Error(err))
		}
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}

// serverHandler wraps the router with the server middleware. The logger is
// injected outermost so Recovery and the rest log through it.
func serverHandler(
	lg *zap.Logger,
	router http.Handler,
	cfg *Config,
	tp trace.TracerProvider,
	mp metric.MeterProvider,
) http.Handler {
	return httpmiddleware.Wrap(router,
		httpmiddleware.InjectLogger(lg),
		httpmiddleware.Recovery(),
		httpmiddleware.CORS(httpmiddleware.CORSConfig{
			Origins:          cfg.CORS.Origins,
			AllowCredentials: cfg.CORS.AllowCredentials,
		}),
		httpmiddleware.RequestID(),
		httpmiddleware.Instrument("kart-checkout", tp, mp),
		httpmiddleware.LogRequests(),
	)
}
