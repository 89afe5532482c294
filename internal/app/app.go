package app

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/app"
	"github.com/go-faster/sdk/zctx"
	"github.com/gorilla/sessions"
	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/foxyglamour/storefront/internal/domain/account"
	"github.com/foxyglamour/storefront/internal/domain/auth"
	"github.com/foxyglamour/storefront/internal/domain/cart"
	"github.com/foxyglamour/storefront/internal/domain/courier"
	"github.com/foxyglamour/storefront/internal/domain/notify"
	"github.com/foxyglamour/storefront/internal/domain/order"
	"github.com/foxyglamour/storefront/internal/domain/report"
	"github.com/foxyglamour/storefront/internal/domain/site"
	"github.com/foxyglamour/storefront/internal/domain/visitor"
	"github.com/foxyglamour/storefront/internal/domain/wishlist"
	"github.com/foxyglamour/storefront/internal/handler"
	"github.com/foxyglamour/storefront/internal/pathao"
	"github.com/foxyglamour/storefront/internal/storage/postgres"
	"github.com/foxyglamour/storefront/internal/telegram"
	"github.com/foxyglamour/storefront/pkg/health"
	"github.com/foxyglamour/storefront/pkg/httpmiddleware"
)

// NewPathaoClient builds the courier client from configuration.
func NewPathaoClient(cfg PathaoConfig) *pathao.Client {
	return pathao.New(cfg.BaseURL, pathao.Credentials{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Username:     cfg.Username,
		Password:     cfg.Password,
	}, pathao.WithHTTPClient(&http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}))
}

// NewDispatcher builds the courier dispatcher.
func NewDispatcher(cfg PathaoConfig, orders courier.Orders, locations courier.Locations) *courier.Dispatcher {
	return courier.NewDispatcher(NewPathaoClient(cfg), orders, locations, courier.Config{
		StoreID:     cfg.StoreID,
		SenderName:  cfg.SenderName,
		SenderPhone: cfg.SenderPhone,
	})
}

func newSessionStore(cfg SessionConfig) *sessions.CookieStore {
	store := sessions.NewCookieStore([]byte(cfg.Secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   int(cfg.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// Run creates all dependencies, starts the HTTP server and the job
// scheduler, and handles graceful shutdown. It is the single wiring point for
// the application.
func Run(ctx context.Context, lg *zap.Logger, m *app.Telemetry, cfg *Config) error {
	lg.Info("Initializing", zap.String("addr", cfg.Addr))

	loc, err := time.LoadLocation(cfg.Location)
	if err != nil {
		return errors.Wrap(err, "load location")
	}

	// PostgreSQL pool + migrations.
	pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return errors.Wrap(err, "create db pool")
	}
	defer pool.Close()

	if err := postgres.RunMigrations(ctx, pool); err != nil {
		return errors.Wrap(err, "run migrations")
	}

	// Health check service.
	healthSvc := health.New()
	healthSvc.AddReadinessCheck("postgres", 5*time.Second, health.PingCheck(pool))
	healthSvc.AddLivenessCheck("goroutines", time.Second, health.GoroutineCountCheck(10000))
	healthSvc.Start(ctx, 10*time.Second)
	healthSvc.SetReady(true)

	// Repositories.
	catalogRepo := postgres.NewCatalogRepository(pool)
	orderRepo := postgres.NewOrderRepository(pool)
	locationRepo := postgres.NewLocationRepository(pool)
	siteRepo := postgres.NewSiteRepository(pool)
	visitorRepo := postgres.NewVisitorRepository(pool)
	reportRepo := postgres.NewReportRepository(pool)
	userRepo := postgres.NewUserRepository(pool)
	apikeyRepo := postgres.NewAPIKeyRepository(pool)

	// Domain services.
	dispatcher := NewDispatcher(cfg.Pathao, orderRepo, locationRepo)
	bot := telegram.New(cfg.Telegram.BaseURL, cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.Timeout)
	orderOpts := []order.Option{order.WithNotifier(notify.NewNotifier(bot, loc))}
	if cfg.Pathao.AutoDispatch {
		orderOpts = append(orderOpts, order.WithAutoDispatch(dispatcher))
	}
	orderService := order.NewService(orderRepo, orderOpts...)
	tracker := visitor.NewTracker(visitorRepo, visitor.WithLocation(loc))

	h := handler.New(handler.Deps{
		Catalog:   catalogRepo,
		Carts:     cart.NewService(catalogRepo),
		Orders:    orderService,
		Courier:   dispatcher,
		Site:      site.NewService(siteRepo, siteRepo),
		Wishlists: wishlist.NewService(catalogRepo),
		Accounts:  account.NewService(userRepo, 0),
		Reports:   report.NewService(reportRepo, loc),
		Auth:      auth.NewAuthenticator(apikeyRepo, []byte(cfg.APIKeyPepper)),
	}, handler.Config{PublicBaseURL: cfg.PublicBaseURL})

	// Scheduled jobs.
	sched := NewScheduler(zctx.Base(ctx, lg), loc)
	if err := sched.Add("courier-status", cfg.Pathao.StatusRefresh, func(ctx context.Context) error {
		res, err := dispatcher.RefreshStatuses(ctx)
		if err != nil {
			if errors.Is(err, courier.ErrNotConfigured) {
				return nil
			}
			return err
		}
		zctx.From(ctx).Info("Courier statuses refreshed",
			zap.Int("updated", res.Updated),
			zap.Int("failed", res.Failed),
		)
		return nil
	}); err != nil {
		return err
	}
	if err := sched.Add("visitor-purge", cfg.Visitors.Purge, func(ctx context.Context) error {
		n, err := tracker.Purge(ctx, cfg.Visitors.Retention)
		if err != nil {
			return err
		}
		zctx.From(ctx).Info("Visits purged", zap.Int64("deleted", n))
		return nil
	}); err != nil {
		return err
	}
	sched.Start()

	// Echo: health endpoints + API routes on one server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler
	e.Use(session.Middleware(newSessionStore(cfg.Session)))
	e.GET("/livez", echo.WrapHandler(http.HandlerFunc(healthSvc.LiveEndpoint)))
	e.GET("/readyz", echo.WrapHandler(http.HandlerFunc(healthSvc.ReadyEndpoint)))
	h.Mount(e)

	routeFinder := handler.RouteFinder(e)
	server := &http.Server{
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
		Addr:              cfg.Addr,
		Handler: httpmiddleware.Wrap(e,
			httpmiddleware.InjectLogger(lg),
			httpmiddleware.RequestID(),
			httpmiddleware.Recovery(),
			httpmiddleware.CORS(httpmiddleware.CORSConfig{
				AllowOrigins:     cfg.CORS.Origins,
				AllowHeaders:     []string{"Content-Type", "Authorization", handler.APIKeyHeader},
				AllowCredentials: cfg.CORS.AllowCredentials,
				MaxAge:           86400,
			}),
			httpmiddleware.RateLimitWithCleanup(ctx, httpmiddleware.RateLimitConfig{
				Max:    cfg.RateLimit.Max,
				Window: cfg.RateLimit.Window,
			}),
			httpmiddleware.Instrument("storefront", routeFinder, m),
			httpmiddleware.LogRequests(routeFinder),
			httpmiddleware.Labeler(routeFinder),
			tracker.Middleware,
		),
	}

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
		sched.Stop()
		healthSvc.Stop()
		close(shutdownDone)
	}()

	lg.Info("Server listening", zap.String("addr", cfg.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrap(err, "server")
	}
	<-shutdownDone
	return nil
}
