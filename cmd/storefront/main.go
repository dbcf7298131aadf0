package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/aaravmahajanofficial/storefront/docs"
	"github.com/aaravmahajanofficial/storefront/internal/api/handlers"
	"github.com/aaravmahajanofficial/storefront/internal/api/middleware"
	"github.com/aaravmahajanofficial/storefront/internal/cache"
	"github.com/aaravmahajanofficial/storefront/internal/config"
	"github.com/aaravmahajanofficial/storefront/internal/currency"
	"github.com/aaravmahajanofficial/storefront/internal/health"
	"github.com/aaravmahajanofficial/storefront/internal/metrics"
	repository "github.com/aaravmahajanofficial/storefront/internal/repositories"
	service "github.com/aaravmahajanofficial/storefront/internal/services"
	"github.com/aaravmahajanofficial/storefront/internal/session"
	"github.com/aaravmahajanofficial/storefront/internal/tracing"
	"github.com/aaravmahajanofficial/storefront/pkg/exchangerate"
	"github.com/aaravmahajanofficial/storefront/pkg/sendgrid"
	httpSwagger "github.com/swaggo/http-swagger"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

//	@title			Storefront API
//	@version		1.0
//	@description	Catalog, session-scoped live cart, currency display and checkout.
//	@BasePath		/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {

	// Logger setup
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load config
	cfg := config.MustLoad()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	// Tracing setup
	shutdownTracing, err := tracing.Setup(ctx, cfg.Otel)
	if err != nil {
		slog.Error("❌ Error initializing tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			slog.Error("⚠️ Error flushing traces", slog.String("error", err.Error()))
		}
	}()

	// Database setup
	repos, err := repository.New(ctx, cfg)
	if err != nil {
		slog.Error("❌ Error accessing the database", slog.String("error", err.Error()))
		os.Exit(1)
	}

	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := repos.Close(closeCtx); err != nil {
			slog.Error("⚠️ Error closing database connection", slog.String("error", err.Error()))
		} else {
			slog.Info("✅ Database connection closed")
		}
	}()

	if err := repos.EnsureIndexes(ctx); err != nil {
		slog.Warn("Failed to ensure indexes", slog.String("error", err.Error()))
	}

	// Redis setup
	redisClient, err := repository.NewRedisClient(cfg)
	if err != nil {
		slog.Error("❌ Error accessing the redis instance", slog.String("error", err.Error()))
		os.Exit(1)
	}

	productCache := cache.NewRedisCache(redisClient, &cfg.Cache)
	defer productCache.Close()

	var cartRepo repository.CartRepository
	switch cfg.Cart.Store {
	case "memory":
		cartRepo = repository.NewMemoryCartRepository()
	default:
		cartRepo = repository.NewCartRepo(repos.Mongo, cfg.App.ID)
	}

	identityRepo := repository.NewIdentityRepo(repos.Mongo)
	orderRepo := repository.NewOrderRepository(repos.Mongo)
	productRepo := repository.NewProductRepo(repos.Mongo)
	notificationRepo := repository.NewNotificationRepo(repos.DB)
	rateLimitRepo := repository.NewRateLimitRepo(redisClient, cfg)
	preferenceRepo := repository.NewPreferenceRepo(redisClient, 0)

	jwtKey := []byte(cfg.Security.JWTKey)
	sendGridClient := sendgrid.NewEmailService(cfg.SendGrid.APIKey, cfg.SendGrid.FromEmail, cfg.SendGrid.FromName)
	rateClient := exchangerate.NewClient(cfg.ExchangeRate.APIKey, cfg.ExchangeRate.BaseURL, cfg.ExchangeRate.Timeout)

	authService := service.NewAuthService(identityRepo, jwtKey, time.Duration(cfg.Security.SessionTTLHours)*time.Hour)
	productService := service.NewProductService(productRepo, productCache)
	orderService := service.NewOrderService(orderRepo)
	notificationService := service.NewNotificationService(notificationRepo, sendGridClient)
	checkoutService := service.NewCheckoutService(orderService, notificationService)

	adminService, err := service.NewAdminService(rateLimitRepo, cfg.Admin.Password)
	if err != nil {
		slog.Error("❌ Error configuring the admin service", slog.String("error", err.Error()))
		os.Exit(1)
	}

	rates := currency.NewRateProvider(rateClient, cfg.Currency.Canonical, cfg.Currency.Display)
	rates.Start(ctx)

	manager := session.NewManager(authService, cartRepo, rates, preferenceRepo, session.Config{
		IdleTimeout:     cfg.Session.IdleTimeout,
		JanitorInterval: cfg.Session.JanitorInterval,
		DefaultCurrency: cfg.Currency.Default,
	})
	manager.Start(ctx)
	defer manager.Shutdown()

	productHandler := handlers.NewProductHandler(productService, rates)
	orderHandler := handlers.NewOrderHandler(orderService)
	convertHandler := handlers.NewConvertHandlerFromConfig(rateClient, cfg.Currency)
	adminHandler := handlers.NewAdminHandler(adminService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	sessionHandler := handlers.NewSessionHandler(manager)
	cartHandler := handlers.NewCartHandler(0)
	currencyHandler := handlers.NewCurrencyHandler()
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService)
	authMiddleware := middleware.NewAuthMiddleware(jwtKey)

	// Routes that act on the caller's live cart need the session attached.
	withSession := func(h http.HandlerFunc) http.HandlerFunc {
		return authMiddleware.Authenticate(manager.Attach(h))
	}

	healthHandler, err := health.NewHealthHandler(cfg, &health.Endpoints{MongoClient: repos.Client})
	if err != nil {
		slog.Error("❌ Error creating health checks", slog.String("error", err.Error()))
		os.Exit(1)
	}

	slog.Info("storage initialized", slog.String("env", cfg.Env), slog.String("cart_store", cfg.Cart.Store), slog.String("version", "1.0.0"))

	// Setup router
	routerMux := http.NewServeMux()
	routerMux.HandleFunc("POST /api/products", productHandler.CreateProduct())
	routerMux.HandleFunc("GET /api/products", productHandler.ListProducts())
	routerMux.HandleFunc("GET /api/products/{id}", productHandler.GetProduct())
	routerMux.HandleFunc("PUT /api/products/update", productHandler.UpdateProduct())
	routerMux.HandleFunc("DELETE /api/products/delete", productHandler.DeleteProduct())
	routerMux.HandleFunc("POST /api/orders", orderHandler.CreateOrder())
	routerMux.HandleFunc("GET /api/orders", authMiddleware.Authenticate(orderHandler.ListOrders()))
	routerMux.HandleFunc("GET /api/convert", convertHandler.GetRates())
	routerMux.HandleFunc("POST /api/admin-login", adminHandler.Login())
	routerMux.HandleFunc("POST /api/send-email", notificationHandler.SendEmail())
	routerMux.HandleFunc("POST /api/session", sessionHandler.OpenSession())
	routerMux.HandleFunc("DELETE /api/session", authMiddleware.Authenticate(sessionHandler.CloseSession()))
	routerMux.HandleFunc("GET /api/cart", withSession(cartHandler.GetCart()))
	routerMux.HandleFunc("DELETE /api/cart", withSession(cartHandler.ClearCart()))
	routerMux.HandleFunc("POST /api/cart/items", withSession(cartHandler.AddItem()))
	routerMux.HandleFunc("PUT /api/cart/items/{productId}", withSession(cartHandler.UpdateItem()))
	routerMux.HandleFunc("DELETE /api/cart/items/{productId}", withSession(cartHandler.RemoveItem()))
	routerMux.HandleFunc("GET /api/cart/events", withSession(cartHandler.Events()))
	routerMux.HandleFunc("GET /api/currency", withSession(currencyHandler.GetCurrency()))
	routerMux.HandleFunc("PUT /api/currency", withSession(currencyHandler.SetCurrency()))
	routerMux.HandleFunc("POST /api/checkout", withSession(checkoutHandler.Checkout()))
	routerMux.Handle("GET /health", healthHandler.Handler())
	routerMux.Handle("GET /metrics", metrics.Handler())
	routerMux.Handle("GET /swagger/", httpSwagger.Handler(httpSwagger.URL("/swagger/doc.json")))

	// Middleware chaining
	var handler http.Handler = routerMux
	handler = metrics.Middleware(handler)
	handler = middleware.Logging(handler)
	handler = otelhttp.NewHandler(handler, "storefront")

	// Setup http server
	server := http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Closing the sessions ends their event streams so Shutdown can drain.
	server.RegisterOnShutdown(manager.Shutdown)

	slog.Info("🚀 Server is starting...", slog.String("address", cfg.Addr))

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			slog.Error("❌ Failed to start server", slog.String("error", err.Error()))
			done <- syscall.SIGTERM
		}
	}()

	<-done

	slog.Warn("🛑 Shutdown signal received. Preparing to stop the server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("⚠️ Server shutdown encountered an issue", slog.String("error", err.Error()))
	} else {
		slog.Info("✅ Server shut down gracefully. All connections closed.")
	}

	stop()
}
