package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	sentryfiber "github.com/getsentry/sentry-go/fiber"

	"github.com/builtbyap/socrani-backend/internal/billing"
	"github.com/builtbyap/socrani-backend/internal/config"
	"github.com/builtbyap/socrani-backend/internal/database"
	"github.com/builtbyap/socrani-backend/internal/handlers"
	"github.com/builtbyap/socrani-backend/internal/logging"
	"github.com/builtbyap/socrani-backend/internal/middleware"
	"github.com/builtbyap/socrani-backend/internal/plans"
	"github.com/builtbyap/socrani-backend/internal/routes"
	"github.com/builtbyap/socrani-backend/internal/services"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
)

func main() {
	// Structured logging (JSON to stdout)
	stdoutHandler := logging.Setup(logging.LevelFromEnv())

	cfg := config.Load()

	if cfg.JWTSecret == "" {
		slog.Error("JWT_SECRET environment variable is required")
		os.Exit(1)
	}
	if cfg.DBPassword == "" {
		slog.Error("DB_PASSWORD environment variable is required")
		os.Exit(1)
	}
	if cfg.StripeSecretKey == "" {
		slog.Error("STRIPE_SECRET_KEY environment variable is required")
		os.Exit(1)
	}
	if cfg.StripeWebhookSecret == "" {
		slog.Error("STRIPE_WEBHOOK_SECRET environment variable is required")
		os.Exit(1)
	}

	// Plan catalog
	registry, err := plans.LoadFromFile(cfg.PlansConfigPath)
	if err != nil {
		slog.Error("failed to load plan catalog", "path", cfg.PlansConfigPath, "error", err)
		os.Exit(1)
	}
	slog.Info("plan catalog loaded", "plans", len(registry.All()))

	// Database
	if err := database.Connect(cfg); err != nil {
		slog.Error("database connection failed", "error", err)
		os.Exit(1)
	}

	if err := database.Migrate(); err != nil {
		slog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	// PostgreSQL log handler (ERROR+ async batch)
	pgLogHandler := logging.NewPGHandler(database.DB)
	slog.SetDefault(slog.New(logging.NewMultiHandler(stdoutHandler, pgLogHandler)))

	// Log cleanup (30-day retention)
	cleanupDone := make(chan struct{})
	logging.StartCleanup(database.DB, cleanupDone)

	// Billing core: Stripe-backed provider, GORM-backed record store
	stripeClient := billing.NewStripeClient(cfg.StripeSecretKey, cfg.StripeTimeout)
	userRepo := billing.NewUserRepository(database.DB)
	reconciler := billing.NewReconciler(userRepo)
	gate := billing.NewGate(userRepo)
	syncer := billing.NewBulkSyncer(reconciler, stripeClient)

	// Services
	authService := services.NewAuthService(database.DB, cfg)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	healthHandler := handlers.NewHealthHandler(registry)
	billingHandler := handlers.NewBillingHandler(stripeClient, gate, syncer, registry, cfg)
	webhookHandler := handlers.NewWebhookHandler(reconciler, stripeClient, cfg.StripeWebhookSecret, cfg.WebhookTolerance)
	clientConfigHandler := handlers.NewClientConfigHandler(database.DB)

	// Seed default client config values
	slog.Info("seeding client config defaults")
	if err := clientConfigHandler.SeedDefaults(); err != nil {
		slog.Error("client config seed failed", "error", err)
	}

	// Sentry error tracking
	if dsn := os.Getenv("SENTRY_DSN"); dsn != "" {
		if err := sentry.Init(sentry.ClientOptions{
			Dsn:              dsn,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      os.Getenv("APP_ENV"),
		}); err != nil {
			slog.Error("sentry init failed", "error", err)
		} else {
			defer sentry.Flush(2 * time.Second)
		}
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		BodyLimit:    1 * 1024 * 1024,
		ErrorHandler: customErrorHandler,
	})

	// Sentry middleware
	app.Use(sentryfiber.New(sentryfiber.Options{
		Repanic:         true,
		WaitForDelivery: false,
	}))

	// Global middleware
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Format: "${time} | ${status} | ${latency} | ${ip} | ${method} | ${path}\n",
	}))
	app.Use(middleware.CORS(cfg))
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("X-XSS-Protection", "1; mode=block")
		return c.Next()
	})

	// Routes
	routes.Setup(app, cfg, database.DB, gate, authHandler, healthHandler, billingHandler, webhookHandler, clientConfigHandler)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("server starting", "port", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	<-quit
	slog.Info("shutting down server...")

	close(cleanupDone)
	pgLogHandler.Stop()
	sentry.Flush(2 * time.Second)

	if err := app.Shutdown(); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	// Close database connections
	if sqlDB, err := database.DB.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			slog.Error("database close error", "error", err)
		}
	}

	slog.Info("server stopped")
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal server error"
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	// Only expose error details for client errors (4xx), not server errors (5xx)
	if code >= 500 {
		slog.Error("unhandled server error", "method", c.Method(), "path", c.Path(), "error", err.Error())
		message = "Internal server error"
	}

	return c.Status(code).JSON(fiber.Map{
		"error":   true,
		"message": message,
	})
}
