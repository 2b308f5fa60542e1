package routes

import (
	"time"

	"github.com/builtbyap/socrani-backend/internal/billing"
	"github.com/builtbyap/socrani-backend/internal/config"
	"github.com/builtbyap/socrani-backend/internal/handlers"
	"github.com/builtbyap/socrani-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"gorm.io/gorm"
)

func Setup(
	app *fiber.App,
	cfg *config.Config,
	db *gorm.DB,
	gate *billing.Gate,
	authHandler *handlers.AuthHandler,
	healthHandler *handlers.HealthHandler,
	billingHandler *handlers.BillingHandler,
	webhookHandler *handlers.WebhookHandler,
	clientConfigHandler *handlers.ClientConfigHandler,
) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(limiter.New(limiter.Config{
		Max:               60,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))

	// Health
	api.Get("/health", healthHandler.Check)

	// Auth is public, with a stricter rate limit: 10 req/min per IP
	auth := api.Group("/auth")
	auth.Use(limiter.New(limiter.Config{
		Max:               10,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	}))
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/refresh", authHandler.Refresh)

	// Protected auth routes (JWT required)
	api.Post("/auth/logout", middleware.JWTProtected(cfg), authHandler.Logout)
	api.Delete("/auth/account", middleware.JWTProtected(cfg), authHandler.DeleteAccount)

	// Billing (JWT required)
	billingGroup := api.Group("/billing", middleware.JWTProtected(cfg))
	billingGroup.Post("/checkout", billingHandler.Checkout)
	billingGroup.Get("/subscription", billingHandler.Subscription)

	// Desktop client surface: paid feature, gated on the reconciled
	// subscription state.
	client := api.Group("/client", middleware.JWTProtected(cfg), middleware.SubscriptionRequired(gate))
	client.Get("/config", clientConfigHandler.GetConfig)

	// Admin (protected + admin required)
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.AdminRequired(db, cfg))
	admin.Post("/subscriptions/sync", billingHandler.SyncSubscriptions)
	admin.Put("/config/:key", clientConfigHandler.SetConfigKey)
	admin.Delete("/config/:key", clientConfigHandler.DeleteConfigKey)

	// Webhooks: Stripe signature auth, no JWT
	webhooks := api.Group("/webhooks")
	webhooks.Post("/stripe", webhookHandler.HandleStripe)
}
