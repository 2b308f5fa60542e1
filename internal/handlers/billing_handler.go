package handlers

import (
	"log/slog"

	"github.com/builtbyap/socrani-backend/internal/billing"
	"github.com/builtbyap/socrani-backend/internal/config"
	"github.com/builtbyap/socrani-backend/internal/dto"
	"github.com/builtbyap/socrani-backend/internal/middleware"
	"github.com/builtbyap/socrani-backend/internal/plans"
	"github.com/gofiber/fiber/v2"
)

type BillingHandler struct {
	provider billing.Provider
	gate     *billing.Gate
	syncer   *billing.BulkSyncer
	registry *plans.Registry
	cfg      *config.Config
}

func NewBillingHandler(provider billing.Provider, gate *billing.Gate, syncer *billing.BulkSyncer, registry *plans.Registry, cfg *config.Config) *BillingHandler {
	return &BillingHandler{
		provider: provider,
		gate:     gate,
		syncer:   syncer,
		registry: registry,
		cfg:      cfg,
	}
}

// Checkout creates a Stripe checkout session for the authenticated user.
func (h *BillingHandler) Checkout(c *fiber.Ctx) error {
	email, err := middleware.GetEmail(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	var req dto.CheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Invalid request body",
		})
	}

	plan := h.registry.Get(req.Plan)
	if plan == nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error: true, Message: "Unknown plan: " + req.Plan,
		})
	}

	successURL := req.SuccessURL
	if successURL == "" {
		successURL = h.cfg.CheckoutSuccessURL
	}
	cancelURL := req.CancelURL
	if cancelURL == "" {
		cancelURL = h.cfg.CheckoutCancelURL
	}

	session, err := h.provider.CreateCheckoutSession(c.UserContext(), billing.CheckoutParams{
		PriceID:       plan.StripePriceID,
		CustomerEmail: email,
		PlanID:        plan.ID,
		SuccessURL:    successURL,
		CancelURL:     cancelURL,
	})
	if err != nil {
		slog.Error("checkout session creation failed", "email", email, "plan", plan.ID, "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to create checkout session",
		})
	}

	return c.JSON(dto.CheckoutResponse{SessionID: session.ID, URL: session.URL})
}

// Subscription is the access-gate read path for the authenticated user.
func (h *BillingHandler) Subscription(c *fiber.Ctx) error {
	email, err := middleware.GetEmail(c)
	if err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{
			Error: true, Message: "Unauthorized",
		})
	}

	decision := h.gate.Check(c.UserContext(), email)
	return c.JSON(dto.SubscriptionResponse{
		Allowed:          decision.Allowed,
		Status:           decision.Reason,
		CurrentPeriodEnd: decision.CurrentPeriodEnd,
	})
}

// SyncSubscriptions walks the full Stripe subscription listing and
// reconciles every record. Admin-only backfill/repair path.
func (h *BillingHandler) SyncSubscriptions(c *fiber.Ctx) error {
	summary, err := h.syncer.SyncAll(c.UserContext())
	if err != nil {
		slog.Error("subscription sync failed", "error", err)
		return c.Status(fiber.StatusBadGateway).JSON(dto.ErrorResponse{
			Error: true, Message: "Subscription sync failed",
		})
	}
	return c.JSON(summary)
}
