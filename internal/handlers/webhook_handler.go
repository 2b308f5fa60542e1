package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/builtbyap/socrani-backend/internal/billing"
	"github.com/builtbyap/socrani-backend/internal/dto"
	"github.com/gofiber/fiber/v2"
	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/webhook"
)

// WebhookHandler is the Stripe event intake: verify the signature over the
// raw body, classify the event, project it into a billing.Change, dispatch
// to the reconciler. Only a signature failure is rejected with a 4xx;
// business-logic misses are acknowledged so Stripe stops retrying, and only
// transient store/provider failures surface as 5xx to trigger redelivery.
type WebhookHandler struct {
	reconciler *billing.Reconciler
	provider   billing.Provider
	secret     string
	tolerance  time.Duration
	now        func() time.Time
}

func NewWebhookHandler(reconciler *billing.Reconciler, provider billing.Provider, secret string, tolerance time.Duration) *WebhookHandler {
	return &WebhookHandler{
		reconciler: reconciler,
		provider:   provider,
		secret:     secret,
		tolerance:  tolerance,
		now:        time.Now,
	}
}

func (h *WebhookHandler) HandleStripe(c *fiber.Ctx) error {
	// c.Body() is the raw payload; it must not be parsed before the
	// signature over it has been verified.
	payload := c.Body()
	sigHeader := c.Get("Stripe-Signature")

	// IgnoreAPIVersionMismatch: a correctly signed event from an account on
	// a different API version is still trustworthy, and redelivery would
	// never cure the mismatch. Only signature failures get rejected.
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, h.secret, webhook.ConstructEventOptions{
		Tolerance:                h.tolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		slog.Warn("stripe webhook rejected", "error", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	ctx := c.UserContext()
	change, ok, err := h.project(ctx, &event)
	if err != nil {
		slog.Error("stripe webhook projection failed", "event_id", event.ID, "event_type", string(event.Type), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}
	if !ok {
		// Unrecognized type or nothing to act on. Acknowledge so Stripe
		// does not keep redelivering for a condition that won't change.
		return c.JSON(fiber.Map{"received": true})
	}

	if err := h.reconciler.Reconcile(ctx, change); err != nil {
		if errors.Is(err, billing.ErrUserNotFound) {
			slog.Warn("stripe webhook for unknown user", "email", change.Email, "event_type", string(event.Type))
			return c.JSON(fiber.Map{"received": true})
		}
		slog.Error("stripe webhook reconcile failed", "email", change.Email, "event_type", string(event.Type), "error", err)
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error: true, Message: "Failed to process webhook event",
		})
	}

	slog.Info("stripe webhook processed", "event_id", event.ID, "event_type", string(event.Type))
	return c.JSON(fiber.Map{"received": true})
}

// project turns a verified event into the reconciler's input. ok=false means
// the event carries nothing to reconcile (unknown type, missing email, or an
// unparseable-but-signed payload; none of these would be fixed by a retry).
// A non-nil error is always a retryable provider-lookup failure.
func (h *WebhookHandler) project(ctx context.Context, event *stripe.Event) (billing.Change, bool, error) {
	switch string(event.Type) {
	case "checkout.session.completed":
		return h.projectCheckout(ctx, event)
	case "customer.subscription.created", "customer.subscription.updated":
		return h.projectSubscription(ctx, event, "")
	case "customer.subscription.deleted":
		// Deletion forces canceled with an immediate period end, whatever
		// the status field in the payload says.
		return h.projectSubscription(ctx, event, "canceled")
	case "invoice.paid":
		return h.projectInvoice(ctx, event, "active")
	case "invoice.payment_failed":
		return h.projectInvoice(ctx, event, "past_due")
	default:
		slog.Info("stripe webhook ignored", "event_type", string(event.Type))
		return billing.Change{}, false, nil
	}
}

func (h *WebhookHandler) projectCheckout(ctx context.Context, event *stripe.Event) (billing.Change, bool, error) {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		slog.Warn("stripe webhook payload unparseable", "event_type", string(event.Type), "error", err)
		return billing.Change{}, false, nil
	}

	email := session.CustomerEmail
	if session.CustomerDetails != nil && session.CustomerDetails.Email != "" {
		email = session.CustomerDetails.Email
	}
	if email == "" {
		slog.Warn("checkout session without customer email", "session_id", session.ID)
		return billing.Change{}, false, nil
	}

	customerRef := ""
	if session.Customer != nil {
		customerRef = session.Customer.ID
	}

	// Prefer the subscription's actual status over assuming the checkout
	// produced an active one (it may be trialing, or incomplete).
	if session.Subscription != nil && session.Subscription.ID != "" {
		sub, err := h.provider.GetSubscription(ctx, session.Subscription.ID)
		if err != nil {
			return billing.Change{}, false, fmt.Errorf("%w: %v", billing.ErrProviderLookup, err)
		}
		change := billing.ChangeFromSubscription(email, sub)
		if change.CustomerRef == "" {
			change.CustomerRef = customerRef
		}
		return change, true, nil
	}

	return billing.Change{
		Email:          email,
		ProviderStatus: "active",
		CustomerRef:    customerRef,
	}, true, nil
}

func (h *WebhookHandler) projectSubscription(ctx context.Context, event *stripe.Event, forcedStatus string) (billing.Change, bool, error) {
	var sub stripe.Subscription
	if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
		slog.Warn("stripe webhook payload unparseable", "event_type", string(event.Type), "error", err)
		return billing.Change{}, false, nil
	}

	email, err := h.customerEmail(ctx, sub.Customer)
	if err != nil {
		return billing.Change{}, false, err
	}
	if email == "" {
		slog.Warn("subscription event without resolvable customer email", "subscription_id", sub.ID)
		return billing.Change{}, false, nil
	}

	change := billing.ChangeFromSubscription(email, &sub)
	if forcedStatus != "" {
		change.ProviderStatus = forcedStatus
		if forcedStatus == "canceled" {
			end := h.now().UTC()
			change.PeriodEnd = &end
			change.SetPeriodEnd = true
		}
	}
	return change, true, nil
}

func (h *WebhookHandler) projectInvoice(ctx context.Context, event *stripe.Event, forcedStatus string) (billing.Change, bool, error) {
	var invoice stripe.Invoice
	if err := json.Unmarshal(event.Data.Raw, &invoice); err != nil {
		slog.Warn("stripe webhook payload unparseable", "event_type", string(event.Type), "error", err)
		return billing.Change{}, false, nil
	}

	email := invoice.CustomerEmail
	if email == "" {
		resolved, err := h.customerEmail(ctx, invoice.Customer)
		if err != nil {
			return billing.Change{}, false, err
		}
		email = resolved
	}
	if email == "" {
		slog.Warn("invoice event without resolvable customer email", "invoice_id", invoice.ID)
		return billing.Change{}, false, nil
	}

	change := billing.Change{
		Email:          email,
		ProviderStatus: forcedStatus,
	}

	// Payment failures apply only the status; refs and period end stay
	// whatever the record already holds.
	if forcedStatus != "active" {
		return change, true, nil
	}

	if invoice.Customer != nil {
		change.CustomerRef = invoice.Customer.ID
	}
	if invoice.Subscription != nil && invoice.Subscription.ID != "" {
		change.SubscriptionRef = invoice.Subscription.ID
		sub, err := h.provider.GetSubscription(ctx, invoice.Subscription.ID)
		if err != nil {
			return billing.Change{}, false, fmt.Errorf("%w: %v", billing.ErrProviderLookup, err)
		}
		if sub.CurrentPeriodEnd > 0 {
			end := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
			change.PeriodEnd = &end
			change.SetPeriodEnd = true
		}
	}
	return change, true, nil
}

func (h *WebhookHandler) customerEmail(ctx context.Context, cust *stripe.Customer) (string, error) {
	if cust == nil || cust.ID == "" {
		return "", nil
	}
	if cust.Email != "" {
		return cust.Email, nil
	}
	full, err := h.provider.GetCustomer(ctx, cust.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", billing.ErrProviderLookup, err)
	}
	return full.Email, nil
}
