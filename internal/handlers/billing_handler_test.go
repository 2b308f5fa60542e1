package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/builtbyap/socrani-backend/internal/billing"
	"github.com/builtbyap/socrani-backend/internal/config"
	"github.com/builtbyap/socrani-backend/internal/models"
	"github.com/builtbyap/socrani-backend/internal/plans"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPlanRegistry() *plans.Registry {
	registry := plans.NewRegistry()
	registry.Register(&plans.Plan{
		ID:            "pro-monthly",
		Name:          "Pro Monthly",
		StripePriceID: "price_monthly",
		Interval:      "month",
	})
	return registry
}

func claimsFor(email string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Locals("user", &jwt.Token{Claims: jwt.MapClaims{"email": email}})
		return c.Next()
	}
}

func newBillingApp(repo billing.UserRepository, provider billing.Provider, cfg *config.Config, authed fiber.Handler) *fiber.App {
	reconciler := billing.NewReconciler(repo)
	h := NewBillingHandler(provider, billing.NewGate(repo), billing.NewBulkSyncer(reconciler, provider), testPlanRegistry(), cfg)

	app := fiber.New()
	group := app.Group("/api/billing")
	if authed != nil {
		group.Use(authed)
	}
	group.Post("/checkout", h.Checkout)
	group.Get("/subscription", h.Subscription)
	app.Post("/api/admin/subscriptions/sync", h.SyncSubscriptions)
	return app
}

func billingRequest(t *testing.T, app *fiber.App, method, path, body string) (int, map[string]interface{}) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var parsed map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &parsed))
	return resp.StatusCode, parsed
}

func TestCheckoutUnknownPlan(t *testing.T) {
	provider := &stubProvider{}
	app := newBillingApp(newSpyRepo(), provider, &config.Config{}, claimsFor("a@x.com"))

	status, body := billingRequest(t, app, "POST", "/api/billing/checkout", `{"plan":"enterprise"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, body["message"], "Unknown plan")
	assert.Empty(t, provider.checkouts)
}

func TestCheckoutFallsBackToConfiguredURLs(t *testing.T) {
	provider := &stubProvider{}
	cfg := &config.Config{
		CheckoutSuccessURL: "https://socrani.com/success",
		CheckoutCancelURL:  "https://socrani.com/pricing",
	}
	app := newBillingApp(newSpyRepo(), provider, cfg, claimsFor("a@x.com"))

	status, body := billingRequest(t, app, "POST", "/api/billing/checkout", `{"plan":"pro-monthly"}`)
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "cs_test", body["session_id"])
	assert.NotEmpty(t, body["url"])

	require.Len(t, provider.checkouts, 1)
	params := provider.checkouts[0]
	assert.Equal(t, "price_monthly", params.PriceID)
	assert.Equal(t, "a@x.com", params.CustomerEmail)
	assert.Equal(t, "pro-monthly", params.PlanID)
	assert.Equal(t, cfg.CheckoutSuccessURL, params.SuccessURL)
	assert.Equal(t, cfg.CheckoutCancelURL, params.CancelURL)
}

func TestCheckoutRequestURLsWin(t *testing.T) {
	provider := &stubProvider{}
	cfg := &config.Config{
		CheckoutSuccessURL: "https://socrani.com/success",
		CheckoutCancelURL:  "https://socrani.com/pricing",
	}
	app := newBillingApp(newSpyRepo(), provider, cfg, claimsFor("a@x.com"))

	status, _ := billingRequest(t, app, "POST", "/api/billing/checkout",
		`{"plan":"pro-monthly","success_url":"https://app.test/done","cancel_url":"https://app.test/back"}`)
	assert.Equal(t, fiber.StatusOK, status)

	require.Len(t, provider.checkouts, 1)
	assert.Equal(t, "https://app.test/done", provider.checkouts[0].SuccessURL)
	assert.Equal(t, "https://app.test/back", provider.checkouts[0].CancelURL)
}

func TestCheckoutProviderFailure(t *testing.T) {
	provider := &stubProvider{checkoutErr: errors.New("stripe unavailable")}
	app := newBillingApp(newSpyRepo(), provider, &config.Config{}, claimsFor("a@x.com"))

	status, _ := billingRequest(t, app, "POST", "/api/billing/checkout", `{"plan":"pro-monthly"}`)
	assert.Equal(t, fiber.StatusBadGateway, status)
}

func TestCheckoutWithoutClaims(t *testing.T) {
	provider := &stubProvider{}
	app := newBillingApp(newSpyRepo(), provider, &config.Config{}, nil)

	status, _ := billingRequest(t, app, "POST", "/api/billing/checkout", `{"plan":"pro-monthly"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Empty(t, provider.checkouts)
}

func TestSubscriptionReadPath(t *testing.T) {
	periodEnd := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	repo := newSpyRepo(&models.User{
		Email:              "a@x.com",
		SubscriptionStatus: "active",
		CurrentPeriodEnd:   &periodEnd,
	})
	app := newBillingApp(repo, &stubProvider{}, &config.Config{}, claimsFor("a@x.com"))

	status, body := billingRequest(t, app, "GET", "/api/billing/subscription", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, true, body["allowed"])
	assert.Equal(t, "active", body["status"])
	assert.NotEmpty(t, body["current_period_end"])
}

func TestSubscriptionReadPathUnknownUser(t *testing.T) {
	app := newBillingApp(newSpyRepo(), &stubProvider{}, &config.Config{}, claimsFor("stranger@x.com"))

	status, body := billingRequest(t, app, "GET", "/api/billing/subscription", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, false, body["allowed"])
	assert.Equal(t, "user_not_found", body["status"])
}

func TestSyncSubscriptionsListingFailure(t *testing.T) {
	provider := &stubProvider{listErr: errors.New("stripe unavailable")}
	app := newBillingApp(newSpyRepo(), provider, &config.Config{}, nil)

	status, _ := billingRequest(t, app, "POST", "/api/admin/subscriptions/sync", "")
	assert.Equal(t, fiber.StatusBadGateway, status)
}
