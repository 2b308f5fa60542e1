package billing

import (
	"context"

	stripe "github.com/stripe/stripe-go/v78"
)

// CheckoutParams is the input for creating a hosted checkout session.
type CheckoutParams struct {
	PriceID       string
	CustomerEmail string
	PlanID        string
	SuccessURL    string
	CancelURL     string
}

// CheckoutSession is the redirect target returned by the provider.
type CheckoutSession struct {
	ID  string `json:"session_id"`
	URL string `json:"url"`
}

// Provider is the payment-provider surface consumed by the billing code:
// lookups made while projecting webhook events, the full listing used by the
// backfill path, and checkout session creation. Implemented by the Stripe
// client; tests inject fakes.
type Provider interface {
	GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error)
	GetCustomer(ctx context.Context, id string) (*stripe.Customer, error)
	ListSubscriptions(ctx context.Context) ([]*stripe.Subscription, error)
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (*CheckoutSession, error)
}
