package billing

import (
	"context"
	"fmt"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
)

// StripeClient implements Provider over the Stripe API. Every round-trip is
// bounded by the configured timeout so a slow provider call cannot stall a
// webhook delivery indefinitely.
type StripeClient struct {
	api     *client.API
	timeout time.Duration
}

func NewStripeClient(secretKey string, timeout time.Duration) *StripeClient {
	return &StripeClient{
		api:     client.New(secretKey, nil),
		timeout: timeout,
	}
}

func (c *StripeClient) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.timeout)
}

func (c *StripeClient) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := c.api.Subscriptions.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve subscription %s: %w", id, err)
	}
	return sub, nil
}

func (c *StripeClient) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	params := &stripe.CustomerParams{}
	params.Context = ctx
	cust, err := c.api.Customers.Get(id, params)
	if err != nil {
		return nil, fmt.Errorf("retrieve customer %s: %w", id, err)
	}
	return cust, nil
}

func (c *StripeClient) ListSubscriptions(ctx context.Context) ([]*stripe.Subscription, error) {
	// Listing pages through the whole account; give it more headroom than a
	// single lookup.
	ctx, cancel := context.WithTimeout(ctx, 6*c.timeout)
	defer cancel()

	params := &stripe.SubscriptionListParams{}
	params.Context = ctx
	params.Status = stripe.String("all")

	var subs []*stripe.Subscription
	iter := c.api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, iter.Subscription())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	return subs, nil
}

func (c *StripeClient) CreateCheckoutSession(ctx context.Context, p CheckoutParams) (*CheckoutSession, error) {
	ctx, cancel := c.bound(ctx)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		CustomerEmail: stripe.String(p.CustomerEmail),
		SuccessURL:    stripe.String(p.SuccessURL),
		CancelURL:     stripe.String(p.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(p.PriceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.Context = ctx
	if p.PlanID != "" {
		params.AddMetadata("plan", p.PlanID)
	}

	sess, err := c.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	return &CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
