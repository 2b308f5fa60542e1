package billing

import (
	"context"
	"time"

	"github.com/builtbyap/socrani-backend/internal/models"
	stripe "github.com/stripe/stripe-go/v78"
)

// fakeRepo is an in-memory UserRepository with the same patch semantics as
// the GORM implementation.
type fakeRepo struct {
	users       map[string]*models.User
	findErr     error
	updateErr   error
	updateCalls int
}

func newFakeRepo(users ...*models.User) *fakeRepo {
	m := make(map[string]*models.User, len(users))
	for _, u := range users {
		m[u.Email] = u
	}
	return &fakeRepo{users: m}
}

func (f *fakeRepo) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	u, ok := f.users[email]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (f *fakeRepo) UpdateByEmail(_ context.Context, email string, patch map[string]interface{}) error {
	f.updateCalls++
	if f.updateErr != nil {
		return f.updateErr
	}
	u, ok := f.users[email]
	if !ok {
		return ErrUserNotFound
	}
	if v, ok := patch["subscription_status"].(string); ok {
		u.SubscriptionStatus = v
	}
	if v, ok := patch["stripe_customer_id"].(string); ok {
		ref := v
		u.StripeCustomerID = &ref
	}
	if v, ok := patch["stripe_subscription_id"].(string); ok {
		ref := v
		u.StripeSubscriptionID = &ref
	}
	if v, ok := patch["current_period_end"]; ok {
		u.CurrentPeriodEnd, _ = v.(*time.Time)
	}
	if v, ok := patch["updated_at"].(time.Time); ok {
		u.UpdatedAt = v
	}
	return nil
}

// fakeProvider is an in-memory Provider for reconciler and sync tests.
type fakeProvider struct {
	subs      map[string]*stripe.Subscription
	customers map[string]*stripe.Customer
	listing   []*stripe.Subscription
	listErr   error
	custErr   error
	subErr    error
}

func (f *fakeProvider) GetSubscription(_ context.Context, id string) (*stripe.Subscription, error) {
	if f.subErr != nil {
		return nil, f.subErr
	}
	return f.subs[id], nil
}

func (f *fakeProvider) GetCustomer(_ context.Context, id string) (*stripe.Customer, error) {
	if f.custErr != nil {
		return nil, f.custErr
	}
	return f.customers[id], nil
}

func (f *fakeProvider) ListSubscriptions(_ context.Context) ([]*stripe.Subscription, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listing, nil
}

func (f *fakeProvider) CreateCheckoutSession(_ context.Context, _ CheckoutParams) (*CheckoutSession, error) {
	return &CheckoutSession{ID: "cs_test", URL: "https://checkout.example/cs_test"}, nil
}
