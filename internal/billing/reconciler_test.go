package billing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/builtbyap/socrani-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	stripe "github.com/stripe/stripe-go/v78"
)

func strPtr(s string) *string { return &s }

func testReconciler(repo *fakeRepo, at time.Time) *Reconciler {
	r := NewReconciler(repo)
	r.now = func() time.Time { return at }
	return r
}

func TestReconcileUpdatesRecord(t *testing.T) {
	repo := newFakeRepo(&models.User{Email: "a@x.com", SubscriptionStatus: "inactive"})
	now := time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC)
	r := testReconciler(repo, now)

	periodEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	err := r.Reconcile(context.Background(), Change{
		Email:           "a@x.com",
		ProviderStatus:  "active",
		CustomerRef:     "cus_1",
		SubscriptionRef: "sub_1",
		PeriodEnd:       &periodEnd,
		SetPeriodEnd:    true,
	})
	require.NoError(t, err)

	user := repo.users["a@x.com"]
	assert.Equal(t, "active", user.SubscriptionStatus)
	require.NotNil(t, user.StripeCustomerID)
	assert.Equal(t, "cus_1", *user.StripeCustomerID)
	require.NotNil(t, user.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *user.StripeSubscriptionID)
	require.NotNil(t, user.CurrentPeriodEnd)
	assert.Equal(t, periodEnd, *user.CurrentPeriodEnd)
	assert.Equal(t, now, user.UpdatedAt)
}

func TestReconcileIdempotent(t *testing.T) {
	repo := newFakeRepo(&models.User{Email: "a@x.com", SubscriptionStatus: "inactive"})
	r := testReconciler(repo, time.Date(2025, 1, 15, 12, 0, 0, 0, time.UTC))

	periodEnd := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	change := Change{
		Email:           "a@x.com",
		ProviderStatus:  "trialing",
		CustomerRef:     "cus_1",
		SubscriptionRef: "sub_1",
		PeriodEnd:       &periodEnd,
		SetPeriodEnd:    true,
	}

	require.NoError(t, r.Reconcile(context.Background(), change))
	first := *repo.users["a@x.com"]

	require.NoError(t, r.Reconcile(context.Background(), change))
	second := *repo.users["a@x.com"]

	assert.Equal(t, first, second)
}

func TestReconcileNeverCreatesUsers(t *testing.T) {
	repo := newFakeRepo()
	r := testReconciler(repo, time.Now())

	err := r.Reconcile(context.Background(), Change{
		Email:          "nobody@nowhere.com",
		ProviderStatus: "active",
	})
	require.ErrorIs(t, err, ErrUserNotFound)
	assert.Empty(t, repo.users)
}

func TestReconcilePreservesRefs(t *testing.T) {
	repo := newFakeRepo(&models.User{
		Email:                "a@x.com",
		SubscriptionStatus:   "active",
		StripeCustomerID:     strPtr("cus_1"),
		StripeSubscriptionID: strPtr("sub_1"),
	})
	r := testReconciler(repo, time.Now())

	// An event without refs must not clear the stored ones.
	err := r.Reconcile(context.Background(), Change{
		Email:          "a@x.com",
		ProviderStatus: "past_due",
	})
	require.NoError(t, err)

	user := repo.users["a@x.com"]
	assert.Equal(t, "past_due", user.SubscriptionStatus)
	require.NotNil(t, user.StripeCustomerID)
	assert.Equal(t, "cus_1", *user.StripeCustomerID)
	require.NotNil(t, user.StripeSubscriptionID)
	assert.Equal(t, "sub_1", *user.StripeSubscriptionID)
}

func TestReconcileUnknownStatusFailsClosed(t *testing.T) {
	repo := newFakeRepo(&models.User{Email: "a@x.com", SubscriptionStatus: "active"})
	r := testReconciler(repo, time.Now())

	err := r.Reconcile(context.Background(), Change{
		Email:          "a@x.com",
		ProviderStatus: "bogus_status",
	})
	require.NoError(t, err)
	assert.Equal(t, "inactive", repo.users["a@x.com"].SubscriptionStatus)
}

func TestReconcileExplicitNilPeriodEnd(t *testing.T) {
	old := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo(&models.User{
		Email:              "a@x.com",
		SubscriptionStatus: "active",
		CurrentPeriodEnd:   &old,
	})
	r := testReconciler(repo, time.Now())

	// SetPeriodEnd with a nil value stores NULL, unlike leaving it unset.
	err := r.Reconcile(context.Background(), Change{
		Email:          "a@x.com",
		ProviderStatus: "canceled",
		SetPeriodEnd:   true,
	})
	require.NoError(t, err)
	assert.Nil(t, repo.users["a@x.com"].CurrentPeriodEnd)
}

func TestReconcileStatusOnlyLeavesPeriodEnd(t *testing.T) {
	old := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	repo := newFakeRepo(&models.User{
		Email:              "a@x.com",
		SubscriptionStatus: "active",
		CurrentPeriodEnd:   &old,
	})
	r := testReconciler(repo, time.Now())

	err := r.Reconcile(context.Background(), Change{
		Email:          "a@x.com",
		ProviderStatus: "past_due",
	})
	require.NoError(t, err)

	user := repo.users["a@x.com"]
	assert.Equal(t, "past_due", user.SubscriptionStatus)
	require.NotNil(t, user.CurrentPeriodEnd)
	assert.Equal(t, old, *user.CurrentPeriodEnd)
}

func TestReconcileStoreFailure(t *testing.T) {
	repo := newFakeRepo(&models.User{Email: "a@x.com"})
	repo.updateErr = errors.New("connection reset")
	r := testReconciler(repo, time.Now())

	err := r.Reconcile(context.Background(), Change{
		Email:          "a@x.com",
		ProviderStatus: "active",
	})
	require.ErrorIs(t, err, ErrStoreWrite)
}

func TestSyncAllContinuesPastFailures(t *testing.T) {
	repo := newFakeRepo(&models.User{Email: "good@x.com", SubscriptionStatus: "inactive"})
	r := testReconciler(repo, time.Now())

	provider := &fakeProvider{
		customers: map[string]*stripe.Customer{
			"cus_good":    {ID: "cus_good", Email: "good@x.com"},
			"cus_unknown": {ID: "cus_unknown", Email: "stranger@x.com"},
		},
		listing: []*stripe.Subscription{
			{
				ID:               "sub_good",
				Status:           stripe.SubscriptionStatus("active"),
				Customer:         &stripe.Customer{ID: "cus_good"},
				CurrentPeriodEnd: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC).Unix(),
			},
			{
				ID:       "sub_unknown",
				Status:   stripe.SubscriptionStatus("active"),
				Customer: &stripe.Customer{ID: "cus_unknown"},
			},
			{
				// No customer at all: skipped, not failed.
				ID:     "sub_orphan",
				Status: stripe.SubscriptionStatus("active"),
			},
		},
	}

	syncer := NewBulkSyncer(r, provider)
	summary, err := syncer.SyncAll(context.Background())
	require.NoError(t, err)

	assert.Equal(t, SyncSummary{Synced: 1, Skipped: 2, Failed: 0}, summary)
	assert.Equal(t, "active", repo.users["good@x.com"].SubscriptionStatus)
}

func TestSyncAllCustomerLookupFailure(t *testing.T) {
	repo := newFakeRepo()
	r := testReconciler(repo, time.Now())

	provider := &fakeProvider{
		custErr: errors.New("stripe unavailable"),
		listing: []*stripe.Subscription{
			{
				ID:       "sub_1",
				Status:   stripe.SubscriptionStatus("active"),
				Customer: &stripe.Customer{ID: "cus_1"},
			},
		},
	}

	summary, err := NewBulkSyncer(r, provider).SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SyncSummary{Synced: 0, Skipped: 0, Failed: 1}, summary)
}

func TestSyncAllListingFailure(t *testing.T) {
	repo := newFakeRepo()
	r := testReconciler(repo, time.Now())

	provider := &fakeProvider{listErr: errors.New("stripe unavailable")}
	_, err := NewBulkSyncer(r, provider).SyncAll(context.Background())
	require.ErrorIs(t, err, ErrProviderLookup)
}
