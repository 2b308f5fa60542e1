package billing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	stripe "github.com/stripe/stripe-go/v78"
)

// Change is one provider-reported state to synchronize into a user record.
// Patch semantics are uniform across every event type: an empty ref string
// means "leave the stored ref unchanged" (events may omit refs the record
// already has), and SetPeriodEnd distinguishes "store this value, nil
// included" from "leave the column untouched".
type Change struct {
	Email           string
	ProviderStatus  string
	CustomerRef     string
	SubscriptionRef string
	PeriodEnd       *time.Time
	SetPeriodEnd    bool
}

// ChangeFromSubscription projects a Stripe subscription object into a Change.
// Shared by webhook intake and the backfill path.
func ChangeFromSubscription(email string, sub *stripe.Subscription) Change {
	c := Change{
		Email:           email,
		ProviderStatus:  string(sub.Status),
		SubscriptionRef: sub.ID,
		SetPeriodEnd:    true,
	}
	if sub.Customer != nil {
		c.CustomerRef = sub.Customer.ID
	}
	if sub.CurrentPeriodEnd > 0 {
		t := time.Unix(sub.CurrentPeriodEnd, 0).UTC()
		c.PeriodEnd = &t
	}
	return c
}

// Reconciler maps provider subscription state to the canonical local status
// and writes it into the user record. Writes are idempotent full overwrites
// of the mapped fields; redelivered or out-of-order events resolve as
// last-delivered-wins (Stripe supplies no monotonic event sequence).
type Reconciler struct {
	repo UserRepository
	now  func() time.Time
}

func NewReconciler(repo UserRepository) *Reconciler {
	return &Reconciler{repo: repo, now: time.Now}
}

// Reconcile applies one Change. Returns ErrUserNotFound when no record
// exists for the email (reconciliation never creates users) and ErrStoreWrite
// for transient store failures.
func (r *Reconciler) Reconcile(ctx context.Context, c Change) error {
	if c.Email == "" {
		return fmt.Errorf("%w: empty email", ErrUserNotFound)
	}

	canonical := MapProviderStatus(c.ProviderStatus)

	patch := map[string]interface{}{
		"subscription_status": string(canonical),
		"updated_at":          r.now().UTC(),
	}
	if c.CustomerRef != "" {
		patch["stripe_customer_id"] = c.CustomerRef
	}
	if c.SubscriptionRef != "" {
		patch["stripe_subscription_id"] = c.SubscriptionRef
	}
	if c.SetPeriodEnd {
		patch["current_period_end"] = c.PeriodEnd
	}

	if err := r.repo.UpdateByEmail(ctx, c.Email, patch); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrStoreWrite, err)
	}

	slog.Info("subscription reconciled",
		"email", c.Email,
		"provider_status", c.ProviderStatus,
		"status", string(canonical),
	)
	return nil
}

// SyncSummary reports the outcome of a backfill run.
type SyncSummary struct {
	Synced  int `json:"synced"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// BulkSyncer walks the provider's full subscription listing and reconciles
// every item, keyed by the resolved customer email. Individual failures are
// logged and counted, never abort the batch. Backfill/drift repair only; not
// on the webhook hot path.
type BulkSyncer struct {
	reconciler *Reconciler
	provider   Provider
}

func NewBulkSyncer(reconciler *Reconciler, provider Provider) *BulkSyncer {
	return &BulkSyncer{reconciler: reconciler, provider: provider}
}

func (b *BulkSyncer) SyncAll(ctx context.Context) (SyncSummary, error) {
	subs, err := b.provider.ListSubscriptions(ctx)
	if err != nil {
		return SyncSummary{}, fmt.Errorf("%w: %v", ErrProviderLookup, err)
	}

	var summary SyncSummary
	for _, sub := range subs {
		email, err := b.resolveEmail(ctx, sub)
		if err != nil {
			slog.Error("subscription sync: customer lookup failed", "subscription_id", sub.ID, "error", err)
			summary.Failed++
			continue
		}
		if email == "" {
			slog.Warn("subscription sync: no customer email", "subscription_id", sub.ID)
			summary.Skipped++
			continue
		}

		if err := b.reconciler.Reconcile(ctx, ChangeFromSubscription(email, sub)); err != nil {
			if errors.Is(err, ErrUserNotFound) {
				slog.Warn("subscription sync: no local user", "email", email, "subscription_id", sub.ID)
				summary.Skipped++
				continue
			}
			slog.Error("subscription sync: reconcile failed", "email", email, "subscription_id", sub.ID, "error", err)
			summary.Failed++
			continue
		}
		summary.Synced++
	}

	slog.Info("subscription sync finished",
		"synced", summary.Synced, "skipped", summary.Skipped, "failed", summary.Failed)
	return summary, nil
}

func (b *BulkSyncer) resolveEmail(ctx context.Context, sub *stripe.Subscription) (string, error) {
	if sub.Customer == nil || sub.Customer.ID == "" {
		return "", nil
	}
	if sub.Customer.Email != "" {
		return sub.Customer.Email, nil
	}
	cust, err := b.provider.GetCustomer(ctx, sub.Customer.ID)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrProviderLookup, err)
	}
	return cust.Email, nil
}
