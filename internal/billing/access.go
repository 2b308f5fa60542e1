package billing

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Reason values returned when no stored status applies.
const (
	ReasonUserNotFound = "user_not_found"
	ReasonLookupFailed = "lookup_failed"
)

// Decision is the structured result of an access check. Reason carries the
// canonical status when a record exists, or one of the Reason* values.
type Decision struct {
	Allowed          bool       `json:"allowed"`
	Reason           string     `json:"reason"`
	CurrentPeriodEnd *time.Time `json:"current_period_end,omitempty"`
}

// Gate is the read path over what the reconciler writes. It never mutates
// the record and never errors out to callers: a missing record or a store
// failure is a structured deny (fail-closed).
type Gate struct {
	repo UserRepository
}

func NewGate(repo UserRepository) *Gate {
	return &Gate{repo: repo}
}

func (g *Gate) Check(ctx context.Context, email string) Decision {
	user, err := g.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return Decision{Allowed: false, Reason: ReasonUserNotFound}
		}
		slog.Error("access check lookup failed", "email", email, "error", err)
		return Decision{Allowed: false, Reason: ReasonLookupFailed}
	}

	status := Status(user.SubscriptionStatus)
	return Decision{
		Allowed:          IsAccessGranting(status),
		Reason:           string(status),
		CurrentPeriodEnd: user.CurrentPeriodEnd,
	}
}
