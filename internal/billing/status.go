package billing

import "strings"

// Status is the canonical subscription vocabulary used internally. It is
// deliberately decoupled from Stripe's own status strings so an unrecognized
// provider value can never leak into stored state.
type Status string

const (
	StatusActive   Status = "active"
	StatusTrialing Status = "trialing"
	StatusPastDue  Status = "past_due"
	StatusCanceled Status = "canceled"
	StatusUnpaid   Status = "unpaid"
	StatusInactive Status = "inactive"
)

// AllStatuses lists every canonical value. Used by tests and validation.
var AllStatuses = []Status{
	StatusActive,
	StatusTrialing,
	StatusPastDue,
	StatusCanceled,
	StatusUnpaid,
	StatusInactive,
}

// MapProviderStatus converts a Stripe subscription status into the canonical
// vocabulary. Total over all inputs: anything unrecognized falls back to
// inactive, never to an access-granting value.
func MapProviderStatus(providerStatus string) Status {
	switch strings.ToLower(strings.TrimSpace(providerStatus)) {
	case "active":
		return StatusActive
	case "trialing":
		return StatusTrialing
	case "past_due", "uncollectible":
		return StatusPastDue
	case "canceled":
		return StatusCanceled
	case "unpaid":
		return StatusUnpaid
	case "incomplete", "incomplete_expired", "paused":
		return StatusInactive
	default:
		return StatusInactive
	}
}

// IsAccessGranting reports whether a canonical status entitles the user to
// the paid product. This predicate is the single source of truth for the
// access decision; nothing else in the codebase re-derives it.
func IsAccessGranting(s Status) bool {
	switch s {
	case StatusActive, StatusTrialing:
		return true
	default:
		return false
	}
}
