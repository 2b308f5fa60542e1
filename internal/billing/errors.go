package billing

import "errors"

var (
	// ErrUserNotFound means no local record exists for the email an event
	// resolved to. Reconciliation never creates users, so this is a miss,
	// not a failure: webhook intake acknowledges it.
	ErrUserNotFound = errors.New("no user record for email")

	// ErrStoreWrite is a transient record-store failure. Surfaced to the
	// webhook boundary as a 5xx so the provider redelivers.
	ErrStoreWrite = errors.New("record store write failed")

	// ErrProviderLookup is a failed or timed-out Stripe round-trip made
	// while projecting an event. Retryable, same treatment as ErrStoreWrite.
	ErrProviderLookup = errors.New("provider lookup failed")
)
