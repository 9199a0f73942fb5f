// README: Error taxonomy of the assignment engine.
package dispatch

import "errors"

var (
	// ErrInvalidState means the order is not pending assignment.
	ErrInvalidState = errors.New("order is not pending assignment")
	// ErrAlreadyInProgress means an offer for this order is already outstanding.
	ErrAlreadyInProgress = errors.New("assignment already in progress")
	// ErrNoDriversAvailable means the candidate query came back empty.
	ErrNoDriversAvailable = errors.New("no drivers available")
	// ErrNoDriverAccepted means candidates existed but every one was contended.
	ErrNoDriverAccepted = errors.New("no driver accepted the offer")
	// ErrStaleOffer means the lock pair for this response no longer matches.
	ErrStaleOffer = errors.New("offer is stale or expired")
	// ErrNoMatchingAttempt means no pending attempt exists for this driver.
	ErrNoMatchingAttempt = errors.New("no matching assignment attempt")
	// ErrInvalidResponse means the response was neither accept nor decline.
	ErrInvalidResponse = errors.New("invalid driver response")
	// ErrStoreUnavailable wraps lock-store transport failures. Never treated
	// as "lock absent": masking it risks a double assignment.
	ErrStoreUnavailable = errors.New("lock store unavailable")

	// Per-candidate contention, recovered inside the offer loop.
	errDriverBusy  = errors.New("driver locked by another offer")
	errOrderLocked = errors.New("order locked by another dispatch")
)
