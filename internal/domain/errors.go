package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrTenantNotFound is terminal: the hostname has no tenant and the
	// caller must redirect to the platform host, never retry.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrResolutionUnavailable is transient: the resolution service could
	// not be reached and the lookup may be retried.
	ErrResolutionUnavailable = errors.New("tenant resolution unavailable")

	// ErrSessionLost terminates every in-flight operation on a session
	// whose transport dropped. The session itself reconnects.
	ErrSessionLost = errors.New("session lost")

	// ErrBidTimeout terminates a single submission; resubmitting is safe.
	ErrBidTimeout = errors.New("bid timed out")

	ErrNotConnected = errors.New("session not connected")

	// ErrBidInFlight rejects a second submission for an (auction, item)
	// pair whose previous submission is still unresolved.
	ErrBidInFlight = errors.New("bid already in flight for this item")

	// ErrAuctionNotFound distinguishes an id that was never created from an
	// auction sitting in draft.
	ErrAuctionNotFound = errors.New("auction not found")
)

// BidRejectedError carries a business-rule rejection from the authoritative
// side, surfaced verbatim to the user.
type BidRejectedError struct {
	Key    CorrelationKey
	Reason string
}

func (e *BidRejectedError) Error() string {
	return fmt.Sprintf("bid %s rejected: %s", e.Key, e.Reason)
}
