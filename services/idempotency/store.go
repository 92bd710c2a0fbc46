// Package idempotency deduplicates payment gateway events by event id.
//
// A delivery first claims the id. The claim is either completed after the
// event was applied, or released on failure so a redelivery can try again.
// Claims carry a lease: a claim that is neither completed nor released
// (crashed worker) can be taken over once the lease expires. Every claim
// carries a token, and only the holder of the current token can complete or
// release it, so a worker whose lease was taken over cannot undo the new
// owner's claim.
package idempotency

import (
	"context"
	"time"
)

const (
	DefaultLease     = 5 * time.Minute
	DefaultRetention = 7 * 24 * time.Hour
)

type Store interface {
	// Claim reports whether the caller now owns eventID and returns the
	// token for that claim. False means the event was already applied or is
	// being applied by someone else.
	Claim(ctx context.Context, eventID, kind string) (token string, ok bool, err error)
	// Complete and Release are no-ops when token no longer owns the claim.
	Complete(ctx context.Context, eventID, token string) error
	Release(ctx context.Context, eventID, token string) error
}
