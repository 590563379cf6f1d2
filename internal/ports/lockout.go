package ports

import (
	"context"
	"time"
)

// LockoutStore tracks failed sign-in attempts per key.
type LockoutStore interface {
	// RecordFailure counts a failure and returns the lock expiry once the
	// threshold is reached, or the zero time while below it.
	RecordFailure(ctx context.Context, key string, threshold int, lockFor time.Duration) (time.Time, error)
	// LockedUntil returns the active lock expiry, or the zero time.
	LockedUntil(ctx context.Context, key string) (time.Time, error)
	Reset(ctx context.Context, key string) error
}
