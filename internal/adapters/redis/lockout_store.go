package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// failureWindow bounds how long failed sign-ins are remembered below the threshold.
const failureWindow = 15 * time.Minute

// LockoutStore counts failed sign-ins per key and locks the key out once
// the threshold is reached.
type LockoutStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewLockoutStore creates a lockout store whose keys all start with prefix.
func NewLockoutStore(client redis.UniversalClient, prefix string) *LockoutStore {
	return &LockoutStore{client: client, prefix: prefix, now: time.Now}
}

func (s *LockoutStore) failKey(key string) string { return s.prefix + "fail:" + strings.ToLower(key) }
func (s *LockoutStore) lockKey(key string) string { return s.prefix + "lock:" + strings.ToLower(key) }

// RecordFailure counts a failure. When the count reaches threshold the key
// is locked for lockFor and the counter restarts. A threshold below one
// disables locking.
func (s *LockoutStore) RecordFailure(ctx context.Context, key string, threshold int, lockFor time.Duration) (time.Time, error) {
	if threshold < 1 {
		return time.Time{}, nil
	}

	fk := s.failKey(key)
	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, fk)
	pipe.Expire(ctx, fk, failureWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return time.Time{}, fmt.Errorf("redis record failure: %w", err)
	}

	if incr.Val() < int64(threshold) {
		return time.Time{}, nil
	}

	until := s.now().Add(lockFor)
	pipe = s.client.TxPipeline()
	pipe.Set(ctx, s.lockKey(key), until.Unix(), lockFor)
	pipe.Del(ctx, fk)
	if _, err := pipe.Exec(ctx); err != nil {
		return time.Time{}, fmt.Errorf("redis set lock: %w", err)
	}
	return until, nil
}

// LockedUntil returns the active lock expiry, or the zero time when unlocked.
func (s *LockoutStore) LockedUntil(ctx context.Context, key string) (time.Time, error) {
	unix, err := s.client.Get(ctx, s.lockKey(key)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("redis get lock: %w", err)
	}
	until := time.Unix(unix, 0)
	if !until.After(s.now()) {
		return time.Time{}, nil
	}
	return until, nil
}

// Reset clears failures and any lock for key.
func (s *LockoutStore) Reset(ctx context.Context, key string) error {
	return s.client.Del(ctx, s.failKey(key), s.lockKey(key)).Err()
}
