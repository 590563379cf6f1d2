package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sponsorlink/sponsorlink-web/internal/ports"
)

// CodeStore keeps outstanding one-time codes as JSON values with a TTL
// matching the code's expiry. Failed attempts live in a sibling counter key
// so they can be incremented atomically.
type CodeStore struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewCodeStore creates a code store whose keys all start with prefix.
func NewCodeStore(client redis.UniversalClient, prefix string) *CodeStore {
	return &CodeStore{client: client, prefix: prefix, now: time.Now}
}

func (s *CodeStore) key(purpose ports.CodePurpose, subject string) string {
	return s.prefix + string(purpose) + ":" + strings.ToLower(subject)
}

func (s *CodeStore) attemptsKey(purpose ports.CodePurpose, subject string) string {
	return s.key(purpose, subject) + ":attempts"
}

// Put replaces any outstanding code and resets its attempt counter.
func (s *CodeStore) Put(ctx context.Context, purpose ports.CodePurpose, subject string, code ports.OneTimeCode) error {
	ttl := code.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return errors.New("code is already expired")
	}

	data, err := json.Marshal(code)
	if err != nil {
		return fmt.Errorf("marshal code: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(purpose, subject), data, ttl)
	pipe.Set(ctx, s.attemptsKey(purpose, subject), code.Attempts, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis put code: %w", err)
	}
	return nil
}

// Get returns the outstanding code with its current attempt count.
func (s *CodeStore) Get(ctx context.Context, purpose ports.CodePurpose, subject string) (ports.OneTimeCode, error) {
	pipe := s.client.Pipeline()
	valCmd := pipe.Get(ctx, s.key(purpose, subject))
	attCmd := pipe.Get(ctx, s.attemptsKey(purpose, subject))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return ports.OneTimeCode{}, fmt.Errorf("redis get code: %w", err)
	}

	data, err := valCmd.Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ports.OneTimeCode{}, ports.ErrCodeNotFound
		}
		return ports.OneTimeCode{}, fmt.Errorf("redis get code: %w", err)
	}

	var code ports.OneTimeCode
	if err := json.Unmarshal(data, &code); err != nil {
		return ports.OneTimeCode{}, fmt.Errorf("unmarshal code: %w", err)
	}
	if n, err := attCmd.Int(); err == nil {
		code.Attempts = n
	}
	return code, nil
}

// RecordAttempt increments the failed-attempt counter of the outstanding code.
func (s *CodeStore) RecordAttempt(ctx context.Context, purpose ports.CodePurpose, subject string) (int, error) {
	key := s.attemptsKey(purpose, subject)
	n, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis incr attempts: %w", err)
	}
	// A counter without a code must not outlive the code's TTL.
	if n == 1 {
		if ttl, ttlErr := s.client.PTTL(ctx, s.key(purpose, subject)).Result(); ttlErr == nil && ttl > 0 {
			s.client.PExpire(ctx, key, ttl)
		}
	}
	return int(n), nil
}

func (s *CodeStore) Delete(ctx context.Context, purpose ports.CodePurpose, subject string) error {
	return s.client.Del(ctx, s.key(purpose, subject), s.attemptsKey(purpose, subject)).Err()
}
