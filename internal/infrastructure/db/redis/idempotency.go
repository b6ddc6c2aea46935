package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultIdempotencyTTL is how long a submission key stays bound to the
// feedback record it created.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyStore binds client supplied Idempotency-Key values to the id of
// the feedback record they created.
// Key format: idem:<caller>:<idempotency_key>
type IdempotencyStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyStore creates an IdempotencyStore wrapping the given Redis
// client. A non-positive ttl falls back to DefaultIdempotencyTTL.
func NewIdempotencyStore(client *redis.Client, ttl time.Duration) *IdempotencyStore {
	if ttl <= 0 {
		ttl = DefaultIdempotencyTTL
	}
	return &IdempotencyStore{client: client, ttl: ttl}
}

// Claim tries to bind key to feedbackID. When the key is already bound it
// returns the existing id and claimed=false.
func (s *IdempotencyStore) Claim(ctx context.Context, scope, key, feedbackID string) (string, bool, error) {
	k := s.key(scope, key)

	for attempt := 0; attempt < 2; attempt++ {
		ok, err := s.client.SetNX(ctx, k, feedbackID, s.ttl).Result()
		if err != nil {
			return "", false, fmt.Errorf("idempotency claim: %w", err)
		}
		if ok {
			return feedbackID, true, nil
		}

		bound, err := s.client.Get(ctx, k).Result()
		if errors.Is(err, redis.Nil) {
			// expired or released between SETNX and GET
			continue
		}
		if err != nil {
			return "", false, fmt.Errorf("idempotency lookup: %w", err)
		}
		return bound, false, nil
	}
	return "", false, fmt.Errorf("idempotency claim: key %q is churning", key)
}

// Release drops the binding so the client can retry with the same key.
func (s *IdempotencyStore) Release(ctx context.Context, scope, key string) error {
	if err := s.client.Del(ctx, s.key(scope, key)).Err(); err != nil {
		return fmt.Errorf("idempotency release: %w", err)
	}
	return nil
}

func (s *IdempotencyStore) key(scope, key string) string {
	return fmt.Sprintf("idem:%s:%s", scope, key)
}
