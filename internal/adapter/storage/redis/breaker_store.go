package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// BreakerStore implements ports.BreakerStore with per-gateway failure
// counters in Redis. The key's TTL is the cooldown: when it lapses the
// counter is gone and the breaker reads as closed across all instances.
type BreakerStore struct {
	client *goredis.Client
	prefix string
}

// NewBreakerStore creates a new Redis-backed circuit breaker store.
func NewBreakerStore(client *goredis.Client) *BreakerStore {
	return &BreakerStore{
		client: client,
		prefix: "breaker:",
	}
}

// Failures returns the gateway's current failure count (0 when no key).
func (s *BreakerStore) Failures(ctx context.Context, gateway string) (int64, error) {
	val, err := s.client.Get(ctx, s.prefix+gateway).Int64()
	if err != nil {
		if err == goredis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("redis breaker get: %w", err)
	}
	return val, nil
}

// RecordFailure increments the failure counter, arming the cooldown expiry
// when the counter is created.
func (s *BreakerStore) RecordFailure(ctx context.Context, gateway string, cooldown time.Duration) (int64, error) {
	key := s.prefix + gateway

	count, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis breaker incr: %w", err)
	}
	if count == 1 {
		s.client.Expire(ctx, key, cooldown)
	}
	return count, nil
}

// Reset clears the gateway's failure counter after a successful call.
func (s *BreakerStore) Reset(ctx context.Context, gateway string) error {
	if err := s.client.Del(ctx, s.prefix+gateway).Err(); err != nil {
		return fmt.Errorf("redis breaker reset: %w", err)
	}
	return nil
}
