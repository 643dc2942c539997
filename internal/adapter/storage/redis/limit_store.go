package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// Daily counters outlive their window by a margin so a pipeline that spans
// midnight can still release its consumption.
const dailyCounterTTL = 48 * time.Hour

// LimitStore implements ports.LimitStore with per-user daily counters in
// Redis. Keys: limits:<userID>:<ISO date>.
type LimitStore struct {
	client *goredis.Client
	prefix string
}

// NewLimitStore creates a new Redis-backed limit store.
func NewLimitStore(client *goredis.Client) *LimitStore {
	return &LimitStore{
		client: client,
		prefix: "limits:",
	}
}

func (s *LimitStore) key(userID, day string) string {
	return s.prefix + userID + ":" + day
}

// ConsumeDaily atomically adds amount to the user's counter for day and
// compares the new total against limit. On rejection the increment is rolled
// back with a compensating decrement, so two concurrent requests cannot both
// pass on a stale read.
func (s *LimitStore) ConsumeDaily(ctx context.Context, userID, day string, amount, limit int64) (int64, bool, error) {
	key := s.key(userID, day)

	total, err := s.client.IncrBy(ctx, key, amount).Result()
	if err != nil {
		return 0, false, fmt.Errorf("redis limit incr: %w", err)
	}

	// Set expiry only when this increment created the key
	if total == amount {
		s.client.Expire(ctx, key, dailyCounterTTL)
	}

	if total > limit {
		if err := s.client.DecrBy(ctx, key, amount).Err(); err != nil {
			return 0, false, fmt.Errorf("redis limit rollback: %w", err)
		}
		return total - amount, false, nil
	}

	return total, true, nil
}

// ReleaseDaily subtracts a previously consumed amount after a failed
// pipeline, clamping at zero.
func (s *LimitStore) ReleaseDaily(ctx context.Context, userID, day string, amount int64) error {
	key := s.key(userID, day)

	total, err := s.client.DecrBy(ctx, key, amount).Result()
	if err != nil {
		return fmt.Errorf("redis limit release: %w", err)
	}
	if total < 0 {
		// Counter underflow (key expired mid-pipeline); reset to zero
		if err := s.client.Set(ctx, key, 0, goredis.KeepTTL).Err(); err != nil {
			return fmt.Errorf("redis limit clamp: %w", err)
		}
	}
	return nil
}
