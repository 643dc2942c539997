package ports

import (
	"context"
	"time"
)

// IdempotencyStore is the shared atomic key-value store backing duplicate
// detection. Keys live under an idempotency namespace with a TTL.
type IdempotencyStore interface {
	// Get returns the cached value for key, or nil, nil on a miss.
	Get(ctx context.Context, key string) ([]byte, error)
	// PutIfAbsent atomically stores value under key only when the key is not
	// present. Returns true when the value was stored.
	PutIfAbsent(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Put unconditionally stores value under key.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Delete removes key, releasing a reservation after a failed pipeline so
	// a client retry can execute again.
	Delete(ctx context.Context, key string) error
}

// LimitStore tracks per-user daily cumulative spend. Both methods are atomic
// with respect to concurrent pipelines for the same user.
type LimitStore interface {
	// ConsumeDaily adds amount to the user's counter for day (ISO date) and
	// compares against limit. When the new total would exceed the limit the
	// increment is rolled back and allowed is false; consumed then reports
	// the pre-request total. When allowed, consumed is the new total.
	ConsumeDaily(ctx context.Context, userID, day string, amount, limit int64) (consumed int64, allowed bool, err error)
	// ReleaseDaily subtracts a previously consumed amount, used when a later
	// pipeline step fails after the limit was charged.
	ReleaseDaily(ctx context.Context, userID, day string, amount int64) error
}

// BreakerStore holds per-gateway failure counters in the shared store so all
// orchestrator instances observe one consistent breaker state. Counter expiry
// is the cooldown: once the key lapses the breaker is closed again.
type BreakerStore interface {
	Failures(ctx context.Context, gateway string) (int64, error)
	// RecordFailure increments the gateway's counter, arming the cooldown
	// expiry on the first failure. Returns the new count.
	RecordFailure(ctx context.Context, gateway string, cooldown time.Duration) (int64, error)
	// Reset clears the counter after a successful call.
	Reset(ctx context.Context, gateway string) error
}
