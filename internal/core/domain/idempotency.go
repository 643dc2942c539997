package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DeriveIdempotencyKey builds a deterministic idempotency key from the
// request identity tuple. seed is the caller-supplied reference when present;
// callers without a reference pass a timestamp string explicitly, keeping
// this function pure and clock-free.
func DeriveIdempotencyKey(userID string, amount int64, currency Currency, method PaymentMethod, seed string) string {
	payload := fmt.Sprintf("%s|%d|%s|%s|%s", userID, amount, currency, method, seed)
	sum := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}
