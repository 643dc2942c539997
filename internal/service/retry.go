package service

import (
	"context"
	"time"

	"payment-orchestrator/config"
	"payment-orchestrator/pkg/apperror"

	"github.com/rs/zerolog"
)

// RetryPolicy retries transient failures with exponential backoff. Permanent
// failures (gateway rejections, validation errors) return immediately.
type RetryPolicy struct {
	maxAttempts int
	backoffBase time.Duration
	log         zerolog.Logger
}

// NewRetryPolicy creates a retry policy from configuration.
func NewRetryPolicy(cfg config.RetryConfig, log zerolog.Logger) *RetryPolicy {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoffBase := cfg.BackoffBase
	if backoffBase <= 0 {
		backoffBase = time.Second
	}
	return &RetryPolicy{
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		log:         log,
	}
}

// Do runs fn up to maxAttempts times. Backoff doubles after each failed
// attempt and honors context cancellation while sleeping.
func (r *RetryPolicy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	backoff := r.backoffBase
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !apperror.IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == r.maxAttempts {
			break
		}

		r.log.Warn().
			Str("operation", op).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Err(lastErr).
			Msg("transient failure, retrying")

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return lastErr
}
