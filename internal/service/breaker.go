package service

import (
	"context"
	"time"

	"payment-orchestrator/config"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"

	"github.com/rs/zerolog"
)

// CircuitBreaker gates gateway calls on a shared failure counter so every
// orchestrator instance observes the same breaker state. The counter's Redis
// expiry is the cooldown: when it lapses the breaker closes again.
type CircuitBreaker struct {
	store     ports.BreakerStore
	threshold int64
	cooldown  time.Duration
	log       zerolog.Logger
}

// NewCircuitBreaker creates a breaker from configuration.
func NewCircuitBreaker(store ports.BreakerStore, cfg config.BreakerConfig, log zerolog.Logger) *CircuitBreaker {
	return &CircuitBreaker{
		store:     store,
		threshold: cfg.Threshold,
		cooldown:  cfg.Cooldown,
		log:       log,
	}
}

// Allow returns CIRCUIT_BREAKER_OPEN when the gateway's failure count has
// reached the threshold. Store errors fail open: a broken counter must not
// take payments down with it.
func (b *CircuitBreaker) Allow(ctx context.Context, gateway string) error {
	count, err := b.store.Failures(ctx, gateway)
	if err != nil {
		b.log.Warn().Str("gateway", gateway).Err(err).Msg("breaker state unavailable, failing open")
		return nil
	}
	if count >= b.threshold {
		return apperror.ErrCircuitBreakerOpen(gateway)
	}
	return nil
}

// RecordFailure increments the gateway's failure counter.
func (b *CircuitBreaker) RecordFailure(ctx context.Context, gateway string) {
	count, err := b.store.RecordFailure(ctx, gateway, b.cooldown)
	if err != nil {
		b.log.Warn().Str("gateway", gateway).Err(err).Msg("recording breaker failure failed")
		return
	}
	if count == b.threshold {
		b.log.Error().Str("gateway", gateway).Int64("failures", count).
			Dur("cooldown", b.cooldown).Msg("circuit breaker opened")
	}
}

// RecordSuccess clears the gateway's failure counter.
func (b *CircuitBreaker) RecordSuccess(ctx context.Context, gateway string) {
	if err := b.store.Reset(ctx, gateway); err != nil {
		b.log.Warn().Str("gateway", gateway).Err(err).Msg("resetting breaker failed")
	}
}
