package service

import (
	"context"
	"time"

	"payment-orchestrator/config"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"

	"github.com/rs/zerolog"
)

const dayLayout = "2006-01-02"

// LimitValidator enforces the per-transaction ceiling and the per-user daily
// cumulative limit. Daily consumption is charged atomically in the shared
// store, so concurrent pipelines for one user cannot jointly exceed it.
type LimitValidator struct {
	store  ports.LimitStore
	daily  int64
	perTxn int64
	log    zerolog.Logger
}

// NewLimitValidator creates a validator from configuration.
func NewLimitValidator(store ports.LimitStore, cfg config.LimitsConfig, log zerolog.Logger) *LimitValidator {
	return &LimitValidator{
		store:  store,
		daily:  cfg.Daily,
		perTxn: cfg.PerTransaction,
		log:    log,
	}
}

// Consume checks the per-transaction ceiling, then charges amount against the
// user's daily counter for day. Callers must Release on later pipeline
// failure.
func (l *LimitValidator) Consume(ctx context.Context, userID, day string, amount int64) error {
	if l.perTxn > 0 && amount > l.perTxn {
		return apperror.ErrTransactionLimitExceeded(l.perTxn, amount)
	}

	consumed, allowed, err := l.store.ConsumeDaily(ctx, userID, day, amount, l.daily)
	if err != nil {
		return apperror.InternalError(err)
	}
	if !allowed {
		return apperror.ErrDailyLimitExceeded(l.daily, consumed)
	}
	return nil
}

// Release refunds a previously consumed daily amount.
func (l *LimitValidator) Release(ctx context.Context, userID, day string, amount int64) {
	if err := l.store.ReleaseDaily(ctx, userID, day, amount); err != nil {
		l.log.Error().Str("user_id", userID).Str("day", day).Int64("amount", amount).
			Err(err).Msg("releasing daily limit failed")
	}
}

// Day returns the UTC calendar day bucket used for daily limit counters.
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}
