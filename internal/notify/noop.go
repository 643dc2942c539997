package notify

import (
	"context"

	"payment-orchestrator/internal/core/domain"
)

// NoopNotifier discards all events. Used when no notifier endpoint is
// configured.
type NoopNotifier struct{}

func NewNoopNotifier() *NoopNotifier {
	return &NoopNotifier{}
}

func (NoopNotifier) NotifyTransaction(ctx context.Context, txn *domain.Transaction) error {
	return nil
}
