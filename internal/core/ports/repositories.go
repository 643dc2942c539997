package ports

import (
	"context"
	"errors"
	"time"

	"payment-orchestrator/internal/core/domain"

	"github.com/google/uuid"
)

// ErrStaleStatus is returned by UpdateStatus when the row's current status no
// longer matches the expected prior status; another pipeline finalized the
// entry first.
var ErrStaleStatus = errors.New("transaction status changed concurrently")

// ErrDuplicateRef is returned by Create when the transaction reference
// already exists in the ledger.
var ErrDuplicateRef = errors.New("transaction reference already exists")

// TransactionUpdate carries the optional fields written alongside a status
// transition. Nil fields are left untouched; Metadata entries are merged into
// the existing map.
type TransactionUpdate struct {
	GatewayRef    *string
	FailureReason *string
	Metadata      map[string]string
	CompletedAt   *time.Time
	CancelledAt   *time.Time
}

// TransactionRepository defines persistence for the payment ledger. Entries
// are inserted and mutated, never deleted.
type TransactionRepository interface {
	Create(ctx context.Context, txn *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	// GetByRef fetches a transaction by reference, scoped to the owning user.
	GetByRef(ctx context.Context, userID, txnRef string) (*domain.Transaction, error)
	// UpdateStatus transitions a transaction from an expected prior status.
	// Returns ErrStaleStatus if the row is not in the expected status.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, update *TransactionUpdate) error
}
