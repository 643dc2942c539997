package integration

import (
	"context"
	"sync"
	"sync/atomic"

	"payment-orchestrator/internal/core/domain"
	"payment-orchestrator/internal/core/ports"

	"github.com/google/uuid"
)

// inMemoryTransactionRepo is a thread-safe in-memory implementation of
// ports.TransactionRepository for end-to-end tests.
type inMemoryTransactionRepo struct {
	mu      sync.Mutex
	byID    map[uuid.UUID]*domain.Transaction
	refs    map[string]uuid.UUID // txn_ref -> id
	creates atomic.Int64
}

func newInMemoryTransactionRepo() *inMemoryTransactionRepo {
	return &inMemoryTransactionRepo{
		byID: make(map[uuid.UUID]*domain.Transaction),
		refs: make(map[string]uuid.UUID),
	}
}

func (r *inMemoryTransactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.refs[txn.TxnRef]; exists {
		return ports.ErrDuplicateRef
	}
	cp := *txn
	r.byID[txn.ID] = &cp
	r.refs[txn.TxnRef] = txn.ID
	r.creates.Add(1)
	return nil
}

func (r *inMemoryTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.byID[id]
	if !ok {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

func (r *inMemoryTransactionRepo) GetByRef(ctx context.Context, userID, txnRef string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.refs[txnRef]
	if !ok {
		return nil, nil
	}
	txn := r.byID[id]
	if txn.UserID != userID {
		return nil, nil
	}
	cp := *txn
	return &cp, nil
}

func (r *inMemoryTransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, update *ports.TransactionUpdate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.byID[id]
	if !ok || txn.Status != from {
		return ports.ErrStaleStatus
	}
	txn.Status = to
	if update != nil {
		if update.GatewayRef != nil {
			txn.GatewayRef = *update.GatewayRef
		}
		if update.FailureReason != nil {
			txn.FailureReason = *update.FailureReason
		}
		if len(update.Metadata) > 0 {
			if txn.Metadata == nil {
				txn.Metadata = make(map[string]string)
			}
			for k, v := range update.Metadata {
				txn.Metadata[k] = v
			}
		}
		if update.CompletedAt != nil {
			txn.CompletedAt = update.CompletedAt
		}
		if update.CancelledAt != nil {
			txn.CancelledAt = update.CancelledAt
		}
	}
	return nil
}

// CreateCount returns how many ledger entries were inserted.
func (r *inMemoryTransactionRepo) CreateCount() int64 {
	return r.creates.Load()
}

// Refs returns every transaction reference in the ledger.
func (r *inMemoryTransactionRepo) Refs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	refs := make([]string, 0, len(r.refs))
	for ref := range r.refs {
		refs = append(refs, ref)
	}
	return refs
}

// StatusOf returns the current status of a reference, or "" if unknown.
func (r *inMemoryTransactionRepo) StatusOf(txnRef string) domain.TransactionStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.refs[txnRef]
	if !ok {
		return ""
	}
	return r.byID[id].Status
}
