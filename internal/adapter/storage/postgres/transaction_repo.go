package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"payment-orchestrator/internal/core/domain"
	"payment-orchestrator/internal/core/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// TransactionRepo implements ports.TransactionRepository using PostgreSQL.
type TransactionRepo struct {
	pool Pool
}

// NewTransactionRepo creates a new transaction repository.
func NewTransactionRepo(pool Pool) *TransactionRepo {
	return &TransactionRepo{pool: pool}
}

const transactionColumns = `id, user_id, txn_ref, type, amount, currency, status, gateway,
		payment_method, gateway_ref, description, metadata, failure_reason,
		created_at, completed_at, cancelled_at`

// Create inserts a new ledger entry. Returns ports.ErrDuplicateRef when the
// transaction reference already exists.
func (r *TransactionRepo) Create(ctx context.Context, txn *domain.Transaction) error {
	metadata, err := marshalMetadata(txn.Metadata)
	if err != nil {
		return fmt.Errorf("marshaling metadata: %w", err)
	}

	query := `
		INSERT INTO transactions (
			id, user_id, txn_ref, type, amount, currency, status, gateway,
			payment_method, gateway_ref, description, metadata, failure_reason,
			created_at, completed_at, cancelled_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`

	_, err = r.pool.Exec(ctx, query,
		txn.ID, txn.UserID, txn.TxnRef, txn.Type, txn.Amount, txn.Currency,
		txn.Status, txn.Gateway, txn.PaymentMethod, txn.GatewayRef,
		txn.Description, metadata, txn.FailureReason,
		txn.CreatedAt, txn.CompletedAt, txn.CancelledAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ports.ErrDuplicateRef
		}
		return fmt.Errorf("inserting transaction: %w", err)
	}
	return nil
}

// GetByID fetches a transaction by its ledger ID. Returns (nil, nil) when no
// row exists.
func (r *TransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	return scanTransaction(row)
}

// GetByRef fetches a transaction by reference, scoped to the owning user so
// one user cannot probe another's ledger. Returns (nil, nil) when no row
// exists.
func (r *TransactionRepo) GetByRef(ctx context.Context, userID, txnRef string) (*domain.Transaction, error) {
	query := `
		SELECT ` + transactionColumns + `
		FROM transactions
		WHERE user_id = $1 AND txn_ref = $2`

	row := r.pool.QueryRow(ctx, query, userID, txnRef)
	return scanTransaction(row)
}

// UpdateStatus transitions a transaction from an expected prior status,
// writing the optional update fields in the same statement. The status guard
// in the WHERE clause makes the transition safe under concurrent pipelines:
// zero rows affected means another writer got there first and the caller
// receives ports.ErrStaleStatus.
func (r *TransactionRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.TransactionStatus, update *ports.TransactionUpdate) error {
	sets := []string{"status = $1"}
	args := []any{to}
	idx := 2

	if update != nil {
		if update.GatewayRef != nil {
			sets = append(sets, fmt.Sprintf("gateway_ref = $%d", idx))
			args = append(args, *update.GatewayRef)
			idx++
		}
		if update.FailureReason != nil {
			sets = append(sets, fmt.Sprintf("failure_reason = $%d", idx))
			args = append(args, *update.FailureReason)
			idx++
		}
		if len(update.Metadata) > 0 {
			patch, err := marshalMetadata(update.Metadata)
			if err != nil {
				return fmt.Errorf("marshaling metadata: %w", err)
			}
			sets = append(sets, fmt.Sprintf("metadata = COALESCE(metadata, '{}'::jsonb) || $%d::jsonb", idx))
			args = append(args, patch)
			idx++
		}
		if update.CompletedAt != nil {
			sets = append(sets, fmt.Sprintf("completed_at = $%d", idx))
			args = append(args, *update.CompletedAt)
			idx++
		}
		if update.CancelledAt != nil {
			sets = append(sets, fmt.Sprintf("cancelled_at = $%d", idx))
			args = append(args, *update.CancelledAt)
			idx++
		}
	}

	query := fmt.Sprintf(
		"UPDATE transactions SET %s WHERE id = $%d AND status = $%d",
		strings.Join(sets, ", "), idx, idx+1,
	)
	args = append(args, id, from)

	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating transaction status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ports.ErrStaleStatus
	}
	return nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var txn domain.Transaction
	var metadata []byte

	err := row.Scan(
		&txn.ID, &txn.UserID, &txn.TxnRef, &txn.Type, &txn.Amount,
		&txn.Currency, &txn.Status, &txn.Gateway, &txn.PaymentMethod,
		&txn.GatewayRef, &txn.Description, &metadata, &txn.FailureReason,
		&txn.CreatedAt, &txn.CompletedAt, &txn.CancelledAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scanning transaction: %w", err)
	}

	if len(metadata) > 0 {
		if err := json.Unmarshal(metadata, &txn.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshaling metadata: %w", err)
		}
	}
	return &txn, nil
}

func marshalMetadata(m map[string]string) ([]byte, error) {
	if m == nil {
		m = map[string]string{}
	}
	return json.Marshal(m)
}
