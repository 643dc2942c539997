package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Currency is an ISO 4217 code accepted by the engine.
type Currency string

const (
	CurrencyNGN Currency = "NGN"
	CurrencyUSD Currency = "USD"
	CurrencyGBP Currency = "GBP"
	CurrencyEUR Currency = "EUR"
)

// Valid reports whether the currency is a recognized enum member.
func (c Currency) Valid() bool {
	switch c {
	case CurrencyNGN, CurrencyUSD, CurrencyGBP, CurrencyEUR:
		return true
	}
	return false
}

// PaymentMethod is the instrument used to fund a payment.
type PaymentMethod string

const (
	MethodCard           PaymentMethod = "card"
	MethodVirtualAccount PaymentMethod = "virtual_account"
	MethodBankTransfer   PaymentMethod = "bank_transfer"
	MethodWallet         PaymentMethod = "wallet"
)

// Valid reports whether the payment method is a recognized enum member.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodVirtualAccount, MethodBankTransfer, MethodWallet:
		return true
	}
	return false
}

// RefPrefix returns the transaction reference prefix for this flow type.
func (m PaymentMethod) RefPrefix() string {
	switch m {
	case MethodVirtualAccount:
		return "DVA_"
	case MethodCard:
		return "CARD_"
	case MethodBankTransfer:
		return "TRF_"
	case MethodWallet:
		return "WAL_"
	default:
		return "TXN_"
	}
}

// TransactionType represents the kind of money movement.
type TransactionType string

const (
	TypeDeposit    TransactionType = "deposit"
	TypeWithdrawal TransactionType = "withdrawal"
	TypeRefund     TransactionType = "refund"
	TypeTransfer   TransactionType = "transfer"
)

// TransactionStatus represents the lifecycle state of a ledger entry.
type TransactionStatus string

const (
	StatusPending    TransactionStatus = "pending"
	StatusProcessing TransactionStatus = "processing"
	StatusSuccess    TransactionStatus = "success"
	StatusFailed     TransactionStatus = "failed"
	StatusCancelled  TransactionStatus = "cancelled"
	StatusExpired    TransactionStatus = "expired"
	StatusRefunded   TransactionStatus = "refunded"
)

// forwardTransitions encodes the monotonic lifecycle. Cancellation and
// failure are reachable from any non-terminal state via rollback, which is
// handled by CanTransitionTo directly.
var forwardTransitions = map[TransactionStatus][]TransactionStatus{
	StatusPending:    {StatusProcessing, StatusSuccess, StatusFailed, StatusCancelled, StatusExpired},
	StatusProcessing: {StatusSuccess, StatusFailed, StatusCancelled, StatusExpired},
	StatusSuccess:    {StatusRefunded},
	StatusFailed:     {},
	StatusCancelled:  {},
	StatusExpired:    {},
	StatusRefunded:   {},
}

// Transaction is the durable ledger record of a payment attempt. Entries are
// appended and mutated, never deleted.
type Transaction struct {
	ID            uuid.UUID         `json:"id"`
	UserID        string            `json:"user_id"`
	TxnRef        string            `json:"txn_ref"`
	Type          TransactionType   `json:"type"`
	Amount        int64             `json:"amount"` // Minor currency units
	Currency      Currency          `json:"currency"`
	Status        TransactionStatus `json:"status"`
	Gateway       string            `json:"gateway"`
	PaymentMethod PaymentMethod     `json:"payment_method"`
	GatewayRef    string            `json:"gateway_ref,omitempty"`
	Description   string            `json:"description,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
	FailureReason string            `json:"failure_reason,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	CompletedAt   *time.Time        `json:"completed_at,omitempty"`
	CancelledAt   *time.Time        `json:"cancelled_at,omitempty"`
}

// IsTerminal returns true if the transaction is in a final state.
func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusSuccess, StatusFailed, StatusCancelled, StatusExpired, StatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether moving to next respects the lifecycle.
func (t *Transaction) CanTransitionTo(next TransactionStatus) bool {
	for _, allowed := range forwardTransitions[t.Status] {
		if allowed == next {
			return true
		}
	}
	return false
}

// NewTxnRef generates a globally unique transaction reference with the
// flow-type prefix expected by providers, e.g. DVA_9F3A1B2C4D5E6F70.
func NewTxnRef(method PaymentMethod) string {
	id := strings.ToUpper(strings.ReplaceAll(uuid.New().String(), "-", ""))
	return method.RefPrefix() + id[:16]
}
