package ports

import (
	"context"

	"payment-orchestrator/internal/core/domain"
)

// PaymentRequest is the caller-supplied input to ProcessPayment. Amount is in
// major currency units; the orchestrator converts to minor units.
type PaymentRequest struct {
	UserID         string
	Amount         float64
	Currency       domain.Currency
	PaymentMethod  domain.PaymentMethod
	Gateway        string // Optional provider hint; empty selects the default
	Reference      string // Optional caller-supplied idempotency seed
	IdempotencyKey string // Optional explicit idempotency key
	Description    string
	Metadata       map[string]string
}

// NextSteps tells the caller how to complete the payment.
type NextSteps struct {
	Action         string                 `json:"action"` // transfer_to_account | redirect | pending
	VirtualAccount *domain.VirtualAccount `json:"virtual_account,omitempty"`
	RedirectURL    string                 `json:"redirect_url,omitempty"`
}

const (
	NextStepTransfer = "transfer_to_account"
	NextStepRedirect = "redirect"
	NextStepPending  = "pending"
)

// PaymentResponse is the orchestrator's result for a processed payment.
type PaymentResponse struct {
	Success       bool                     `json:"success"`
	TransactionID string                   `json:"transaction_id"`
	TxnRef        string                   `json:"txn_ref"`
	GatewayRef    string                   `json:"gateway_ref,omitempty"`
	Amount        int64                    `json:"amount"` // Minor units
	Currency      domain.Currency          `json:"currency"`
	PaymentMethod domain.PaymentMethod     `json:"payment_method"`
	Gateway       string                   `json:"gateway"`
	Status        domain.TransactionStatus `json:"status"`
	NextSteps     NextSteps                `json:"next_steps"`
}

// VerifyResponse is the result of reconciling a transaction against gateway
// truth.
type VerifyResponse struct {
	TxnRef        string                   `json:"txn_ref"`
	Status        domain.TransactionStatus `json:"status"`
	GatewayRef    string                   `json:"gateway_ref,omitempty"`
	Amount        int64                    `json:"amount"`
	Currency      domain.Currency          `json:"currency"`
	FailureReason string                   `json:"failure_reason,omitempty"`
}

// PaymentOrchestrator sequences the payment pipeline.
type PaymentOrchestrator interface {
	ProcessPayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error)
	VerifyPayment(ctx context.Context, userID, reference string) (*VerifyResponse, error)
}

// Notifier is informed of terminal transaction states. Delivery is
// best-effort; failures never fail the pipeline.
type Notifier interface {
	NotifyTransaction(ctx context.Context, txn *domain.Transaction) error
}
