package ports

import (
	"context"

	"payment-orchestrator/internal/core/domain"
)

// InitRequest is the normalized input for initiating a payment at a provider.
type InitRequest struct {
	UserID   string
	TxnRef   string
	Amount   int64 // Minor currency units
	Currency domain.Currency
	Method   domain.PaymentMethod
	Email    string
	Metadata map[string]string
}

// RefundRequest is the normalized input for reversing a provider-side charge.
type RefundRequest struct {
	TxnRef     string
	GatewayRef string
	Amount     int64 // Minor currency units; 0 means full refund
	Currency   domain.Currency
	Reason     string
}

// TransferRequest is the normalized input for an outbound transfer.
type TransferRequest struct {
	TxnRef        string
	Amount        int64 // Minor currency units
	Currency      domain.Currency
	AccountNumber string
	BankCode      string
	Narration     string
}

// PaymentGateway is the contract every payment provider adapter satisfies.
// Adapters normalize provider responses into the shared domain shapes and
// fail loudly (NOT_IMPLEMENTED) on operations they do not support.
type PaymentGateway interface {
	Name() string
	InitializePayment(ctx context.Context, req InitRequest) (*domain.GatewayResponse, error)
	VerifyPayment(ctx context.Context, reference string) (*domain.VerificationResult, error)
	RefundPayment(ctx context.Context, req RefundRequest) (*domain.GatewayResponse, error)
	TransferFunds(ctx context.Context, req TransferRequest) (*domain.GatewayResponse, error)
	// ValidateWebhook verifies an inbound webhook signature against the
	// provider's shared secret. Pure function of (signature, payload).
	ValidateWebhook(signature string, payload []byte) bool
	GetTransactionStatus(ctx context.Context, reference string) (domain.TransactionStatus, error)
	CheckAccountBalance(ctx context.Context, accountNumber string) (*domain.Balance, error)
}

// GatewayFactory resolves a provider name to a constructed adapter. Unknown
// names fail with an UNSUPPORTED_GATEWAY error.
type GatewayFactory interface {
	Resolve(name string) (PaymentGateway, error)
}
