package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"payment-orchestrator/config"
	"payment-orchestrator/internal/core/domain"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"
)

// Magic amounts (minor units) that force deterministic sandbox outcomes.
// Anything else settles immediately.
const (
	SandboxDeclineAmount     int64 = 400400 // permanent rejection
	SandboxUnavailableAmount int64 = 503503 // transient failure, retryable
	SandboxPendingAmount     int64 = 102102 // initializes fine, never settles
)

// Sandbox is an in-memory provider for local development and integration
// tests. Outcomes are a pure function of the request amount, so test
// scenarios need no external state.
type Sandbox struct {
	webhookSecret string

	mu      sync.Mutex
	records map[string]*sandboxRecord
}

type sandboxRecord struct {
	gatewayRef string
	amount     int64
	status     domain.VerificationStatus
}

// NewSandbox creates the sandbox provider.
func NewSandbox(cfg config.GatewayConfig) *Sandbox {
	return &Sandbox{
		webhookSecret: cfg.WebhookSecret,
		records:       make(map[string]*sandboxRecord),
	}
}

func (s *Sandbox) Name() string {
	return "sandbox"
}

func (s *Sandbox) InitializePayment(ctx context.Context, req ports.InitRequest) (*domain.GatewayResponse, error) {
	switch req.Amount {
	case SandboxDeclineAmount:
		return nil, apperror.ErrGatewayRejected("Insufficient funds")
	case SandboxUnavailableAmount:
		return nil, apperror.ErrGatewayUnavailable(fmt.Errorf("sandbox provider unavailable"))
	}

	status := domain.VerificationSuccess
	if req.Amount == SandboxPendingAmount {
		status = domain.VerificationPending
	}

	rec := &sandboxRecord{
		gatewayRef: "SBX_" + req.TxnRef,
		amount:     req.Amount,
		status:     status,
	}
	s.mu.Lock()
	s.records[req.TxnRef] = rec
	s.mu.Unlock()

	resp := &domain.GatewayResponse{
		Success:    true,
		GatewayRef: rec.gatewayRef,
		Message:    "Payment initialized",
	}
	switch req.Method {
	case domain.MethodVirtualAccount, domain.MethodBankTransfer:
		resp.VirtualAccount = &domain.VirtualAccount{
			AccountNumber: "9900000000",
			AccountName:   "Sandbox Checkout",
			BankName:      "Sandbox Bank",
		}
	case domain.MethodCard:
		resp.RedirectURL = "https://sandbox.invalid/checkout/" + req.TxnRef
	}
	return resp, nil
}

func (s *Sandbox) VerifyPayment(ctx context.Context, reference string) (*domain.VerificationResult, error) {
	s.mu.Lock()
	rec, ok := s.records[reference]
	s.mu.Unlock()
	if !ok {
		return nil, apperror.ErrTransactionNotFound(reference)
	}
	return &domain.VerificationResult{
		Status:     rec.status,
		GatewayRef: rec.gatewayRef,
		Amount:     rec.amount,
	}, nil
}

func (s *Sandbox) RefundPayment(ctx context.Context, req ports.RefundRequest) (*domain.GatewayResponse, error) {
	s.mu.Lock()
	rec, ok := s.records[req.TxnRef]
	if ok {
		rec.status = domain.VerificationFailed
	}
	s.mu.Unlock()
	if !ok {
		return nil, apperror.ErrTransactionNotFound(req.TxnRef)
	}
	return &domain.GatewayResponse{
		Success:    true,
		GatewayRef: "SBXRF_" + req.TxnRef,
		Message:    "Refund processed",
	}, nil
}

func (s *Sandbox) TransferFunds(ctx context.Context, req ports.TransferRequest) (*domain.GatewayResponse, error) {
	if req.Amount == SandboxDeclineAmount {
		return nil, apperror.ErrGatewayRejected("Transfer declined")
	}
	return &domain.GatewayResponse{
		Success:    true,
		GatewayRef: "SBXTR_" + req.TxnRef,
		Message:    "Transfer queued",
	}, nil
}

// ValidateWebhook checks a hex HMAC-SHA256 of the body keyed with the
// configured webhook secret.
func (s *Sandbox) ValidateWebhook(signature string, payload []byte) bool {
	mac := hmac.New(sha256.New, []byte(s.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

func (s *Sandbox) GetTransactionStatus(ctx context.Context, reference string) (domain.TransactionStatus, error) {
	result, err := s.VerifyPayment(ctx, reference)
	if err != nil {
		return "", err
	}
	switch result.Status {
	case domain.VerificationSuccess:
		return domain.StatusSuccess, nil
	case domain.VerificationFailed:
		return domain.StatusFailed, nil
	case domain.VerificationExpired:
		return domain.StatusExpired, nil
	default:
		return domain.StatusPending, nil
	}
}

func (s *Sandbox) CheckAccountBalance(ctx context.Context, accountNumber string) (*domain.Balance, error) {
	return &domain.Balance{
		AccountNumber: accountNumber,
		Available:     100000000,
		Ledger:        100000000,
		Currency:      domain.CurrencyNGN,
	}, nil
}

// Settle forces a pending sandbox payment into a terminal verification state.
// Test hook for reconciliation flows.
func (s *Sandbox) Settle(reference string, status domain.VerificationStatus) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[reference]
	if !ok {
		return false
	}
	rec.status = status
	return true
}
