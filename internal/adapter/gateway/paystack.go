package gateway

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"payment-orchestrator/config"
	"payment-orchestrator/internal/core/domain"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"

	"github.com/rs/zerolog"
)

const defaultPaystackURL = "https://api.paystack.co"

// Paystack implements ports.PaymentGateway against the Paystack REST API.
// Amounts are passed through unchanged: Paystack expects minor currency
// units (kobo for NGN), which is what the engine carries internally.
type Paystack struct {
	secretKey     string
	webhookSecret string
	baseURL       string
	client        *http.Client
	log           zerolog.Logger
}

// NewPaystack creates a Paystack adapter. When no dedicated webhook secret is
// configured, webhooks are validated against the API secret key, which is how
// Paystack signs them.
func NewPaystack(cfg config.GatewayConfig, timeout time.Duration, log zerolog.Logger) *Paystack {
	webhookSecret := cfg.WebhookSecret
	if webhookSecret == "" {
		webhookSecret = cfg.SecretKey
	}
	return &Paystack{
		secretKey:     cfg.SecretKey,
		webhookSecret: webhookSecret,
		baseURL:       defaultPaystackURL,
		client:        &http.Client{Timeout: timeout},
		log:           log.With().Str("gateway", "paystack").Logger(),
	}
}

func (p *Paystack) Name() string {
	return "paystack"
}

// paystackEnvelope is the provider's response wrapper.
type paystackEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// call performs an authenticated request and classifies failures. Transport
// errors and 5xx responses come back retryable; 4xx responses and envelope
// rejections are permanent.
func (p *Paystack) call(ctx context.Context, method, path string, body any) (*paystackEnvelope, map[string]interface{}, error) {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, nil, apperror.InternalError(err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reqBody)
	if err != nil {
		return nil, nil, apperror.InternalError(err)
	}
	req.Header.Set("Authorization", "Bearer "+p.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, nil, apperror.ErrGatewayUnavailable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, apperror.ErrGatewayUnavailable(err)
	}

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, nil, apperror.ErrGatewayUnavailable(
			fmt.Errorf("paystack %s %s: status %d", method, path, resp.StatusCode))
	}

	var env paystackEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, apperror.ErrProcessingError(fmt.Errorf("decoding paystack response: %w", err))
	}

	var rawMap map[string]interface{}
	_ = json.Unmarshal(raw, &rawMap)

	if resp.StatusCode >= http.StatusBadRequest || !env.Status {
		msg := env.Message
		if msg == "" {
			msg = fmt.Sprintf("paystack returned status %d", resp.StatusCode)
		}
		return nil, rawMap, apperror.ErrGatewayRejected(msg)
	}

	return &env, rawMap, nil
}

// InitializePayment starts a charge at Paystack. Virtual account and bank
// transfer flows use the pay-with-transfer charge, which issues a temporary
// account number; card flows use the hosted checkout and return a redirect.
func (p *Paystack) InitializePayment(ctx context.Context, req ports.InitRequest) (*domain.GatewayResponse, error) {
	email := req.Email
	if email == "" {
		email = fmt.Sprintf("%s@customers.invalid", req.UserID)
	}

	switch req.Method {
	case domain.MethodVirtualAccount, domain.MethodBankTransfer:
		payload := map[string]any{
			"email":         email,
			"amount":        req.Amount,
			"currency":      req.Currency,
			"reference":     req.TxnRef,
			"bank_transfer": map[string]any{},
			"metadata":      req.Metadata,
		}
		env, raw, err := p.call(ctx, http.MethodPost, "/charge", payload)
		if err != nil {
			return nil, err
		}

		var data struct {
			Reference     string `json:"reference"`
			AccountNumber string `json:"account_number"`
			AccountName   string `json:"account_name"`
			Bank          struct {
				Name string `json:"name"`
			} `json:"bank"`
			AccountExpiresAt string `json:"account_expires_at"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, apperror.ErrProcessingError(fmt.Errorf("decoding charge data: %w", err))
		}

		p.log.Info().Str("txn_ref", req.TxnRef).Str("account_number", data.AccountNumber).
			Msg("virtual account issued")

		return &domain.GatewayResponse{
			Success:    true,
			GatewayRef: data.Reference,
			VirtualAccount: &domain.VirtualAccount{
				AccountNumber: data.AccountNumber,
				AccountName:   data.AccountName,
				BankName:      data.Bank.Name,
				ExpiresAt:     data.AccountExpiresAt,
			},
			Message: env.Message,
			Raw:     raw,
		}, nil

	case domain.MethodCard:
		payload := map[string]any{
			"email":     email,
			"amount":    req.Amount,
			"currency":  req.Currency,
			"reference": req.TxnRef,
			"metadata":  req.Metadata,
		}
		env, raw, err := p.call(ctx, http.MethodPost, "/transaction/initialize", payload)
		if err != nil {
			return nil, err
		}

		var data struct {
			AuthorizationURL string `json:"authorization_url"`
			Reference        string `json:"reference"`
		}
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, apperror.ErrProcessingError(fmt.Errorf("decoding initialize data: %w", err))
		}

		return &domain.GatewayResponse{
			Success:     true,
			GatewayRef:  data.Reference,
			RedirectURL: data.AuthorizationURL,
			Message:     env.Message,
			Raw:         raw,
		}, nil

	default:
		return nil, apperror.ErrNotImplemented("paystack", string(req.Method)+" payments")
	}
}

// VerifyPayment queries settlement status for a reference.
func (p *Paystack) VerifyPayment(ctx context.Context, reference string) (*domain.VerificationResult, error) {
	env, raw, err := p.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}

	var data struct {
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		Amount          int64  `json:"amount"`
		GatewayResponse string `json:"gateway_response"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperror.ErrProcessingError(fmt.Errorf("decoding verify data: %w", err))
	}

	result := &domain.VerificationResult{
		GatewayRef: data.Reference,
		Amount:     data.Amount,
		Raw:        raw,
	}
	switch data.Status {
	case "success":
		result.Status = domain.VerificationSuccess
	case "failed", "reversed":
		result.Status = domain.VerificationFailed
		result.FailureReason = data.GatewayResponse
	case "abandoned":
		result.Status = domain.VerificationExpired
	default:
		result.Status = domain.VerificationPending
	}
	return result, nil
}

// RefundPayment reverses a settled charge. Amount 0 requests a full refund.
func (p *Paystack) RefundPayment(ctx context.Context, req ports.RefundRequest) (*domain.GatewayResponse, error) {
	payload := map[string]any{
		"transaction":   req.GatewayRef,
		"currency":      req.Currency,
		"merchant_note": req.Reason,
	}
	if req.Amount > 0 {
		payload["amount"] = req.Amount
	}

	env, raw, err := p.call(ctx, http.MethodPost, "/refund", payload)
	if err != nil {
		return nil, err
	}

	var data struct {
		ID     int64  `json:"id"`
		Status string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperror.ErrProcessingError(fmt.Errorf("decoding refund data: %w", err))
	}

	p.log.Info().Str("gateway_ref", req.GatewayRef).Str("refund_status", data.Status).
		Msg("refund requested")

	return &domain.GatewayResponse{
		Success:    true,
		GatewayRef: fmt.Sprintf("%d", data.ID),
		Message:    env.Message,
		Raw:        raw,
	}, nil
}

// TransferFunds sends money to an external bank account. Paystack requires a
// transfer recipient to exist first, so this is a two-step call.
func (p *Paystack) TransferFunds(ctx context.Context, req ports.TransferRequest) (*domain.GatewayResponse, error) {
	recipientPayload := map[string]any{
		"type":           "nuban",
		"name":           req.Narration,
		"account_number": req.AccountNumber,
		"bank_code":      req.BankCode,
		"currency":       req.Currency,
	}
	env, _, err := p.call(ctx, http.MethodPost, "/transferrecipient", recipientPayload)
	if err != nil {
		return nil, err
	}

	var recipient struct {
		RecipientCode string `json:"recipient_code"`
	}
	if err := json.Unmarshal(env.Data, &recipient); err != nil {
		return nil, apperror.ErrProcessingError(fmt.Errorf("decoding recipient data: %w", err))
	}

	transferPayload := map[string]any{
		"source":    "balance",
		"amount":    req.Amount,
		"currency":  req.Currency,
		"recipient": recipient.RecipientCode,
		"reference": req.TxnRef,
		"reason":    req.Narration,
	}
	env, raw, err := p.call(ctx, http.MethodPost, "/transfer", transferPayload)
	if err != nil {
		return nil, err
	}

	var transfer struct {
		TransferCode string `json:"transfer_code"`
		Status       string `json:"status"`
	}
	if err := json.Unmarshal(env.Data, &transfer); err != nil {
		return nil, apperror.ErrProcessingError(fmt.Errorf("decoding transfer data: %w", err))
	}

	return &domain.GatewayResponse{
		Success:    true,
		GatewayRef: transfer.TransferCode,
		Message:    env.Message,
		Raw:        raw,
	}, nil
}

// ValidateWebhook checks the x-paystack-signature header: hex HMAC-SHA512 of
// the raw body keyed with the secret.
func (p *Paystack) ValidateWebhook(signature string, payload []byte) bool {
	mac := hmac.New(sha512.New, []byte(p.webhookSecret))
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GetTransactionStatus maps the provider's settlement state onto the ledger
// lifecycle.
func (p *Paystack) GetTransactionStatus(ctx context.Context, reference string) (domain.TransactionStatus, error) {
	result, err := p.VerifyPayment(ctx, reference)
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

// CheckAccountBalance reports the integration balance. Paystack keeps one
// balance per currency rather than per account, so the first entry is
// returned annotated with the requested account number.
func (p *Paystack) CheckAccountBalance(ctx context.Context, accountNumber string) (*domain.Balance, error) {
	env, _, err := p.call(ctx, http.MethodGet, "/balance", nil)
	if err != nil {
		return nil, err
	}

	var data []struct {
		Currency string `json:"currency"`
		Balance  int64  `json:"balance"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, apperror.ErrProcessingError(fmt.Errorf("decoding balance data: %w", err))
	}
	if len(data) == 0 {
		return nil, apperror.ErrProcessingError(fmt.Errorf("paystack returned no balances"))
	}

	return &domain.Balance{
		AccountNumber: accountNumber,
		Available:     data[0].Balance,
		Ledger:        data[0].Balance,
		Currency:      domain.Currency(data[0].Currency),
	}, nil
}
