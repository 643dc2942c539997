package gateway

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"testing"

	"payment-orchestrator/config"
	"payment-orchestrator/internal/core/domain"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSandbox() *Sandbox {
	return NewSandbox(config.GatewayConfig{WebhookSecret: "whsec"})
}

func TestSandbox_InitializeAndVerify(t *testing.T) {
	s := newTestSandbox()
	ctx := context.Background()

	resp, err := s.InitializePayment(ctx, ports.InitRequest{
		UserID:   "user-1",
		TxnRef:   "DVA_TEST0000000001",
		Amount:   150000,
		Currency: domain.CurrencyNGN,
		Method:   domain.MethodVirtualAccount,
	})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, "SBX_DVA_TEST0000000001", resp.GatewayRef)
	require.NotNil(t, resp.VirtualAccount)
	assert.Equal(t, "9900000000", resp.VirtualAccount.AccountNumber)

	result, err := s.VerifyPayment(ctx, "DVA_TEST0000000001")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationSuccess, result.Status)
	assert.Equal(t, int64(150000), result.Amount)
}

func TestSandbox_CardReturnsRedirect(t *testing.T) {
	s := newTestSandbox()

	resp, err := s.InitializePayment(context.Background(), ports.InitRequest{
		TxnRef:   "CARD_TEST000000001",
		Amount:   5000,
		Currency: domain.CurrencyNGN,
		Method:   domain.MethodCard,
	})
	require.NoError(t, err)
	assert.Contains(t, resp.RedirectURL, "CARD_TEST000000001")
	assert.Nil(t, resp.VirtualAccount)
}

func TestSandbox_MagicAmounts(t *testing.T) {
	s := newTestSandbox()
	ctx := context.Background()

	_, err := s.InitializePayment(ctx, ports.InitRequest{
		TxnRef: "CARD_DECLINE000001", Amount: SandboxDeclineAmount,
		Currency: domain.CurrencyNGN, Method: domain.MethodCard,
	})
	require.Error(t, err)
	assert.False(t, apperror.IsRetryable(err), "decline is permanent")

	_, err = s.InitializePayment(ctx, ports.InitRequest{
		TxnRef: "CARD_OUTAGE0000001", Amount: SandboxUnavailableAmount,
		Currency: domain.CurrencyNGN, Method: domain.MethodCard,
	})
	require.Error(t, err)
	assert.True(t, apperror.IsRetryable(err), "outage is transient")
}

func TestSandbox_PendingThenSettled(t *testing.T) {
	s := newTestSandbox()
	ctx := context.Background()

	_, err := s.InitializePayment(ctx, ports.InitRequest{
		TxnRef: "TRF_PENDING0000001", Amount: SandboxPendingAmount,
		Currency: domain.CurrencyNGN, Method: domain.MethodBankTransfer,
	})
	require.NoError(t, err)

	result, err := s.VerifyPayment(ctx, "TRF_PENDING0000001")
	require.NoError(t, err)
	assert.Equal(t, domain.VerificationPending, result.Status)

	require.True(t, s.Settle("TRF_PENDING0000001", domain.VerificationSuccess))

	status, err := s.GetTransactionStatus(ctx, "TRF_PENDING0000001")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusSuccess, status)
}

func TestSandbox_VerifyUnknownReference(t *testing.T) {
	s := newTestSandbox()

	_, err := s.VerifyPayment(context.Background(), "CARD_MISSING000001")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TXN_NOT_FOUND", appErr.Code)
}

func TestSandbox_ValidateWebhook(t *testing.T) {
	s := newTestSandbox()
	payload := []byte(`{"event":"charge.success","data":{"reference":"DVA_TEST0000000001"}}`)

	mac := hmac.New(sha256.New, []byte("whsec"))
	mac.Write(payload)
	signature := hex.EncodeToString(mac.Sum(nil))

	assert.True(t, s.ValidateWebhook(signature, payload))
	assert.False(t, s.ValidateWebhook(signature, []byte(`{"tampered":true}`)))
	assert.False(t, s.ValidateWebhook("deadbeef", payload))
}
