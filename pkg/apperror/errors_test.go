package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	tests := []struct {
		name     string
		appErr   *AppError
		expected string
	}{
		{
			name:     "without wrapped error",
			appErr:   New("CIRCUIT_BREAKER_OPEN", "Gateway down", http.StatusServiceUnavailable),
			expected: "[CIRCUIT_BREAKER_OPEN] Gateway down",
		},
		{
			name:     "with wrapped error",
			appErr:   Wrap("DATABASE_ERROR", "DB error", http.StatusInternalServerError, fmt.Errorf("connection refused")),
			expected: "[DATABASE_ERROR] DB error: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.appErr.Error())
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	inner := fmt.Errorf("inner error")
	appErr := Wrap("DATABASE_ERROR", "wrapped", http.StatusInternalServerError, inner)

	assert.True(t, errors.Is(appErr, inner))
}

func TestValidationErrors(t *testing.T) {
	tests := []struct {
		name  string
		err   *AppError
		code  string
		field string
	}{
		{"InvalidAmount", ErrInvalidAmount(), "VALIDATION_ERROR", "amount"},
		{"UnknownCurrency", ErrUnknownCurrency("XYZ"), "VALIDATION_ERROR", "currency"},
		{"UnknownMethod", ErrUnknownPaymentMethod("cash"), "VALIDATION_ERROR", "paymentMethod"},
		{"MissingField", ErrMissingField("userId"), "VALIDATION_ERROR", "userId"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.field, tt.err.Field)
			assert.Equal(t, http.StatusBadRequest, tt.err.HTTPStatus)
		})
	}
}

func TestLimitErrors_CarryAmounts(t *testing.T) {
	daily := ErrDailyLimitExceeded(10000000, 9990000)
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", daily.Code)
	assert.Contains(t, daily.Message, "10000000")
	assert.Contains(t, daily.Message, "9990000")
	assert.Equal(t, http.StatusUnprocessableEntity, daily.HTTPStatus)

	perTxn := ErrTransactionLimitExceeded(5000000, 6000000)
	assert.Equal(t, "TXN_LIMIT_EXCEEDED", perTxn.Code)
	assert.Contains(t, perTxn.Message, "5000000")
	assert.Contains(t, perTxn.Message, "6000000")
}

func TestPaymentErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		code       string
		httpStatus int
	}{
		{"CircuitBreakerOpen", ErrCircuitBreakerOpen("paystack"), "CIRCUIT_BREAKER_OPEN", 503},
		{"GatewayUnavailable", ErrGatewayUnavailable(fmt.Errorf("dial tcp: refused")), "GATEWAY_UNAVAILABLE", 503},
		{"ProcessingError", ErrProcessingError(fmt.Errorf("boom")), "PROCESSING_ERROR", 502},
		{"GatewayRejected", ErrGatewayRejected("card declined"), "GATEWAY_REJECTED", 402},
		{"UnsupportedGateway", ErrUnsupportedGateway("stripe"), "UNSUPPORTED_GATEWAY", 400},
		{"NotImplemented", ErrNotImplemented("sandbox", "TransferFunds"), "NOT_IMPLEMENTED", 501},
		{"TransactionNotFound", ErrTransactionNotFound("DVA_123"), "TXN_NOT_FOUND", 404},
		{"DuplicateTransaction", ErrDuplicateTransaction("DVA_123"), "DUPLICATE_TXN", 409},
		{"StateConflict", ErrStateConflict("DVA_123"), "STATE_CONFLICT", 409},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, tt.httpStatus, tt.err.HTTPStatus)
		})
	}
}

func TestReplayError(t *testing.T) {
	cached := []byte(`{"success":true}`)
	err := ErrIdempotentReplay(cached)

	replay, ok := AsReplay(fmt.Errorf("pipeline: %w", err))
	require.True(t, ok)
	assert.Equal(t, cached, replay.Response)

	_, ok = AsReplay(fmt.Errorf("plain error"))
	assert.False(t, ok)
}

type fakeTimeoutErr struct{}

func (fakeTimeoutErr) Error() string   { return "i/o timeout" }
func (fakeTimeoutErr) Timeout() bool   { return true }
func (fakeTimeoutErr) Temporary() bool { return true }

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"gateway unavailable", ErrGatewayUnavailable(fmt.Errorf("refused")), true},
		{"net error", &net.OpError{Op: "dial", Err: fakeTimeoutErr{}}, true},
		{"deadline exceeded", context.DeadlineExceeded, true},
		{"wrapped deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"validation error", ErrInvalidAmount(), false},
		{"gateway rejected", ErrGatewayRejected("declined"), false},
		{"not implemented", ErrNotImplemented("x", "y"), false},
		{"database error", ErrDatabaseError(fmt.Errorf("closed")), false},
		{"plain error", fmt.Errorf("something"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, IsRetryable(tt.err))
		})
	}
}

func TestIsRetryable_Timeout(t *testing.T) {
	err := fmt.Errorf("gateway call: %w", &net.OpError{Op: "read", Err: fakeTimeoutErr{}})
	assert.True(t, IsRetryable(err))
}
