package apperror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	Field      string `json:"field,omitempty"` // Offending field for validation errors
	HTTPStatus int    `json:"-"`
	Retryable  bool   `json:"-"` // Transient failure, safe to retry the gateway call
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Validation ----

// Validation returns a validation error naming the offending field.
func Validation(field string, message string) *AppError {
	return &AppError{
		Code:       "VALIDATION_ERROR",
		Message:    message,
		Field:      field,
		HTTPStatus: http.StatusBadRequest,
	}
}

func ErrInvalidAmount() *AppError {
	return Validation("amount", "Amount must be a positive number")
}

func ErrUnknownCurrency(currency string) *AppError {
	return Validation("currency", fmt.Sprintf("Unknown currency: %s", currency))
}

func ErrUnknownPaymentMethod(method string) *AppError {
	return Validation("paymentMethod", fmt.Sprintf("Unknown payment method: %s", method))
}

func ErrMissingField(field string) *AppError {
	return Validation(field, fmt.Sprintf("%s is required", field))
}

// ErrDailyLimitExceeded reports the configured daily limit and what is already consumed.
func ErrDailyLimitExceeded(limit, consumed int64) *AppError {
	return &AppError{
		Code:       "DAILY_LIMIT_EXCEEDED",
		Message:    fmt.Sprintf("Daily payment limit exceeded: limit %d, already consumed %d", limit, consumed),
		Field:      "amount",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// ErrTransactionLimitExceeded reports the per-transaction ceiling.
func ErrTransactionLimitExceeded(limit, amount int64) *AppError {
	return &AppError{
		Code:       "TXN_LIMIT_EXCEEDED",
		Message:    fmt.Sprintf("Transaction amount %d exceeds per-transaction limit %d", amount, limit),
		Field:      "amount",
		HTTPStatus: http.StatusUnprocessableEntity,
	}
}

// ---- Payment ----

func ErrGatewayUnavailable(err error) *AppError {
	e := Wrap("GATEWAY_UNAVAILABLE", "Payment gateway temporarily unavailable", http.StatusServiceUnavailable, err)
	e.Retryable = true
	return e
}

func ErrCircuitBreakerOpen(gateway string) *AppError {
	return New("CIRCUIT_BREAKER_OPEN", fmt.Sprintf("Gateway %s temporarily unavailable", gateway), http.StatusServiceUnavailable)
}

func ErrProcessingError(err error) *AppError {
	return Wrap("PROCESSING_ERROR", "Payment processing failed", http.StatusBadGateway, err)
}

func ErrGatewayRejected(reason string) *AppError {
	return New("GATEWAY_REJECTED", reason, http.StatusPaymentRequired)
}

func ErrUnsupportedGateway(name string) *AppError {
	return New("UNSUPPORTED_GATEWAY", fmt.Sprintf("Unsupported gateway: %s", name), http.StatusBadRequest)
}

func ErrNotImplemented(gateway, method string) *AppError {
	return New("NOT_IMPLEMENTED", fmt.Sprintf("Gateway %s does not implement %s", gateway, method), http.StatusNotImplemented)
}

func ErrTransactionNotFound(reference string) *AppError {
	return New("TXN_NOT_FOUND", fmt.Sprintf("Transaction not found: %s", reference), http.StatusNotFound)
}

// ErrRequestInProgress signals that an identical request holds the
// idempotency reservation and has not finished yet.
func ErrRequestInProgress() *AppError {
	return New("REQUEST_IN_PROGRESS", "An identical request is already being processed", http.StatusConflict)
}

func ErrDuplicateTransaction(reference string) *AppError {
	return New("DUPLICATE_TXN", fmt.Sprintf("Transaction reference already exists: %s", reference), http.StatusConflict)
}

func ErrStateConflict(reference string) *AppError {
	return New("STATE_CONFLICT", fmt.Sprintf("Transaction %s changed state concurrently", reference), http.StatusConflict)
}

// ---- Database ----

func ErrDatabaseError(err error) *AppError {
	return Wrap("DATABASE_ERROR", "Internal database error", http.StatusInternalServerError, err)
}

// InternalError wraps an internal error as a generic system failure.
func InternalError(err error) *AppError {
	return Wrap("INTERNAL_ERROR", "Internal server error", http.StatusInternalServerError, err)
}

// ---- Idempotent replay (control flow, not a failure) ----

// ReplayError signals that the request was already executed and carries the
// cached response body. The caller-facing layer unwraps it into a normal
// success response.
type ReplayError struct {
	Response []byte
}

func (e *ReplayError) Error() string {
	return "[IDEMPOTENT_REQUEST] request already processed"
}

// ErrIdempotentReplay wraps a cached response body as a replay signal.
func ErrIdempotentReplay(cached []byte) *ReplayError {
	return &ReplayError{Response: cached}
}

// AsReplay extracts a ReplayError from an error chain, if present.
func AsReplay(err error) (*ReplayError, bool) {
	var replay *ReplayError
	if errors.As(err, &replay) {
		return replay, true
	}
	return nil, false
}

// ---- Retryability classification ----

// IsRetryable reports whether err represents a transient failure worth
// retrying: explicitly flagged AppErrors, network errors, timeouts and
// context deadlines. Gateway-side validation rejections are not retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		if appErr.Retryable {
			return true
		}
		// 5xx from a provider is transient; 4xx is a permanent rejection.
		return appErr.HTTPStatus >= http.StatusInternalServerError &&
			appErr.Code != "NOT_IMPLEMENTED" &&
			appErr.Code != "DATABASE_ERROR" &&
			appErr.Code != "INTERNAL_ERROR"
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	return errors.Is(err, context.DeadlineExceeded)
}
