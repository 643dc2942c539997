package handler

import (
	"payment-orchestrator/internal/adapter/http/dto"
	"payment-orchestrator/internal/core/domain"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"
	"payment-orchestrator/pkg/response"

	"github.com/gin-gonic/gin"
)

// HeaderIdempotencyKey lets callers pin the idempotency key explicitly
// instead of relying on the derived one.
const HeaderIdempotencyKey = "Idempotency-Key"

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	orchestrator ports.PaymentOrchestrator
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(orchestrator ports.PaymentOrchestrator) *PaymentHandler {
	return &PaymentHandler{orchestrator: orchestrator}
}

// ProcessPayment handles POST /api/v1/payments.
func (h *PaymentHandler) ProcessPayment(c *gin.Context) {
	var req dto.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation("body", err.Error()))
		return
	}
	req.Normalize()

	result, err := h.orchestrator.ProcessPayment(c.Request.Context(), ports.PaymentRequest{
		UserID:         req.UserID,
		Amount:         req.Amount,
		Currency:       domain.Currency(req.Currency),
		PaymentMethod:  domain.PaymentMethod(req.PaymentMethod),
		Gateway:        req.Gateway,
		Reference:      req.Reference,
		IdempotencyKey: c.GetHeader(HeaderIdempotencyKey),
		Description:    req.Description,
		Metadata:       req.Metadata,
	})
	if err != nil {
		// A duplicate request replays the original response body.
		if replay, ok := apperror.AsReplay(err); ok {
			response.Replay(c, replay.Response)
			return
		}
		response.Error(c, err)
		return
	}

	response.Created(c, result)
}

// VerifyPayment handles GET /api/v1/payments/:reference/verify.
func (h *PaymentHandler) VerifyPayment(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		response.Error(c, apperror.ErrMissingField("user_id"))
		return
	}

	result, err := h.orchestrator.VerifyPayment(c.Request.Context(), userID, c.Param("reference"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}
