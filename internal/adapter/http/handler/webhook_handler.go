package handler

import (
	"encoding/json"
	"io"
	"net/http"

	"payment-orchestrator/internal/adapter/http/dto"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"
	"payment-orchestrator/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// WebhookHandler receives inbound provider webhooks. Signature validation is
// delegated to the named gateway adapter; the payload is acknowledged and
// logged for the reconciliation flow to act on.
type WebhookHandler struct {
	gateways ports.GatewayFactory
	log      zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(gateways ports.GatewayFactory, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{gateways: gateways, log: log}
}

// Receive handles POST /api/v1/webhooks/:gateway.
func (h *WebhookHandler) Receive(c *gin.Context) {
	adapter, err := h.gateways.Resolve(c.Param("gateway"))
	if err != nil {
		response.Error(c, err)
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("body", "cannot read request body"))
		return
	}

	signature := c.GetHeader("X-Paystack-Signature")
	if signature == "" {
		signature = c.GetHeader("X-Webhook-Signature")
	}
	if !adapter.ValidateWebhook(signature, body) {
		h.log.Warn().Str("gateway", adapter.Name()).Msg("webhook signature rejected")
		c.JSON(http.StatusUnauthorized, gin.H{
			"error_code": "INVALID_SIGNATURE",
			"message":    "Webhook signature verification failed",
		})
		return
	}

	var event dto.WebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		response.Error(c, apperror.Validation("body", "malformed webhook payload"))
		return
	}

	h.log.Info().
		Str("gateway", adapter.Name()).
		Str("event", event.Event).
		Str("reference", event.Data.Reference).
		Msg("webhook received")

	response.OK(c, gin.H{"received": true})
}
