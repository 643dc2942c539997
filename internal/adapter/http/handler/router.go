package handler

import (
	"payment-orchestrator/internal/adapter/http/middleware"
	"payment-orchestrator/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	Orchestrator   ports.PaymentOrchestrator
	Gateways       ports.GatewayFactory
	HealthCheckers []ports.HealthChecker
	Mode           string // gin mode: debug, release, test
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	if deps.Mode != "" {
		gin.SetMode(deps.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep: verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	paymentHandler := NewPaymentHandler(deps.Orchestrator)
	webhookHandler := NewWebhookHandler(deps.Gateways, deps.Logger)

	v1 := r.Group("/api/v1")

	payments := v1.Group("/payments")
	{
		payments.POST("", paymentHandler.ProcessPayment)
		payments.GET("/:reference/verify", paymentHandler.VerifyPayment)
	}

	v1.POST("/webhooks/:gateway", webhookHandler.Receive)

	return r
}
