package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"payment-orchestrator/config"
	"payment-orchestrator/internal/adapter/gateway"
	httpHandler "payment-orchestrator/internal/adapter/http/handler"
	redisStorage "payment-orchestrator/internal/adapter/storage/redis"
	"payment-orchestrator/internal/core/domain"
	"payment-orchestrator/internal/notify"
	"payment-orchestrator/internal/service"
	"payment-orchestrator/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testApp wires the real HTTP layer, services, Redis stores (miniredis) and
// the sandbox gateway against an in-memory ledger. Only PostgreSQL is
// substituted.
type testApp struct {
	server  *httptest.Server
	redis   *miniredis.Miniredis
	txRepo  *inMemoryTransactionRepo
	sandbox *gateway.Sandbox
}

func newTestApp(t *testing.T, limits config.LimitsConfig) *testApp {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})

	idempotencyStore := redisStorage.NewIdempotencyStore(rdb)
	limitStore := redisStorage.NewLimitStore(rdb)
	breakerStore := redisStorage.NewBreakerStore(rdb)

	txRepo := newInMemoryTransactionRepo()
	sandbox := gateway.NewSandbox(config.GatewayConfig{WebhookSecret: "whsec"})
	registry := gateway.NewRegistry("sandbox", sandbox)

	log := logger.NewWithWriter("error", io.Discard)
	limitValidator := service.NewLimitValidator(limitStore, limits, log)
	breaker := service.NewCircuitBreaker(breakerStore, config.BreakerConfig{Threshold: 5, Cooldown: time.Minute}, log)
	retry := service.NewRetryPolicy(config.RetryConfig{MaxAttempts: 3, BackoffBase: time.Millisecond}, log)

	paymentSvc := service.NewPaymentService(
		txRepo, idempotencyStore, limitValidator, breaker, retry,
		registry, notify.NewNoopNotifier(), 24*time.Hour, log,
	)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		Orchestrator: paymentSvc,
		Gateways:     registry,
		Mode:         gin.TestMode,
		Logger:       log,
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &testApp{server: server, redis: mr, txRepo: txRepo, sandbox: sandbox}
}

func defaultLimits() config.LimitsConfig {
	return config.LimitsConfig{Daily: 10000000, PerTransaction: 5000000}
}

type envelope struct {
	Data      map[string]any `json:"data"`
	ErrorCode string         `json:"error_code"`
	Message   string         `json:"message"`
}

func postPayment(t *testing.T, app *testApp, body string) (int, envelope) {
	t.Helper()
	resp, err := http.Post(app.server.URL+"/api/v1/payments", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	return resp.StatusCode, env
}

func TestEndToEnd_VirtualAccountFlow(t *testing.T) {
	app := newTestApp(t, defaultLimits())

	status, env := postPayment(t, app, `{
		"user_id": "user-1",
		"amount": 1500.00,
		"currency": "NGN",
		"payment_method": "virtual_account",
		"reference": "ord-1",
		"metadata": {"email": "payer@example.com"}
	}`)
	require.Equal(t, http.StatusCreated, status)

	txnRef, _ := env.Data["txn_ref"].(string)
	require.NotEmpty(t, txnRef)
	assert.Equal(t, "processing", env.Data["status"])
	assert.Equal(t, float64(150000), env.Data["amount"])

	nextSteps, _ := env.Data["next_steps"].(map[string]any)
	require.NotNil(t, nextSteps)
	assert.Equal(t, "transfer_to_account", nextSteps["action"])

	// Reconcile: the sandbox settles non-magic amounts immediately
	resp, err := http.Get(fmt.Sprintf("%s/api/v1/payments/%s/verify?user_id=user-1", app.server.URL, txnRef))
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verifyEnv envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verifyEnv))
	assert.Equal(t, "success", verifyEnv.Data["status"])
	assert.Equal(t, "success", string(app.txRepo.StatusOf(txnRef)))
}

func TestEndToEnd_DuplicateSubmissionReplays(t *testing.T) {
	app := newTestApp(t, defaultLimits())

	body := `{"user_id":"user-1","amount":1500.00,"currency":"NGN","payment_method":"card","reference":"ord-dup"}`

	status1, env1 := postPayment(t, app, body)
	require.Equal(t, http.StatusCreated, status1)

	status2, env2 := postPayment(t, app, body)
	require.Equal(t, http.StatusOK, status2, "duplicate replays the original response")

	assert.Equal(t, env1.Data["txn_ref"], env2.Data["txn_ref"])
	assert.Equal(t, int64(1), app.txRepo.CreateCount(), "only one ledger entry for duplicates")
}

func TestEndToEnd_GatewayDeclineRollsBackLimit(t *testing.T) {
	app := newTestApp(t, config.LimitsConfig{Daily: 5000000, PerTransaction: 5000000})

	// 4004.00 NGN = 400400 minor units, the sandbox's decline amount
	status, env := postPayment(t, app, `{
		"user_id": "user-1",
		"amount": 4004.00,
		"currency": "NGN",
		"payment_method": "card",
		"reference": "ord-decline"
	}`)
	assert.Equal(t, http.StatusPaymentRequired, status)
	assert.Equal(t, "GATEWAY_REJECTED", env.ErrorCode)
	refs := app.txRepo.Refs()
	require.Len(t, refs, 1)
	assert.Equal(t, "failed", string(app.txRepo.StatusOf(refs[0])), "declined ledger entry is marked failed")

	// The declined amount was refunded to the daily allowance: a payment that
	// needs the entire 50000.00 limit only fits if the 4004.00 was released.
	status, _ = postPayment(t, app, `{
		"user_id": "user-1",
		"amount": 50000.00,
		"currency": "NGN",
		"payment_method": "card",
		"reference": "ord-after-decline"
	}`)
	assert.Equal(t, http.StatusCreated, status)
}

func TestEndToEnd_DailyLimitEnforced(t *testing.T) {
	app := newTestApp(t, config.LimitsConfig{Daily: 300000, PerTransaction: 5000000})

	// 3 payments of 1000.00 exhaust the 3000.00 daily allowance
	for i := 0; i < 3; i++ {
		status, _ := postPayment(t, app, fmt.Sprintf(
			`{"user_id":"user-1","amount":1000.00,"currency":"NGN","payment_method":"card","reference":"ord-%d"}`, i))
		require.Equal(t, http.StatusCreated, status)
	}

	status, env := postPayment(t, app,
		`{"user_id":"user-1","amount":1000.00,"currency":"NGN","payment_method":"card","reference":"ord-over"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", env.ErrorCode)

	// A different user is unaffected
	status, _ = postPayment(t, app,
		`{"user_id":"user-2","amount":1000.00,"currency":"NGN","payment_method":"card","reference":"ord-other"}`)
	assert.Equal(t, http.StatusCreated, status)
}

func TestEndToEnd_PendingPaymentSettlesOnReverify(t *testing.T) {
	app := newTestApp(t, defaultLimits())

	// 1021.02 NGN = 102102 minor units: initializes fine, never settles on its own
	status, env := postPayment(t, app,
		`{"user_id":"user-1","amount":1021.02,"currency":"NGN","payment_method":"card","reference":"ord-pending"}`)
	require.Equal(t, http.StatusCreated, status)
	txnRef, _ := env.Data["txn_ref"].(string)

	verifyURL := fmt.Sprintf("%s/api/v1/payments/%s/verify?user_id=user-1", app.server.URL, txnRef)

	resp, err := http.Get(verifyURL)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "processing", string(app.txRepo.StatusOf(txnRef)), "still pending on the provider side")

	require.True(t, app.sandbox.Settle(txnRef, domain.VerificationSuccess))

	resp, err = http.Get(verifyURL)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var verifyEnv envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&verifyEnv))
	assert.Equal(t, "success", verifyEnv.Data["status"])
	assert.Equal(t, "success", string(app.txRepo.StatusOf(txnRef)))
}

func TestEndToEnd_BreakerOpensAfterRepeatedOutages(t *testing.T) {
	app := newTestApp(t, defaultLimits())

	// 5035.03 NGN = 503503 minor units, the sandbox's outage amount. Each
	// failed request counts once against the breaker regardless of its retry
	// attempts, so five outages reach the threshold and the sixth request
	// fails fast.
	for i := 0; i < 5; i++ {
		status, env := postPayment(t, app, fmt.Sprintf(
			`{"user_id":"user-1","amount":5035.03,"currency":"NGN","payment_method":"card","reference":"ord-outage-%d"}`, i))
		require.Equal(t, http.StatusServiceUnavailable, status)
		require.Equal(t, "GATEWAY_UNAVAILABLE", env.ErrorCode, "breaker must stay closed through request %d", i+1)
	}

	status, env := postPayment(t, app,
		`{"user_id":"user-1","amount":1000.00,"currency":"NGN","payment_method":"card","reference":"ord-blocked"}`)
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, "CIRCUIT_BREAKER_OPEN", env.ErrorCode)

	// Cooldown lapses and the breaker closes again
	app.redis.FastForward(61 * time.Second)

	status, _ = postPayment(t, app,
		`{"user_id":"user-1","amount":1000.00,"currency":"NGN","payment_method":"card","reference":"ord-recovered"}`)
	assert.Equal(t, http.StatusCreated, status)
}
