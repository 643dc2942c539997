package integration

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"

	"payment-orchestrator/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRaw is safe to call from worker goroutines: it reports errors instead
// of failing the test directly.
func postRaw(app *testApp, body string) (int, error) {
	resp, err := http.Post(app.server.URL+"/api/v1/payments", "application/json", bytes.NewBufferString(body))
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// Identical requests fired in parallel must collapse to a single ledger
// entry. Losers see either the committed replay (200) or an in-flight
// conflict (409), never a second charge.
func TestConcurrent_IdenticalRequestsSingleCharge(t *testing.T) {
	app := newTestApp(t, defaultLimits())

	const workers = 10
	body := `{"user_id":"user-1","amount":1500.00,"currency":"NGN","payment_method":"card","reference":"ord-race"}`

	statuses := make([]int, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			statuses[i], errs[i] = postRaw(app, body)
		}(i)
	}
	wg.Wait()

	created, replayed, conflicted := 0, 0, 0
	for i, s := range statuses {
		require.NoError(t, errs[i])
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusOK:
			replayed++
		case http.StatusConflict:
			conflicted++
		default:
			t.Fatalf("unexpected status %d", s)
		}
	}

	assert.Equal(t, 1, created, "exactly one request wins the reservation")
	assert.Equal(t, workers-1, replayed+conflicted)
	assert.Equal(t, int64(1), app.txRepo.CreateCount(), "single ledger entry")
}

// Concurrent distinct payments for one user must not jointly exceed the
// daily limit.
func TestConcurrent_DailyLimitNotOversubscribed(t *testing.T) {
	// 5000.00 daily allowance, 20 parallel payments of 1000.00 each
	app := newTestApp(t, config.LimitsConfig{Daily: 500000, PerTransaction: 5000000})

	const workers = 20
	statuses := make([]int, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			body := fmt.Sprintf(
				`{"user_id":"user-1","amount":1000.00,"currency":"NGN","payment_method":"card","reference":"ord-par-%d"}`, i)
			statuses[i], errs[i] = postRaw(app, body)
		}(i)
	}
	wg.Wait()

	created, limited := 0, 0
	for i, s := range statuses {
		require.NoError(t, errs[i])
		switch s {
		case http.StatusCreated:
			created++
		case http.StatusUnprocessableEntity:
			limited++
		default:
			t.Fatalf("unexpected status %d", s)
		}
	}

	require.Equal(t, 5, created, "allowance admits exactly five payments")
	assert.Equal(t, workers-5, limited)
	assert.Equal(t, int64(5), app.txRepo.CreateCount())
}
