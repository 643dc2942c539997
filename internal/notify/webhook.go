package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"payment-orchestrator/config"
	"payment-orchestrator/internal/core/domain"

	"github.com/rs/zerolog"
)

// SignatureHeader carries the hex HMAC-SHA256 of the delivery body.
const SignatureHeader = "X-Webhook-Signature"

var defaultRetrySchedule = []time.Duration{
	5 * time.Second,
	30 * time.Second,
	2 * time.Minute,
}

// transactionEvent is the wire shape of a delivery.
type transactionEvent struct {
	Event       string              `json:"event"`
	Transaction *domain.Transaction `json:"transaction"`
	SentAt      time.Time           `json:"sent_at"`
}

// WebhookNotifier delivers signed transaction events to a configured
// endpoint. Enqueueing never blocks the payment pipeline: delivery happens on
// a background goroutine with its own retry schedule, and a delivery that
// exhausts all retries is logged and dropped.
type WebhookNotifier struct {
	url     string
	secret  string
	client  *http.Client
	retries []time.Duration
	log     zerolog.Logger
	wg      sync.WaitGroup
}

// NewWebhookNotifier creates a notifier. An empty URL disables delivery.
func NewWebhookNotifier(cfg config.NotifierConfig, log zerolog.Logger) *WebhookNotifier {
	return &WebhookNotifier{
		url:     cfg.URL,
		secret:  cfg.Secret,
		client:  &http.Client{Timeout: 10 * time.Second},
		retries: defaultRetrySchedule,
		log:     log.With().Str("component", "webhook_notifier").Logger(),
	}
}

// NotifyTransaction enqueues a delivery for a transaction event.
func (n *WebhookNotifier) NotifyTransaction(ctx context.Context, txn *domain.Transaction) error {
	if n.url == "" {
		return nil
	}

	snapshot := *txn
	event := transactionEvent{
		Event:       "transaction." + string(txn.Status),
		Transaction: &snapshot,
		SentAt:      time.Now().UTC(),
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling webhook event: %w", err)
	}

	n.wg.Add(1)
	go n.deliver(event.Event, snapshot.TxnRef, body)
	return nil
}

func (n *WebhookNotifier) deliver(event, txnRef string, body []byte) {
	defer n.wg.Done()

	delays := append([]time.Duration{0}, n.retries...)
	for attempt, delay := range delays {
		time.Sleep(delay)
		err := n.post(body)
		if err == nil {
			n.log.Debug().Str("event", event).Str("txn_ref", txnRef).
				Int("attempt", attempt+1).Msg("webhook delivered")
			return
		}
		n.log.Warn().Str("event", event).Str("txn_ref", txnRef).
			Int("attempt", attempt+1).Err(err).Msg("webhook delivery failed")
	}
	n.log.Error().Str("event", event).Str("txn_ref", txnRef).
		Msg("webhook delivery abandoned after all retries")
}

func (n *WebhookNotifier) post(body []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SignatureHeader, Sign(n.secret, body))

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}
	return nil
}

// Close waits for in-flight deliveries to finish. Called on shutdown.
func (n *WebhookNotifier) Close() {
	n.wg.Wait()
}

// Sign computes the hex HMAC-SHA256 signature of body under secret.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
