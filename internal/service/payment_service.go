package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"

	"payment-orchestrator/internal/core/domain"
	"payment-orchestrator/internal/core/ports"
	"payment-orchestrator/pkg/apperror"
	"payment-orchestrator/pkg/money"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// reservationSentinel marks an idempotency key as claimed by an in-flight
// pipeline, before the real response is known.
var reservationSentinel = []byte("__processing__")

// PaymentService sequences the payment pipeline: validation, idempotency,
// limits, ledger, circuit breaker, gateway call with retry, and rollback of
// completed steps when a later one fails.
type PaymentService struct {
	txns     ports.TransactionRepository
	idem     ports.IdempotencyStore
	limits   *LimitValidator
	breaker  *CircuitBreaker
	retry    *RetryPolicy
	gateways ports.GatewayFactory
	notifier ports.Notifier
	idemTTL  time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

// NewPaymentService wires the orchestrator. notifier may be nil.
func NewPaymentService(
	txns ports.TransactionRepository,
	idem ports.IdempotencyStore,
	limits *LimitValidator,
	breaker *CircuitBreaker,
	retry *RetryPolicy,
	gateways ports.GatewayFactory,
	notifier ports.Notifier,
	idemTTL time.Duration,
	log zerolog.Logger,
) *PaymentService {
	return &PaymentService{
		txns:     txns,
		idem:     idem,
		limits:   limits,
		breaker:  breaker,
		retry:    retry,
		gateways: gateways,
		notifier: notifier,
		idemTTL:  idemTTL,
		log:      log,
		now:      time.Now,
	}
}

func validatePaymentRequest(req ports.PaymentRequest) error {
	if req.UserID == "" {
		return apperror.ErrMissingField("userId")
	}
	if req.Amount <= 0 {
		return apperror.ErrInvalidAmount()
	}
	if !req.Currency.Valid() || !money.Supported(string(req.Currency)) {
		return apperror.ErrUnknownCurrency(string(req.Currency))
	}
	if !req.PaymentMethod.Valid() {
		return apperror.ErrUnknownPaymentMethod(string(req.PaymentMethod))
	}
	return nil
}

// ProcessPayment executes the pipeline for one payment request. A duplicate
// request returns the original response via a ReplayError; the HTTP layer
// unwraps it into a normal success reply.
func (s *PaymentService) ProcessPayment(ctx context.Context, req ports.PaymentRequest) (*ports.PaymentResponse, error) {
	if err := validatePaymentRequest(req); err != nil {
		return nil, err
	}

	amount, err := money.ToMinor(string(req.Currency), req.Amount)
	if err != nil || amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	key := req.IdempotencyKey
	if key == "" {
		seed := req.Reference
		if seed == "" {
			// No caller reference means no duplicate identity to protect;
			// a timestamp seed makes the derived key unique per request.
			seed = s.now().UTC().Format(time.RFC3339Nano)
		}
		key = domain.DeriveIdempotencyKey(req.UserID, amount, req.Currency, req.PaymentMethod, seed)
	}
	log := s.log.With().Str("user_id", req.UserID).Str("idempotency_key", key).Logger()

	cached, err := s.idem.Get(ctx, key)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if cached != nil {
		if bytes.Equal(cached, reservationSentinel) {
			return nil, apperror.ErrRequestInProgress()
		}
		log.Info().Msg("duplicate request, replaying cached response")
		return nil, apperror.ErrIdempotentReplay(cached)
	}

	claimed, err := s.idem.PutIfAbsent(ctx, key, reservationSentinel, s.idemTTL)
	if err != nil {
		return nil, apperror.InternalError(err)
	}
	if !claimed {
		// Lost the reservation race. The winner either committed a response
		// already or is still in flight.
		cached, err := s.idem.Get(ctx, key)
		if err == nil && cached != nil && !bytes.Equal(cached, reservationSentinel) {
			return nil, apperror.ErrIdempotentReplay(cached)
		}
		return nil, apperror.ErrRequestInProgress()
	}

	comp := &compensationStack{}
	comp.push("release idempotency reservation", func(ctx context.Context) error {
		return s.idem.Delete(ctx, key)
	})
	fail := func(cause error) (*ports.PaymentResponse, error) {
		comp.run(context.WithoutCancel(ctx), log)
		return nil, cause
	}

	day := Day(s.now())
	if err := s.limits.Consume(ctx, req.UserID, day, amount); err != nil {
		return fail(err)
	}
	comp.push("release daily limit", func(ctx context.Context) error {
		s.limits.Release(ctx, req.UserID, day, amount)
		return nil
	})

	adapter, err := s.gateways.Resolve(req.Gateway)
	if err != nil {
		return fail(err)
	}

	txn := &domain.Transaction{
		ID:            uuid.New(),
		UserID:        req.UserID,
		TxnRef:        domain.NewTxnRef(req.PaymentMethod),
		Type:          domain.TypeDeposit,
		Amount:        amount,
		Currency:      req.Currency,
		Status:        domain.StatusPending,
		Gateway:       adapter.Name(),
		PaymentMethod: req.PaymentMethod,
		Description:   req.Description,
		Metadata:      req.Metadata,
		CreatedAt:     s.now().UTC(),
	}
	if err := s.txns.Create(ctx, txn); err != nil {
		if errors.Is(err, ports.ErrDuplicateRef) {
			return fail(apperror.ErrDuplicateTransaction(txn.TxnRef))
		}
		return fail(apperror.ErrDatabaseError(err))
	}
	log = log.With().Str("txn_ref", txn.TxnRef).Str("gateway", txn.Gateway).Logger()
	comp.push("cancel ledger entry", func(ctx context.Context) error {
		now := s.now().UTC()
		err := s.txns.UpdateStatus(ctx, txn.ID, domain.StatusPending, domain.StatusCancelled,
			&ports.TransactionUpdate{CancelledAt: &now})
		if errors.Is(err, ports.ErrStaleStatus) {
			// Entry was already finalized, nothing to undo.
			return nil
		}
		return err
	})

	if err := s.breaker.Allow(ctx, txn.Gateway); err != nil {
		return fail(err)
	}

	initReq := ports.InitRequest{
		UserID:   req.UserID,
		TxnRef:   txn.TxnRef,
		Amount:   amount,
		Currency: req.Currency,
		Method:   req.PaymentMethod,
		Email:    req.Metadata["email"],
		Metadata: req.Metadata,
	}
	var gwResp *domain.GatewayResponse
	callErr := s.retry.Do(ctx, "initialize_payment", func(ctx context.Context) error {
		resp, err := adapter.InitializePayment(ctx, initReq)
		if err != nil {
			return err
		}
		gwResp = resp
		return nil
	})
	if callErr != nil {
		// One failed pipeline advances the breaker by one, no matter how many
		// retry attempts it burned. Rejections are the payer's problem, not
		// the gateway's, and do not count.
		if apperror.IsRetryable(callErr) {
			s.breaker.RecordFailure(ctx, txn.Gateway)
		}
		log.Warn().Err(callErr).Msg("gateway initialization failed")
		s.markFailed(context.WithoutCancel(ctx), txn, callErr, log)
		return fail(callErr)
	}
	s.breaker.RecordSuccess(ctx, txn.Gateway)

	comp.push("refund gateway charge", func(ctx context.Context) error {
		_, err := adapter.RefundPayment(ctx, ports.RefundRequest{
			TxnRef:     txn.TxnRef,
			GatewayRef: gwResp.GatewayRef,
			Currency:   txn.Currency,
			Reason:     "pipeline rollback",
		})
		return err
	})

	update := &ports.TransactionUpdate{Metadata: map[string]string{}}
	if gwResp.GatewayRef != "" {
		update.GatewayRef = &gwResp.GatewayRef
	}
	if gwResp.VirtualAccount != nil {
		update.Metadata["account_number"] = gwResp.VirtualAccount.AccountNumber
		update.Metadata["account_name"] = gwResp.VirtualAccount.AccountName
		update.Metadata["bank_name"] = gwResp.VirtualAccount.BankName
		if gwResp.VirtualAccount.ExpiresAt != "" {
			update.Metadata["account_expires_at"] = gwResp.VirtualAccount.ExpiresAt
		}
	}
	if gwResp.RedirectURL != "" {
		update.Metadata["redirect_url"] = gwResp.RedirectURL
	}
	if len(update.Metadata) == 0 {
		update.Metadata = nil
	}
	if err := s.txns.UpdateStatus(ctx, txn.ID, domain.StatusPending, domain.StatusProcessing, update); err != nil {
		return fail(apperror.ErrDatabaseError(err))
	}
	txn.Status = domain.StatusProcessing
	txn.GatewayRef = gwResp.GatewayRef

	resp := &ports.PaymentResponse{
		Success:       true,
		TransactionID: txn.ID.String(),
		TxnRef:        txn.TxnRef,
		GatewayRef:    txn.GatewayRef,
		Amount:        amount,
		Currency:      txn.Currency,
		PaymentMethod: txn.PaymentMethod,
		Gateway:       txn.Gateway,
		Status:        txn.Status,
		NextSteps:     nextStepsFrom(gwResp),
	}

	if body, err := json.Marshal(resp); err == nil {
		if err := s.idem.Put(ctx, key, body, s.idemTTL); err != nil {
			log.Warn().Err(err).Msg("committing idempotency record failed")
			// Drop the reservation so a duplicate re-executes instead of
			// seeing an in-flight conflict until the TTL lapses.
			if derr := s.idem.Delete(context.WithoutCancel(ctx), key); derr != nil {
				log.Warn().Err(derr).Msg("releasing idempotency reservation failed")
			}
		}
	}

	log.Info().Int64("amount", amount).Str("status", string(txn.Status)).
		Msg("payment initialized")
	return resp, nil
}

// VerifyPayment reconciles a ledger entry against gateway truth. Terminal
// entries are returned as-is without a provider call, so repeated
// verification is idempotent.
func (s *PaymentService) VerifyPayment(ctx context.Context, userID, reference string) (*ports.VerifyResponse, error) {
	if userID == "" {
		return nil, apperror.ErrMissingField("userId")
	}
	if reference == "" {
		return nil, apperror.ErrMissingField("reference")
	}

	txn, err := s.txns.GetByRef(ctx, userID, reference)
	if err != nil {
		return nil, apperror.ErrDatabaseError(err)
	}
	if txn == nil {
		return nil, apperror.ErrTransactionNotFound(reference)
	}
	if txn.IsTerminal() {
		return verifyResponseFrom(txn), nil
	}

	adapter, err := s.gateways.Resolve(txn.Gateway)
	if err != nil {
		return nil, err
	}
	result, err := adapter.VerifyPayment(ctx, txn.TxnRef)
	if err != nil {
		return nil, err
	}

	update := &ports.TransactionUpdate{}
	var target domain.TransactionStatus
	switch result.Status {
	case domain.VerificationSuccess:
		target = domain.StatusSuccess
		now := s.now().UTC()
		update.CompletedAt = &now
	case domain.VerificationFailed:
		target = domain.StatusFailed
		if result.FailureReason != "" {
			update.FailureReason = &result.FailureReason
		}
	case domain.VerificationExpired:
		target = domain.StatusExpired
	default:
		// Still pending at the provider, nothing to reconcile yet.
		return verifyResponseFrom(txn), nil
	}
	if result.GatewayRef != "" && result.GatewayRef != txn.GatewayRef {
		update.GatewayRef = &result.GatewayRef
	}

	if err := s.txns.UpdateStatus(ctx, txn.ID, txn.Status, target, update); err != nil {
		if errors.Is(err, ports.ErrStaleStatus) {
			// Another reconciler finalized first; report its outcome.
			fresh, ferr := s.txns.GetByRef(ctx, userID, reference)
			if ferr == nil && fresh != nil {
				return verifyResponseFrom(fresh), nil
			}
			return nil, apperror.ErrStateConflict(reference)
		}
		return nil, apperror.ErrDatabaseError(err)
	}

	txn.Status = target
	if update.GatewayRef != nil {
		txn.GatewayRef = *update.GatewayRef
	}
	if update.FailureReason != nil {
		txn.FailureReason = *update.FailureReason
	}
	txn.CompletedAt = update.CompletedAt

	s.log.Info().Str("txn_ref", txn.TxnRef).Str("status", string(target)).
		Msg("transaction reconciled")
	s.notify(ctx, txn)
	return verifyResponseFrom(txn), nil
}

// markFailed finalizes the ledger entry as failed with the cause. Best
// effort: a stale status means another writer finalized first.
func (s *PaymentService) markFailed(ctx context.Context, txn *domain.Transaction, cause error, log zerolog.Logger) {
	reason := cause.Error()
	err := s.txns.UpdateStatus(ctx, txn.ID, txn.Status, domain.StatusFailed,
		&ports.TransactionUpdate{FailureReason: &reason})
	if err != nil && !errors.Is(err, ports.ErrStaleStatus) {
		log.Error().Err(err).Msg("marking transaction failed did not persist")
		return
	}
	txn.Status = domain.StatusFailed
	txn.FailureReason = reason
	s.notify(ctx, txn)
}

// notify informs the notifier of a terminal state. Delivery is best-effort
// and never fails the pipeline; the notifier queues retries internally.
func (s *PaymentService) notify(ctx context.Context, txn *domain.Transaction) {
	if s.notifier == nil || !txn.IsTerminal() {
		return
	}
	if err := s.notifier.NotifyTransaction(ctx, txn); err != nil {
		s.log.Warn().Str("txn_ref", txn.TxnRef).Err(err).Msg("transaction notification failed")
	}
}

func nextStepsFrom(gwResp *domain.GatewayResponse) ports.NextSteps {
	switch {
	case gwResp.VirtualAccount != nil:
		return ports.NextSteps{Action: ports.NextStepTransfer, VirtualAccount: gwResp.VirtualAccount}
	case gwResp.RedirectURL != "":
		return ports.NextSteps{Action: ports.NextStepRedirect, RedirectURL: gwResp.RedirectURL}
	default:
		return ports.NextSteps{Action: ports.NextStepPending}
	}
}

func verifyResponseFrom(txn *domain.Transaction) *ports.VerifyResponse {
	return &ports.VerifyResponse{
		TxnRef:        txn.TxnRef,
		Status:        txn.Status,
		GatewayRef:    txn.GatewayRef,
		Amount:        txn.Amount,
		Currency:      txn.Currency,
		FailureReason: txn.FailureReason,
	}
}
