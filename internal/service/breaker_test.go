package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"payment-orchestrator/config"
	"payment-orchestrator/internal/core/ports/mocks"
	"payment-orchestrator/pkg/apperror"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func newTestBreaker(t *testing.T) (*CircuitBreaker, *mocks.MockBreakerStore) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockBreakerStore(ctrl)
	b := NewCircuitBreaker(store, config.BreakerConfig{Threshold: 5, Cooldown: time.Minute}, zerolog.Nop())
	return b, store
}

func TestCircuitBreaker_AllowBelowThreshold(t *testing.T) {
	b, store := newTestBreaker(t)

	store.EXPECT().Failures(gomock.Any(), "paystack").Return(int64(4), nil)
	assert.NoError(t, b.Allow(context.Background(), "paystack"))
}

func TestCircuitBreaker_OpenAtThreshold(t *testing.T) {
	b, store := newTestBreaker(t)

	store.EXPECT().Failures(gomock.Any(), "paystack").Return(int64(5), nil)

	err := b.Allow(context.Background(), "paystack")
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "CIRCUIT_BREAKER_OPEN", appErr.Code)
}

func TestCircuitBreaker_StoreErrorFailsOpen(t *testing.T) {
	b, store := newTestBreaker(t)

	store.EXPECT().Failures(gomock.Any(), "paystack").Return(int64(0), errors.New("redis down"))
	assert.NoError(t, b.Allow(context.Background(), "paystack"))
}

func TestCircuitBreaker_RecordFailurePassesCooldown(t *testing.T) {
	b, store := newTestBreaker(t)

	store.EXPECT().RecordFailure(gomock.Any(), "paystack", time.Minute).Return(int64(1), nil)
	b.RecordFailure(context.Background(), "paystack")
}

func TestCircuitBreaker_RecordSuccessResets(t *testing.T) {
	b, store := newTestBreaker(t)

	store.EXPECT().Reset(gomock.Any(), "paystack").Return(nil)
	b.RecordSuccess(context.Background(), "paystack")
}
