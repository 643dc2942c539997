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

func newTestLimits(t *testing.T) (*LimitValidator, *mocks.MockLimitStore) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockLimitStore(ctrl)
	l := NewLimitValidator(store, config.LimitsConfig{Daily: 10000000, PerTransaction: 5000000}, zerolog.Nop())
	return l, store
}

func TestLimitValidator_WithinLimits(t *testing.T) {
	l, store := newTestLimits(t)

	store.EXPECT().
		ConsumeDaily(gomock.Any(), "user-1", "2026-08-30", int64(150000), int64(10000000)).
		Return(int64(150000), true, nil)

	assert.NoError(t, l.Consume(context.Background(), "user-1", "2026-08-30", 150000))
}

func TestLimitValidator_PerTransactionCeiling(t *testing.T) {
	l, _ := newTestLimits(t)

	err := l.Consume(context.Background(), "user-1", "2026-08-30", 5000001)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "TXN_LIMIT_EXCEEDED", appErr.Code)
}

func TestLimitValidator_DailyLimitExceeded(t *testing.T) {
	l, store := newTestLimits(t)

	store.EXPECT().
		ConsumeDaily(gomock.Any(), "user-1", "2026-08-30", int64(150000), int64(10000000)).
		Return(int64(9900000), false, nil)

	err := l.Consume(context.Background(), "user-1", "2026-08-30", 150000)
	require.Error(t, err)

	var appErr *apperror.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "DAILY_LIMIT_EXCEEDED", appErr.Code)
	assert.Contains(t, appErr.Message, "9900000")
}

func TestDay_UTCBucket(t *testing.T) {
	lagos := time.FixedZone("WAT", 3600)
	late := time.Date(2026, 8, 31, 0, 30, 0, 0, lagos) // 2026-08-30 23:30 UTC
	assert.Equal(t, "2026-08-30", Day(late))
}
