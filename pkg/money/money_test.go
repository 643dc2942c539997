package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMinor(t *testing.T) {
	tests := []struct {
		name     string
		currency string
		major    float64
		expected int64
	}{
		{"whole naira", "NGN", 150.00, 15000},
		{"fractional kobo", "NGN", 0.01, 1},
		{"usd cents", "USD", 19.99, 1999},
		{"rounds down below half", "GBP", 10.004, 1000},
		{"rounds up above half", "GBP", 10.006, 1001},
		{"zero", "EUR", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToMinor(tt.currency, tt.major)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestToMinor_UnknownCurrency(t *testing.T) {
	_, err := ToMinor("XAU", 1.0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown currency")
}

func TestToMajor_RoundTrip(t *testing.T) {
	minor, err := ToMinor("NGN", 150.00)
	require.NoError(t, err)

	major, err := ToMajor("NGN", minor)
	require.NoError(t, err)
	assert.InDelta(t, 150.00, major, 0.0001)
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "150.00 NGN", Format("NGN", 15000))
	assert.Equal(t, "0.01 USD", Format("USD", 1))
	assert.Equal(t, "42 XAU", Format("XAU", 42))
}

func TestSupported(t *testing.T) {
	assert.True(t, Supported("NGN"))
	assert.True(t, Supported("USD"))
	assert.False(t, Supported("VND"))
}
