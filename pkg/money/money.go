package money

import (
	"fmt"
	"math"
)

// exponents maps ISO currency codes to the number of decimal places of
// their minor unit (kobo, cents, pence).
var exponents = map[string]int{
	"NGN": 2,
	"USD": 2,
	"GBP": 2,
	"EUR": 2,
}

// Supported reports whether the currency has a known minor-unit exponent.
func Supported(currency string) bool {
	_, ok := exponents[currency]
	return ok
}

// ToMinor converts an amount in major units (e.g. 150.00 NGN) to an integer
// amount in minor units (15000 kobo), rounding half away from zero.
func ToMinor(currency string, major float64) (int64, error) {
	exp, ok := exponents[currency]
	if !ok {
		return 0, fmt.Errorf("unknown currency: %s", currency)
	}
	if math.IsNaN(major) || math.IsInf(major, 0) {
		return 0, fmt.Errorf("invalid amount: %v", major)
	}
	scaled := major * math.Pow10(exp)
	if scaled > math.MaxInt64 || scaled < math.MinInt64 {
		return 0, fmt.Errorf("amount out of range: %v", major)
	}
	return int64(math.Round(scaled)), nil
}

// ToMajor converts an integer minor-unit amount back to major units.
func ToMajor(currency string, minor int64) (float64, error) {
	exp, ok := exponents[currency]
	if !ok {
		return 0, fmt.Errorf("unknown currency: %s", currency)
	}
	return float64(minor) / math.Pow10(exp), nil
}

// Format renders a minor-unit amount as a human-readable major-unit string,
// e.g. Format("NGN", 15000) -> "150.00 NGN".
func Format(currency string, minor int64) string {
	exp, ok := exponents[currency]
	if !ok {
		return fmt.Sprintf("%d %s", minor, currency)
	}
	major := float64(minor) / math.Pow10(exp)
	return fmt.Sprintf("%.*f %s", exp, major, currency)
}
