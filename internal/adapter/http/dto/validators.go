package dto

import "strings"

// Normalize canonicalizes enum-like fields so that "ngn" and "NGN" mean the
// same thing downstream.
func (r *PaymentRequest) Normalize() {
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.PaymentMethod = strings.ToLower(strings.TrimSpace(r.PaymentMethod))
	r.Gateway = strings.ToLower(strings.TrimSpace(r.Gateway))
}
