package domain

// VirtualAccount describes a provider-issued dedicated account the payer
// transfers into.
type VirtualAccount struct {
	AccountNumber string `json:"account_number"`
	AccountName   string `json:"account_name"`
	BankName      string `json:"bank_name"`
	ExpiresAt     string `json:"expires_at,omitempty"`
}

// GatewayResponse is the normalized result of an adapter call, regardless of
// provider-specific field names on the wire.
type GatewayResponse struct {
	Success        bool                   `json:"success"`
	GatewayRef     string                 `json:"gateway_ref,omitempty"`
	RedirectURL    string                 `json:"redirect_url,omitempty"`
	VirtualAccount *VirtualAccount        `json:"virtual_account,omitempty"`
	Message        string                 `json:"message,omitempty"`
	Raw            map[string]interface{} `json:"-"` // Raw provider payload, kept for audit
}

// VerificationStatus is the settlement outcome reported by a gateway.
type VerificationStatus string

const (
	VerificationSuccess VerificationStatus = "success"
	VerificationFailed  VerificationStatus = "failed"
	VerificationExpired VerificationStatus = "expired"
	VerificationPending VerificationStatus = "pending"
)

// VerificationResult is the normalized outcome of a verify call.
type VerificationResult struct {
	Status        VerificationStatus     `json:"status"`
	GatewayRef    string                 `json:"gateway_ref,omitempty"`
	Amount        int64                  `json:"amount,omitempty"` // Minor units as settled
	FailureReason string                 `json:"failure_reason,omitempty"`
	Raw           map[string]interface{} `json:"-"`
}

// Balance is a provider-side account balance snapshot.
type Balance struct {
	AccountNumber string   `json:"account_number"`
	Available     int64    `json:"available"` // Minor units
	Ledger        int64    `json:"ledger"`    // Minor units
	Currency      Currency `json:"currency"`
}
