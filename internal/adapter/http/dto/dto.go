package dto

// PaymentRequest is the request body for initiating a payment. Amount is in
// major currency units.
type PaymentRequest struct {
	UserID        string            `json:"user_id" binding:"required,max=100"`
	Amount        float64           `json:"amount" binding:"required,gt=0"`
	Currency      string            `json:"currency" binding:"required,len=3"`
	PaymentMethod string            `json:"payment_method" binding:"required,max=50"`
	Gateway       string            `json:"gateway,omitempty" binding:"max=50"`
	Reference     string            `json:"reference,omitempty" binding:"max=100"`
	Description   string            `json:"description,omitempty" binding:"max=255"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// WebhookEvent is the minimal shape read from an inbound provider webhook.
type WebhookEvent struct {
	Event string `json:"event"`
	Data  struct {
		Reference string `json:"reference"`
		Status    string `json:"status"`
	} `json:"data"`
}
