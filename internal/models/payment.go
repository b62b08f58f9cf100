package models

import "time"

// Payment states.
const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
)

// Payment is a provider-specific payment attempt tied to one invoice. An
// invoice may accumulate several abandoned attempts; settling any one of them
// flips the invoice to paid.
type Payment struct {
	ID          int64     `json:"id"`
	InvoiceID   int64     `json:"invoice_id"`
	Provider    string    `json:"provider"`
	ExternalID  string    `json:"external_id"`
	AmountCents int64     `json:"amount_cents"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
