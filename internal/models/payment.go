package models

import "time"

// PaymentStatus is the lifecycle state of a payment record.
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
)

// Payment references exactly one invoice. A completed payment is immutable;
// the sum of completed payments for an invoice equals its amount_paid.
type Payment struct {
	ID          int           `json:"id"`
	InvoiceID   int           `json:"invoice_id"`
	Amount      float64       `json:"amount"`
	Method      string        `json:"method"`
	Status      PaymentStatus `json:"status"`
	PaymentDate time.Time     `json:"payment_date"`
	Notes       string        `json:"notes"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

// ApplyPaymentRequest represents the request to apply a payment to an invoice
type ApplyPaymentRequest struct {
	Amount      float64    `json:"amount"`
	Method      string     `json:"method"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	Notes       string     `json:"notes"`
}

// UpdatePaymentRequest patches a payment that is still pending.
type UpdatePaymentRequest struct {
	Amount      *float64   `json:"amount,omitempty"`
	Method      *string    `json:"method,omitempty"`
	PaymentDate *time.Time `json:"payment_date,omitempty"`
	Notes       *string    `json:"notes,omitempty"`
}
