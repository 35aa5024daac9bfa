package models

import "time"

// InvoiceStatus is the stored lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceStatusDraft  InvoiceStatus = "draft"
	InvoiceStatusSent   InvoiceStatus = "sent"
	InvoiceStatusViewed InvoiceStatus = "viewed"
	InvoiceStatusPaid   InvoiceStatus = "paid"

	// InvoiceStatusOverdue is a read-time display state derived from the
	// due date. It is never written to the status column.
	InvoiceStatusOverdue InvoiceStatus = "overdue"
)

// Invoice represents a generated invoice with its money fields.
// Invariants: total == subtotal - discount_amount + tax_amount and
// amount_due == total - amount_paid, both to 2 decimal places.
type Invoice struct {
	ID             int           `json:"id"`
	OwnerID        int           `json:"owner_id"`
	ClientID       int           `json:"client_id"`
	InvoiceNumber  string        `json:"invoice_number"`
	IssueDate      time.Time     `json:"issue_date"`
	DueDate        time.Time     `json:"due_date"`
	Currency       string        `json:"currency"`
	TaxRatePercent float64       `json:"tax_rate_percent"`
	DiscountAmount float64       `json:"discount_amount"`
	Subtotal       float64       `json:"subtotal"`
	TaxAmount      float64       `json:"tax_amount"`
	Total          float64       `json:"total"`
	AmountPaid     float64       `json:"amount_paid"`
	AmountDue      float64       `json:"amount_due"`
	Status         InvoiceStatus `json:"status"`
	Notes          string        `json:"notes"`
	SentAt         *time.Time    `json:"sent_at,omitempty"`
	ViewedAt       *time.Time    `json:"viewed_at,omitempty"`
	PaidAt         *time.Time    `json:"paid_at,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`

	Items []InvoiceLineItem `json:"items,omitempty"`

	// EffectiveStatus adds the derived overdue state for read models.
	EffectiveStatus InvoiceStatus `json:"effective_status,omitempty"`
}

// EffectiveStatusAt returns the display status for the given instant:
// a non-paid invoice past its due date reads as overdue.
func (i *Invoice) EffectiveStatusAt(now time.Time) InvoiceStatus {
	if i.Status != InvoiceStatusPaid && now.After(i.DueDate) {
		return InvoiceStatusOverdue
	}
	return i.Status
}

// InvoiceLineItem represents one line on an invoice.
// amount = quantity * rate, rounded to 2 decimal places.
type InvoiceLineItem struct {
	ID          int     `json:"id"`
	InvoiceID   int     `json:"invoice_id"`
	Position    int     `json:"position"`
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
	Amount      float64 `json:"amount"`
}

// LineItemInput is a line item as submitted by the caller.
type LineItemInput struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Rate        float64 `json:"rate"`
}

// CreateInvoiceRequest represents the request to create an invoice
type CreateInvoiceRequest struct {
	ClientID       int             `json:"client_id"`
	IssueDate      time.Time       `json:"issue_date"`
	DueDate        time.Time       `json:"due_date"`
	Currency       string          `json:"currency"`
	TaxRatePercent float64         `json:"tax_rate_percent"`
	DiscountAmount float64         `json:"discount_amount"`
	Notes          string          `json:"notes"`
	Items          []LineItemInput `json:"items"`
}

// UpdateInvoiceRequest is a patch for a non-paid invoice. Nil fields are
// left unchanged; supplying Items replaces the whole line-item set.
type UpdateInvoiceRequest struct {
	ClientID       *int            `json:"client_id,omitempty"`
	IssueDate      *time.Time      `json:"issue_date,omitempty"`
	DueDate        *time.Time      `json:"due_date,omitempty"`
	Currency       *string         `json:"currency,omitempty"`
	TaxRatePercent *float64        `json:"tax_rate_percent,omitempty"`
	DiscountAmount *float64        `json:"discount_amount,omitempty"`
	Notes          *string         `json:"notes,omitempty"`
	Items          []LineItemInput `json:"items,omitempty"`
}

// TransitionRequest asks for a stored status change.
type TransitionRequest struct {
	Status InvoiceStatus `json:"status"`
}

// PreviewRequest computes totals without persisting anything.
type PreviewRequest struct {
	TaxRatePercent float64         `json:"tax_rate_percent"`
	DiscountAmount float64         `json:"discount_amount"`
	Items          []LineItemInput `json:"items"`
}

// PreviewResponse is the result of a totals preview.
type PreviewResponse struct {
	Subtotal  float64 `json:"subtotal"`
	TaxAmount float64 `json:"tax_amount"`
	Total     float64 `json:"total"`
}

// DashboardSummary aggregates committed invoice rows for one owner.
type DashboardSummary struct {
	TotalInvoices    int     `json:"total_invoices"`
	DraftCount       int     `json:"draft_count"`
	SentCount        int     `json:"sent_count"`
	ViewedCount      int     `json:"viewed_count"`
	PaidCount        int     `json:"paid_count"`
	OverdueCount     int     `json:"overdue_count"`
	TotalOutstanding float64 `json:"total_outstanding"`
	TotalCollected   float64 `json:"total_collected"`
}
