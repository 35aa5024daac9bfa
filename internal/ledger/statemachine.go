package ledger

import (
	"time"

	"lancebill-backend/internal/models"
)

// Transition drives the stored status state machine:
//
//	draft -> sent -> viewed -> paid
//
// paid is terminal. Every path that flips status, including the implicit
// flip when a payment zeroes the amount due, goes through this function so
// there is exactly one set of legal-transition rules.
func Transition(inv *models.Invoice, target models.InvoiceStatus, now time.Time) error {
	if inv.Status == models.InvoiceStatusPaid {
		return ErrInvoiceImmutable
	}

	switch target {
	case models.InvoiceStatusSent:
		if inv.Status != models.InvoiceStatusDraft {
			return ErrInvalidTransition
		}
		inv.Status = models.InvoiceStatusSent
		inv.SentAt = &now
		return nil

	case models.InvoiceStatusViewed:
		if inv.Status != models.InvoiceStatusSent {
			return ErrInvalidTransition
		}
		inv.Status = models.InvoiceStatusViewed
		inv.ViewedAt = &now
		return nil

	case models.InvoiceStatusPaid:
		// Reachable from any non-paid status. Forces the balance closed;
		// payment-driven callers have already recomputed amount_paid.
		inv.Status = models.InvoiceStatusPaid
		inv.PaidAt = &now
		inv.AmountDue = 0
		return nil

	default:
		return ErrInvalidTransition
	}
}

// MarkViewed records the client-facing view event. The first view from sent
// stamps viewed_at; re-viewing is a no-op rather than an error so a public
// link stays safe to click any number of times, including after payment.
// Viewing a draft is rejected: no view link exists before sending.
func MarkViewed(inv *models.Invoice, now time.Time) error {
	switch inv.Status {
	case models.InvoiceStatusSent:
		return Transition(inv, models.InvoiceStatusViewed, now)
	case models.InvoiceStatusViewed, models.InvoiceStatusPaid:
		return nil
	default:
		return ErrInvalidTransition
	}
}

// Deletable reports whether the state machine permits destroying the
// invoice. Only paid invoices are protected.
func Deletable(inv *models.Invoice) bool {
	return inv.Status != models.InvoiceStatusPaid
}
