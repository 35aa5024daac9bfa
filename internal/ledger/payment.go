package ledger

import (
	"time"

	"lancebill-backend/internal/models"
)

// moneyEpsilon absorbs float64 representation noise when comparing amounts
// that are always rounded to 2 decimal places.
const moneyEpsilon = 1e-6

// ApplyPayment validates a payment against the invoice and mutates the
// balance fields. The caller is responsible for running this under a row
// lock and persisting invoice and payment record in one transaction.
//
// No implicit capping: an amount above the amount due is rejected outright
// and the invoice is left untouched.
func ApplyPayment(inv *models.Invoice, amount float64, now time.Time) error {
	if inv.Status == models.InvoiceStatusPaid {
		return ErrInvoiceAlreadyPaid
	}
	if amount <= 0 {
		return ErrInvalidPaymentAmount
	}
	if amount > inv.AmountDue+moneyEpsilon {
		return ErrPaymentExceedsAmountDue
	}

	inv.AmountPaid = Round2(inv.AmountPaid + amount)
	inv.AmountDue = Round2(inv.Total - inv.AmountPaid)

	if inv.AmountDue <= moneyEpsilon {
		inv.AmountDue = 0
		return Transition(inv, models.InvoiceStatusPaid, now)
	}
	return nil
}

// Retotal applies freshly computed totals to a non-paid invoice and
// recomputes the amount due against what has already been paid. An update
// that would push the balance negative is rejected.
func Retotal(inv *models.Invoice, totals Totals, discount, taxRatePercent float64) error {
	if inv.Status == models.InvoiceStatusPaid {
		return ErrInvoiceImmutable
	}
	if totals.Total < inv.AmountPaid-moneyEpsilon {
		return ErrTotalBelowAmountPaid
	}

	inv.Subtotal = totals.Subtotal
	inv.TaxAmount = totals.TaxAmount
	inv.Total = totals.Total
	inv.DiscountAmount = discount
	inv.TaxRatePercent = taxRatePercent
	inv.AmountDue = Round2(inv.Total - inv.AmountPaid)
	return nil
}
