package ledger

import (
	"math"

	"lancebill-backend/internal/models"
)

// Totals is the result of a totals calculation.
type Totals struct {
	Subtotal  float64
	TaxAmount float64
	Total     float64
}

// Round2 rounds to 2 decimal places (currency minor units).
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// ComputeTotals turns line items, a discount, and a tax rate percentage into
// subtotal/tax/total. Each item amount and the running subtotal are rounded
// to 2 decimal places after the multiplication, not after summation, so the
// result is reproducible regardless of item order or grouping.
//
// Pure; also used standalone for previews before anything is persisted.
func ComputeTotals(items []models.LineItemInput, discount, taxRatePercent float64) (Totals, error) {
	if len(items) == 0 {
		return Totals{}, ErrInvalidLineItem
	}
	if taxRatePercent < 0 || taxRatePercent > 100 {
		return Totals{}, ErrInvalidTaxRate
	}
	if discount < 0 {
		return Totals{}, ErrInvalidDiscount
	}

	var subtotal float64
	for _, item := range items {
		if item.Quantity <= 0 || item.Rate < 0 {
			return Totals{}, ErrInvalidLineItem
		}
		subtotal = Round2(subtotal + Round2(item.Quantity*item.Rate))
	}

	if discount > subtotal {
		return Totals{}, ErrInvalidDiscount
	}

	tax := Round2((subtotal - discount) * taxRatePercent / 100)
	total := Round2(subtotal - discount + tax)

	return Totals{Subtotal: subtotal, TaxAmount: tax, Total: total}, nil
}

// ItemAmount is the derived amount for a single line item.
func ItemAmount(item models.LineItemInput) float64 {
	return Round2(item.Quantity * item.Rate)
}
