package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lancebill-backend/internal/models"
)

func sentInvoice(total float64) *models.Invoice {
	now := time.Now()
	return &models.Invoice{
		Status:     models.InvoiceStatusSent,
		Subtotal:   total,
		Total:      total,
		AmountDue:  total,
		AmountPaid: 0,
		SentAt:     &now,
		DueDate:    now.Add(14 * 24 * time.Hour),
	}
}

func TestApplyPaymentPartial(t *testing.T) {
	inv := sentInvoice(275)

	require.NoError(t, ApplyPayment(inv, 150, time.Now()))

	assert.Equal(t, 150.0, inv.AmountPaid)
	assert.Equal(t, 125.0, inv.AmountDue)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
	assert.Nil(t, inv.PaidAt)
}

func TestApplyPaymentSettles(t *testing.T) {
	inv := sentInvoice(275)
	require.NoError(t, ApplyPayment(inv, 150, time.Now()))

	require.NoError(t, ApplyPayment(inv, 125, time.Now()))

	assert.Equal(t, 275.0, inv.AmountPaid)
	assert.Equal(t, 0.0, inv.AmountDue)
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
	assert.NotNil(t, inv.PaidAt)
}

func TestApplyPaymentRejectsOverpay(t *testing.T) {
	inv := sentInvoice(275)

	err := ApplyPayment(inv, 275.01, time.Now())
	assert.ErrorIs(t, err, ErrPaymentExceedsAmountDue)

	// Rejection leaves the invoice untouched.
	assert.Equal(t, 0.0, inv.AmountPaid)
	assert.Equal(t, 275.0, inv.AmountDue)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
}

func TestApplyPaymentRejectsNonPositive(t *testing.T) {
	inv := sentInvoice(100)
	assert.ErrorIs(t, ApplyPayment(inv, 0, time.Now()), ErrInvalidPaymentAmount)
	assert.ErrorIs(t, ApplyPayment(inv, -5, time.Now()), ErrInvalidPaymentAmount)
}

func TestApplyPaymentRejectsPaidInvoice(t *testing.T) {
	inv := sentInvoice(100)
	require.NoError(t, ApplyPayment(inv, 100, time.Now()))

	assert.ErrorIs(t, ApplyPayment(inv, 1, time.Now()), ErrInvoiceAlreadyPaid)
}

func TestApplyPaymentFloatNoise(t *testing.T) {
	// Three payments of 0.1 against 0.3: binary float residue must not
	// block exact settlement.
	inv := sentInvoice(0.3)

	require.NoError(t, ApplyPayment(inv, 0.1, time.Now()))
	require.NoError(t, ApplyPayment(inv, 0.1, time.Now()))
	require.NoError(t, ApplyPayment(inv, 0.1, time.Now()))

	assert.Equal(t, 0.0, inv.AmountDue)
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
}

func TestApplyPaymentZeroTotalInvoice(t *testing.T) {
	// A fully discounted invoice has nothing to pay.
	inv := sentInvoice(0)
	assert.ErrorIs(t, ApplyPayment(inv, 1, time.Now()), ErrPaymentExceedsAmountDue)
}

func TestRetotal(t *testing.T) {
	inv := sentInvoice(275)
	require.NoError(t, ApplyPayment(inv, 150, time.Now()))

	totals := Totals{Subtotal: 300, TaxAmount: 30, Total: 330}
	require.NoError(t, Retotal(inv, totals, 0, 10))

	assert.Equal(t, 330.0, inv.Total)
	assert.Equal(t, 150.0, inv.AmountPaid)
	assert.Equal(t, 180.0, inv.AmountDue)
}

func TestRetotalRejectsTotalBelowPaid(t *testing.T) {
	inv := sentInvoice(275)
	require.NoError(t, ApplyPayment(inv, 150, time.Now()))

	totals := Totals{Subtotal: 100, TaxAmount: 0, Total: 100}
	assert.ErrorIs(t, Retotal(inv, totals, 0, 0), ErrTotalBelowAmountPaid)
	assert.Equal(t, 275.0, inv.Total)
}

func TestRetotalRejectsPaidInvoice(t *testing.T) {
	inv := sentInvoice(100)
	require.NoError(t, ApplyPayment(inv, 100, time.Now()))

	totals := Totals{Subtotal: 200, TaxAmount: 0, Total: 200}
	assert.ErrorIs(t, Retotal(inv, totals, 0, 0), ErrInvoiceImmutable)
}

func TestRetotalToExactAmountPaid(t *testing.T) {
	// Lowering the total to exactly what was paid is legal and leaves a
	// zero balance, but does not flip status by itself.
	inv := sentInvoice(275)
	require.NoError(t, ApplyPayment(inv, 150, time.Now()))

	totals := Totals{Subtotal: 150, TaxAmount: 0, Total: 150}
	require.NoError(t, Retotal(inv, totals, 0, 0))

	assert.Equal(t, 0.0, inv.AmountDue)
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
}
