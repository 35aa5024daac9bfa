package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lancebill-backend/internal/models"
)

func draftInvoice() *models.Invoice {
	return &models.Invoice{
		Status:    models.InvoiceStatusDraft,
		Total:     275,
		AmountDue: 275,
		DueDate:   time.Now().Add(14 * 24 * time.Hour),
	}
}

func TestTransitionDraftToSent(t *testing.T) {
	inv := draftInvoice()
	now := time.Now()

	require.NoError(t, Transition(inv, models.InvoiceStatusSent, now))
	assert.Equal(t, models.InvoiceStatusSent, inv.Status)
	require.NotNil(t, inv.SentAt)
	assert.Equal(t, now, *inv.SentAt)
}

func TestTransitionSentToViewed(t *testing.T) {
	inv := draftInvoice()
	now := time.Now()
	require.NoError(t, Transition(inv, models.InvoiceStatusSent, now))

	require.NoError(t, Transition(inv, models.InvoiceStatusViewed, now))
	assert.Equal(t, models.InvoiceStatusViewed, inv.Status)
	assert.NotNil(t, inv.ViewedAt)
}

func TestTransitionSkippingStates(t *testing.T) {
	// draft cannot jump straight to viewed.
	inv := draftInvoice()
	assert.ErrorIs(t, Transition(inv, models.InvoiceStatusViewed, time.Now()), ErrInvalidTransition)

	// sent cannot go back to sent.
	require.NoError(t, Transition(inv, models.InvoiceStatusSent, time.Now()))
	assert.ErrorIs(t, Transition(inv, models.InvoiceStatusSent, time.Now()), ErrInvalidTransition)
}

func TestTransitionToPaidFromAnyState(t *testing.T) {
	for _, from := range []models.InvoiceStatus{
		models.InvoiceStatusDraft,
		models.InvoiceStatusSent,
		models.InvoiceStatusViewed,
	} {
		inv := draftInvoice()
		inv.Status = from
		inv.AmountDue = 100

		require.NoError(t, Transition(inv, models.InvoiceStatusPaid, time.Now()))
		assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
		assert.NotNil(t, inv.PaidAt)
		assert.Equal(t, 0.0, inv.AmountDue)
	}
}

func TestTransitionPaidIsTerminal(t *testing.T) {
	inv := draftInvoice()
	require.NoError(t, Transition(inv, models.InvoiceStatusPaid, time.Now()))

	for _, target := range []models.InvoiceStatus{
		models.InvoiceStatusDraft,
		models.InvoiceStatusSent,
		models.InvoiceStatusViewed,
		models.InvoiceStatusPaid,
	} {
		assert.ErrorIs(t, Transition(inv, target, time.Now()), ErrInvoiceImmutable)
	}
}

func TestTransitionUnknownTarget(t *testing.T) {
	inv := draftInvoice()
	assert.ErrorIs(t, Transition(inv, models.InvoiceStatus("archived"), time.Now()), ErrInvalidTransition)
	// overdue is derived, never a transition target.
	assert.ErrorIs(t, Transition(inv, models.InvoiceStatusOverdue, time.Now()), ErrInvalidTransition)
}

func TestMarkViewed(t *testing.T) {
	inv := draftInvoice()

	// No view link exists for a draft.
	assert.ErrorIs(t, MarkViewed(inv, time.Now()), ErrInvalidTransition)

	require.NoError(t, Transition(inv, models.InvoiceStatusSent, time.Now()))
	require.NoError(t, MarkViewed(inv, time.Now()))
	assert.Equal(t, models.InvoiceStatusViewed, inv.Status)
	firstViewed := *inv.ViewedAt

	// Re-viewing is a no-op and keeps the first timestamp.
	require.NoError(t, MarkViewed(inv, time.Now().Add(time.Hour)))
	assert.Equal(t, firstViewed, *inv.ViewedAt)

	// Viewing after payment is still fine.
	require.NoError(t, Transition(inv, models.InvoiceStatusPaid, time.Now()))
	require.NoError(t, MarkViewed(inv, time.Now()))
	assert.Equal(t, models.InvoiceStatusPaid, inv.Status)
}

func TestDeletable(t *testing.T) {
	inv := draftInvoice()
	assert.True(t, Deletable(inv))

	require.NoError(t, Transition(inv, models.InvoiceStatusSent, time.Now()))
	assert.True(t, Deletable(inv))

	require.NoError(t, Transition(inv, models.InvoiceStatusPaid, time.Now()))
	assert.False(t, Deletable(inv))
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Now()

	inv := draftInvoice()
	inv.Status = models.InvoiceStatusSent
	inv.DueDate = now.Add(-24 * time.Hour)
	assert.Equal(t, models.InvoiceStatusOverdue, inv.EffectiveStatusAt(now))

	// Paid invoices are never overdue.
	inv.Status = models.InvoiceStatusPaid
	assert.Equal(t, models.InvoiceStatusPaid, inv.EffectiveStatusAt(now))

	inv.Status = models.InvoiceStatusSent
	inv.DueDate = now.Add(24 * time.Hour)
	assert.Equal(t, models.InvoiceStatusSent, inv.EffectiveStatusAt(now))
}
