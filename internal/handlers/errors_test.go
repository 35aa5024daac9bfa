package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/repositories"
	"lancebill-backend/internal/services"
)

func TestWriteErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"not found", ledger.ErrNotFound, http.StatusNotFound},
		{"quota exceeded", ledger.ErrQuotaExceeded, http.StatusForbidden},
		{"no subscription", ledger.ErrNoSubscription, http.StatusForbidden},
		{"contention", ledger.ErrContention, http.StatusServiceUnavailable},
		{"invoice immutable", ledger.ErrInvoiceImmutable, http.StatusConflict},
		{"already paid", ledger.ErrInvoiceAlreadyPaid, http.StatusConflict},
		{"payment immutable", ledger.ErrPaymentImmutable, http.StatusConflict},
		{"invalid transition", ledger.ErrInvalidTransition, http.StatusConflict},
		{"client has invoices", repositories.ErrClientHasInvoices, http.StatusConflict},
		{"email taken", repositories.ErrEmailTaken, http.StatusConflict},
		{"invalid credentials", services.ErrInvalidCredentials, http.StatusUnauthorized},
		{"invalid line item", ledger.ErrInvalidLineItem, http.StatusUnprocessableEntity},
		{"invalid discount", ledger.ErrInvalidDiscount, http.StatusUnprocessableEntity},
		{"invalid tax rate", ledger.ErrInvalidTaxRate, http.StatusUnprocessableEntity},
		{"invalid payment amount", ledger.ErrInvalidPaymentAmount, http.StatusUnprocessableEntity},
		{"payment exceeds due", ledger.ErrPaymentExceedsAmountDue, http.StatusUnprocessableEntity},
		{"total below paid", ledger.ErrTotalBelowAmountPaid, http.StatusUnprocessableEntity},
		{"unknown plan", ledger.ErrUnknownPlan, http.StatusUnprocessableEntity},
		{"invalid resource", ledger.ErrInvalidResource, http.StatusUnprocessableEntity},
		{"validation", fmt.Errorf("%w: name is required", services.ErrValidation), http.StatusBadRequest},
		{"unexpected", errors.New("driver exploded"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

// Subscription error kinds are user-actionable plan conditions; they must
// never surface as a 5xx.
func TestWriteErrorSubscriptionKindsNeverServerError(t *testing.T) {
	for _, err := range []error{ledger.ErrNoSubscription, ledger.ErrQuotaExceeded} {
		rec := httptest.NewRecorder()
		writeError(rec, err)
		assert.Less(t, rec.Code, http.StatusInternalServerError)
	}
}

func TestWriteErrorContentionSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, ledger.ErrContention)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}
