// Package handlers contains the HTTP layer: request decoding, error-kind
// to status-code mapping, and response encoding. No business rules live
// here.
package handlers

import (
	"errors"
	"net/http"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/repositories"
	"lancebill-backend/internal/services"
	"lancebill-backend/pkg/utils"
)

// writeError maps service error kinds onto HTTP statuses. One mapping for
// the whole API so a given kind always reads the same on the wire.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ledger.ErrNotFound):
		utils.Error(w, http.StatusNotFound, "not found")

	case errors.Is(err, ledger.ErrQuotaExceeded):
		utils.Error(w, http.StatusForbidden, "plan quota exceeded")

	case errors.Is(err, ledger.ErrNoSubscription):
		utils.Error(w, http.StatusForbidden, "no active subscription, upgrade a plan to continue")

	case errors.Is(err, ledger.ErrContention):
		w.Header().Set("Retry-After", "1")
		utils.Error(w, http.StatusServiceUnavailable, "resource busy, retry")

	case errors.Is(err, ledger.ErrInvoiceImmutable),
		errors.Is(err, ledger.ErrInvoiceAlreadyPaid),
		errors.Is(err, ledger.ErrPaymentImmutable),
		errors.Is(err, ledger.ErrInvalidTransition),
		errors.Is(err, repositories.ErrClientHasInvoices):
		utils.Error(w, http.StatusConflict, err.Error())

	case errors.Is(err, repositories.ErrEmailTaken):
		utils.Error(w, http.StatusConflict, "email already registered")

	case errors.Is(err, services.ErrInvalidCredentials):
		utils.Error(w, http.StatusUnauthorized, err.Error())

	case errors.Is(err, ledger.ErrInvalidLineItem),
		errors.Is(err, ledger.ErrInvalidDiscount),
		errors.Is(err, ledger.ErrInvalidTaxRate),
		errors.Is(err, ledger.ErrInvalidPaymentAmount),
		errors.Is(err, ledger.ErrPaymentExceedsAmountDue),
		errors.Is(err, ledger.ErrTotalBelowAmountPaid),
		errors.Is(err, ledger.ErrUnknownPlan),
		errors.Is(err, ledger.ErrInvalidResource):
		utils.Error(w, http.StatusUnprocessableEntity, err.Error())

	case errors.Is(err, services.ErrValidation):
		utils.Error(w, http.StatusBadRequest, err.Error())

	default:
		utils.Error(w, http.StatusInternalServerError, "internal server error")
	}
}
