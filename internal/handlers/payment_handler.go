package handlers

import (
	"encoding/json"
	"net/http"

	"lancebill-backend/internal/models"
	"lancebill-backend/internal/services"
	"lancebill-backend/pkg/utils"
)

type PaymentHandler struct {
	ledgerService *services.LedgerService
}

func NewPaymentHandler(ledgerService *services.LedgerService) *PaymentHandler {
	return &PaymentHandler{ledgerService: ledgerService}
}

// Apply handles POST /api/invoices/{id}/payments. The payment is recorded
// completed and the invoice balance moves atomically.
func (h *PaymentHandler) Apply(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	invoiceID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.ApplyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.ledgerService.ApplyPayment(r.Context(), invoiceID, owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, payment)
}

// CreatePending handles POST /api/invoices/{id}/payments/pending
func (h *PaymentHandler) CreatePending(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	invoiceID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.ApplyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.ledgerService.CreatePendingPayment(r.Context(), invoiceID, owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, payment)
}

// ListByInvoice handles GET /api/invoices/{id}/payments
func (h *PaymentHandler) ListByInvoice(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	invoiceID, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	payments, err := h.ledgerService.ListPayments(r.Context(), invoiceID, owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"payments": payments})
}

// Get handles GET /api/payments/{id}
func (h *PaymentHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := h.ledgerService.GetPayment(r.Context(), id, owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, payment)
}

// Update handles PUT /api/payments/{id} for pending payments.
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	var req models.UpdatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	payment, err := h.ledgerService.UpdatePendingPayment(r.Context(), id, owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, payment)
}

// Delete handles DELETE /api/payments/{id}
func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.ledgerService.DeletePayment(r.Context(), id, owner); err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "payment deleted"})
}

// Complete handles POST /api/payments/{id}/complete
func (h *PaymentHandler) Complete(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := h.ledgerService.CompletePayment(r.Context(), id, owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, payment)
}

// Fail handles POST /api/payments/{id}/fail
func (h *PaymentHandler) Fail(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	payment, err := h.ledgerService.FailPayment(r.Context(), id, owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, payment)
}
