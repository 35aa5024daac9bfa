package handlers

import (
	"encoding/json"
	"net/http"

	"lancebill-backend/internal/models"
	"lancebill-backend/internal/services"
	"lancebill-backend/pkg/utils"
)

type InvoiceHandler struct {
	ledgerService *services.LedgerService
}

func NewInvoiceHandler(ledgerService *services.LedgerService) *InvoiceHandler {
	return &InvoiceHandler{ledgerService: ledgerService}
}

// Create handles POST /api/invoices
func (h *InvoiceHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CreateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.ledgerService.CreateInvoice(r.Context(), owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, inv)
}

// List handles GET /api/invoices
func (h *InvoiceHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	invoices, err := h.ledgerService.ListInvoices(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"invoices": invoices})
}

// Get handles GET /api/invoices/{id}
func (h *InvoiceHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	inv, err := h.ledgerService.GetInvoice(r.Context(), id, owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, inv)
}

// Update handles PUT /api/invoices/{id}
func (h *InvoiceHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req models.UpdateInvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.ledgerService.UpdateInvoice(r.Context(), id, owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, inv)
}

// Delete handles DELETE /api/invoices/{id}
func (h *InvoiceHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.ledgerService.DeleteInvoice(r.Context(), id, owner); err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "invoice deleted"})
}

// Transition handles POST /api/invoices/{id}/status
func (h *InvoiceHandler) Transition(w http.ResponseWriter, r *http.Request) {
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

	var req models.TransitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	inv, err := h.ledgerService.TransitionInvoice(r.Context(), id, owner, req.Status)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, inv)
}

// Preview handles POST /api/invoices/preview
func (h *InvoiceHandler) Preview(w http.ResponseWriter, r *http.Request) {
	var req models.PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.ledgerService.PreviewTotals(&req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, resp)
}

// MarkViewed handles POST /public/invoices/{id}/viewed. The route is
// unauthenticated; the response carries only the view state, never money
// fields.
func (h *InvoiceHandler) MarkViewed(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		utils.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	inv, err := h.ledgerService.MarkInvoiceViewed(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"status":    inv.Status,
		"viewed_at": inv.ViewedAt,
	})
}
