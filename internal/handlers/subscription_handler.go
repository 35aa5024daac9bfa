package handlers

import (
	"encoding/json"
	"net/http"

	"lancebill-backend/internal/ledger"
	"lancebill-backend/internal/models"
	"lancebill-backend/internal/services"
	"lancebill-backend/pkg/utils"
)

type SubscriptionHandler struct {
	subscriptionService *services.SubscriptionService
}

func NewSubscriptionHandler(subscriptionService *services.SubscriptionService) *SubscriptionHandler {
	return &SubscriptionHandler{subscriptionService: subscriptionService}
}

// Get handles GET /api/subscription
func (h *SubscriptionHandler) Get(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	sub, err := h.subscriptionService.Get(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, sub)
}

// UpdatePlan handles PUT /api/subscription/plan
func (h *SubscriptionHandler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.UpdatePlanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	sub, err := h.subscriptionService.ChangePlan(r.Context(), owner, req.Plan)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, sub)
}

// Reserve handles POST /api/subscription/reserve/{resource}
func (h *SubscriptionHandler) Reserve(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	resource := ledger.Resource(pathParam(r, "resource"))
	reservation, err := h.subscriptionService.Reserve(r.Context(), owner, resource)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, reservation)
}

// Plans handles GET /api/plans
func (h *SubscriptionHandler) Plans(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, models.PlanCatalog)
}
