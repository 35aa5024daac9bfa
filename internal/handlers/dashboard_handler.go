package handlers

import (
	"net/http"

	"lancebill-backend/internal/services"
	"lancebill-backend/pkg/utils"
)

type DashboardHandler struct {
	dashboardService *services.DashboardService
}

func NewDashboardHandler(dashboardService *services.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboardService: dashboardService}
}

// Summary handles GET /api/dashboard/summary
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	summary, err := h.dashboardService.Summary(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, summary)
}
