package handlers

import (
	"encoding/json"
	"net/http"

	"lancebill-backend/internal/models"
	"lancebill-backend/internal/services"
	"lancebill-backend/pkg/utils"
)

type ClientHandler struct {
	clientService *services.ClientService
}

func NewClientHandler(clientService *services.ClientService) *ClientHandler {
	return &ClientHandler{clientService: clientService}
}

// Create handles POST /api/clients
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req models.CreateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, err := h.clientService.Create(r.Context(), owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, client)
}

// List handles GET /api/clients
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	owner, err := ownerID(r)
	if err != nil {
		utils.Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	clients, err := h.clientService.List(r.Context(), owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]interface{}{"clients": clients})
}

// Get handles GET /api/clients/{id}
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	client, err := h.clientService.Get(r.Context(), id, owner)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, client)
}

// Update handles PUT /api/clients/{id}
func (h *ClientHandler) Update(w http.ResponseWriter, r *http.Request) {
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

	var req models.UpdateClientRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	client, err := h.clientService.Update(r.Context(), id, owner, &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, client)
}

// Delete handles DELETE /api/clients/{id}
func (h *ClientHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.clientService.Delete(r.Context(), id, owner); err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, map[string]string{"message": "client deleted"})
}
