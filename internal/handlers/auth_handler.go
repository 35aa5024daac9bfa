package handlers

import (
	"encoding/json"
	"net/http"

	"lancebill-backend/internal/models"
	"lancebill-backend/internal/services"
	"lancebill-backend/pkg/utils"
)

type AuthHandler struct {
	accountService *services.AccountService
}

func NewAuthHandler(accountService *services.AccountService) *AuthHandler {
	return &AuthHandler{accountService: accountService}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.accountService.Signup(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.accountService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, err)
		return
	}

	utils.JSON(w, http.StatusOK, resp)
}
