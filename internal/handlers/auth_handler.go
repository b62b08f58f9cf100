package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"vznosBot/internal/models"
	"vznosBot/internal/services"
)

type AuthHandler struct {
	Service *services.AuthService
}

type signInRequest struct {
	Password string `json:"password"`
}

type signInResponse struct {
	AccessToken string `json:"access_token"`
}

func (h *AuthHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid body", http.StatusBadRequest)
		return
	}
	token, err := h.Service.SignIn(r.Context(), req.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		http.Error(w, "Failed to sign in", http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(signInResponse{AccessToken: token})
}
