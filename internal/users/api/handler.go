package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"ms-registration/internal/logger"
	"ms-registration/internal/models"
	"ms-registration/internal/users"
	"ms-registration/internal/utils"
	"net/http"
	"strings"
)

type Handler struct {
	UserService *users.UserService
	Logger      *logger.Logger
}

func NewHandler(service *users.UserService, log *logger.Logger) *Handler {
	return &Handler{UserService: service, Logger: log}
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.FullName) == "" || len(req.Password) < 8 {
		http.Error(w, "email, full_name and a password of at least 8 characters are required", http.StatusBadRequest)
		return
	}

	user, err := h.UserService.Signup(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrEmailTaken) {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Signup: %v", err))
		http.Error(w, "Failed to create account", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, utils.SuccessResponse("Account created", user))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	resp, err := h.UserService.Login(r.Context(), req)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			http.Error(w, "Invalid credentials", http.StatusUnauthorized)
			return
		}
		h.Logger.Error("API", fmt.Sprintf("Login: %v", err))
		http.Error(w, "Login failed", http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, resp)
}
