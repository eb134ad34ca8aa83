package handlers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/lcportal/lcportal/internal/api/middleware"
	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/service"
)

// AuthHandler handles authentication HTTP requests
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.FirstName == "" || req.LastName == "" {
		respondError(w, http.StatusBadRequest, "First name and last name are required")
		return
	}
	if !strings.Contains(req.Email, "@") {
		respondError(w, http.StatusBadRequest, "Please include a valid email")
		return
	}
	if len(req.Password) < 6 {
		respondError(w, http.StatusBadRequest, "Please enter a password with 6 or more characters")
		return
	}

	user, err := h.authService.Register(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	token, err := h.authService.GenerateToken(user)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusCreated, token)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "Email and password are required")
		return
	}

	token, err := h.authService.Login(r.Context(), &req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, token)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, middleware.GetUser(r.Context()))
}
