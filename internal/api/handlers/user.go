package handlers

import (
	"net/http"

	"github.com/lcportal/lcportal/internal/repository"
)

// UserHandler handles user administration HTTP requests
type UserHandler struct {
	userRepo *repository.UserRepository
}

// NewUserHandler creates a new user handler
func NewUserHandler(userRepo *repository.UserRepository) *UserHandler {
	return &UserHandler{
		userRepo: userRepo,
	}
}

// List handles GET /api/users (admin only)
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	users, err := h.userRepo.FindAll(r.Context())
	if err != nil {
		respondError(w, http.StatusInternalServerError, "Failed to list users")
		return
	}

	count := len(users)
	respondJSON(w, http.StatusOK, Response{Success: true, Data: users, Count: &count})
}
