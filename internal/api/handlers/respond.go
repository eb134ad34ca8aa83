package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/lcportal/lcportal/internal/service"
)

// Response is the envelope every endpoint responds with
type Response struct {
	Success     bool        `json:"success"`
	Data        interface{} `json:"data,omitempty"`
	Error       string      `json:"error,omitempty"`
	Message     string      `json:"message,omitempty"`
	Count       *int        `json:"count,omitempty"`
	Total       *int        `json:"total,omitempty"`
	TotalPages  *int        `json:"totalPages,omitempty"`
	CurrentPage *int        `json:"currentPage,omitempty"`
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, body Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondData sends a success envelope carrying data
func respondData(w http.ResponseWriter, status int, data interface{}) {
	respondJSON(w, status, Response{Success: true, Data: data})
}

// respondError sends an error envelope
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, Response{Success: false, Error: message})
}

// respondServiceError translates service-layer errors to HTTP responses; it is
// the single place error kinds map to status codes
func respondServiceError(w http.ResponseWriter, err error) {
	var incomplete *service.IncompleteApplicationError
	switch {
	case errors.Is(err, service.ErrNotFound):
		respondError(w, http.StatusNotFound, "Resource not found")
	case errors.Is(err, service.ErrForbidden):
		respondError(w, http.StatusForbidden, "Not authorized to access this resource")
	case errors.Is(err, service.ErrNoCompany):
		respondError(w, http.StatusBadRequest, "Please complete company registration first")
	case errors.Is(err, service.ErrDraftRevert):
		respondError(w, http.StatusBadRequest, "Cannot revert to draft once submitted")
	case errors.Is(err, service.ErrNotDraft):
		respondError(w, http.StatusBadRequest, "Only draft applications can be deleted")
	case errors.As(err, &incomplete):
		respondError(w, http.StatusBadRequest,
			"Please complete all required forms before submission: "+strings.Join(incomplete.Missing, ", "))
	case errors.Is(err, service.ErrStaleVersion):
		respondError(w, http.StatusConflict, "Application was modified by another request, reload and retry")
	case errors.Is(err, service.ErrEmailTaken):
		respondError(w, http.StatusBadRequest, "Email is already registered")
	case errors.Is(err, service.ErrCompanyTaken):
		respondError(w, http.StatusBadRequest, "Company is already registered")
	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, service.ErrUserNotActive):
		respondError(w, http.StatusForbidden, "Account is deactivated")
	default:
		log.Printf("Unhandled error: %v", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}
