package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lcportal/lcportal/internal/api/middleware"
	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/service"
)

// ApplicationHandler handles application-related HTTP requests
type ApplicationHandler struct {
	applicationService *service.ApplicationService
}

// NewApplicationHandler creates a new application handler
func NewApplicationHandler(applicationService *service.ApplicationService) *ApplicationHandler {
	return &ApplicationHandler{
		applicationService: applicationService,
	}
}

// List handles GET /api/applications
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r.Context())
	filter := parseFilter(r)

	apps, total, err := h.applicationService.List(r.Context(), filter, actor)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	if apps == nil {
		apps = []*domain.Application{}
	}

	count := len(apps)
	totalPages := (total + filter.Limit - 1) / filter.Limit
	respondJSON(w, http.StatusOK, Response{
		Success:     true,
		Data:        apps,
		Count:       &count,
		Total:       &total,
		TotalPages:  &totalPages,
		CurrentPage: &filter.Page,
	})
}

func parseFilter(r *http.Request) domain.ApplicationFilter {
	q := r.URL.Query()

	filter := domain.ApplicationFilter{
		Status:    domain.ApplicationStatus(q.Get("status")),
		Type:      domain.ApplicationType(q.Get("type")),
		Search:    q.Get("search"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
		Page:      1,
		Limit:     10,
	}

	if page, err := strconv.Atoi(q.Get("page")); err == nil && page > 0 {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		filter.Limit = limit
	}
	if start, err := time.Parse("2006-01-02", q.Get("startDate")); err == nil {
		filter.StartDate = &start
	}
	if end, err := time.Parse("2006-01-02", q.Get("endDate")); err == nil {
		filter.EndDate = &end
	}
	if filter.SortBy == "" {
		filter.SortBy = "createdAt"
	}
	if filter.SortOrder == "" {
		filter.SortOrder = "desc"
	}

	return filter
}

// Get handles GET /api/applications/{id}
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	app, err := h.applicationService.Get(r.Context(), id, middleware.GetUser(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, app)
}

// Create handles POST /api/applications
func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.ApplicationCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !req.Type.IsValid() {
		respondError(w, http.StatusBadRequest, "A valid LC type is required")
		return
	}
	if req.Amount < 0 {
		respondError(w, http.StatusBadRequest, "Amount must not be negative")
		return
	}
	if req.Currency == "" {
		respondError(w, http.StatusBadRequest, "Currency is required")
		return
	}
	if req.ExpiryDate.IsZero() {
		respondError(w, http.StatusBadRequest, "Expiry date is required")
		return
	}

	app, err := h.applicationService.Create(r.Context(), &req, middleware.GetUser(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusCreated, app)
}

// Update handles PUT /api/applications/{id}
func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req domain.ApplicationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Status != nil && !req.Status.IsValid() {
		respondError(w, http.StatusBadRequest, "Unknown application status")
		return
	}

	app, err := h.applicationService.Update(r.Context(), id, &req, middleware.GetUser(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, app)
}

// Delete handles DELETE /api/applications/{id}
func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.applicationService.Delete(r.Context(), id, middleware.GetUser(r.Context())); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Message: "Application deleted successfully"})
}

// UpdateStep handles PUT /api/applications/{id}/step
func (h *ApplicationHandler) UpdateStep(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	var req domain.ApplicationStepRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !req.Step.IsValid() {
		respondError(w, http.StatusBadRequest, "Unknown application step")
		return
	}

	app, err := h.applicationService.UpdateStep(r.Context(), id, &req, middleware.GetUser(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, app)
}

// Submit handles POST /api/applications/{id}/submit
func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	app, err := h.applicationService.Submit(r.Context(), id, middleware.GetUser(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "Application submitted successfully",
		Data:    app,
	})
}

// DashboardStats handles GET /api/applications/stats/dashboard
func (h *ApplicationHandler) DashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.applicationService.DashboardStats(r.Context(), middleware.GetUser(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, stats)
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusNotFound, "Resource not found")
		return uuid.Nil, false
	}
	return id, true
}
