package handlers

import (
	"net/http"
	"strconv"

	"github.com/lcportal/lcportal/internal/api/middleware"
	"github.com/lcportal/lcportal/internal/domain"
	"github.com/lcportal/lcportal/internal/service"
)

// NotificationHandler handles notification HTTP requests
type NotificationHandler struct {
	notificationService *service.NotificationService
}

// NewNotificationHandler creates a new notification handler
func NewNotificationHandler(notificationService *service.NotificationService) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
	}
}

// List handles GET /api/notifications
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r.Context())
	q := r.URL.Query()

	req := domain.NotificationListRequest{
		UnreadOnly: q.Get("unreadOnly") == "true",
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		req.Limit = limit
	}
	if offset, err := strconv.Atoi(q.Get("offset")); err == nil && offset > 0 {
		req.Offset = offset
	}

	resp, err := h.notificationService.List(r.Context(), actor.ID, req)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, resp)
}

// MarkRead handles PUT /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r.Context())

	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(r.Context(), actor.ID, id); err != nil {
		respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, Response{Success: true, Message: "Notification marked as read"})
}

// MarkAllRead handles PUT /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetUser(r.Context())

	updated, err := h.notificationService.MarkAllRead(r.Context(), actor.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	respondData(w, http.StatusOK, map[string]int64{"updated": updated})
}
