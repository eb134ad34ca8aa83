package domain

import (
	"time"

	"github.com/google/uuid"
)

// NotificationType represents the kind of notification
type NotificationType string

const (
	NotificationApplicationUpdate NotificationType = "application_update"
	NotificationComplianceAlert   NotificationType = "compliance_alert"
	NotificationDocumentUpload    NotificationType = "document_upload"
	NotificationDeadline          NotificationType = "deadline"
	NotificationSystem            NotificationType = "system"
	NotificationOther             NotificationType = "other"
)

// NotificationPriority represents delivery priority
type NotificationPriority string

const (
	NotificationPriorityLow    NotificationPriority = "low"
	NotificationPriorityNormal NotificationPriority = "normal"
	NotificationPriorityHigh   NotificationPriority = "high"
)

// NotificationData carries back-references for client-side linking only;
// it implies no ownership of the referenced records.
type NotificationData struct {
	ApplicationID *uuid.UUID `json:"applicationId,omitempty"`
	DocumentID    *uuid.UUID `json:"documentId,omitempty"`
	CompanyID     *uuid.UUID `json:"companyId,omitempty"`
	URL           string     `json:"url,omitempty"`
}

// Notification is a stored message addressed to one user
type Notification struct {
	ID        uuid.UUID            `json:"id" db:"id"`
	UserID    uuid.UUID            `json:"user" db:"user_id"`
	Type      NotificationType     `json:"type" db:"type"`
	Title     string               `json:"title" db:"title"`
	Message   string               `json:"message" db:"message"`
	Data      NotificationData     `json:"data" db:"data"`
	IsRead    bool                 `json:"isRead" db:"is_read"`
	Priority  NotificationPriority `json:"priority" db:"priority"`
	ReadAt    *time.Time           `json:"readAt,omitempty" db:"read_at"`
	CreatedAt time.Time            `json:"createdAt" db:"created_at"`
}

// NotificationListRequest is the query for listing a user's notifications
type NotificationListRequest struct {
	UnreadOnly bool
	Limit      int
	Offset     int
}

// NotificationListResponse is the paged notification listing
type NotificationListResponse struct {
	Notifications []Notification `json:"notifications"`
	TotalCount    int            `json:"totalCount"`
	UnreadCount   int            `json:"unreadCount"`
}
