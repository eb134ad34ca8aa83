package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/lcportal/lcportal/internal/domain"
)

// NotificationStore is the persistence surface for notifications
type NotificationStore interface {
	Create(ctx context.Context, n *domain.Notification) error
	FindByUser(ctx context.Context, userID uuid.UUID, req domain.NotificationListRequest) (*domain.NotificationListResponse, error)
	MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error
	MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error)
}

// UserDirectory resolves recipients for role-addressed delivery
type UserDirectory interface {
	FindByRole(ctx context.Context, role domain.Role) ([]*domain.User, error)
}

// NotificationService stores notifications and implements the role fan-out
// capability consumed by the lifecycle engine
type NotificationService struct {
	store NotificationStore
	users UserDirectory
}

// NewNotificationService creates a new notification service
func NewNotificationService(store NotificationStore, users UserDirectory) *NotificationService {
	return &NotificationService{
		store: store,
		users: users,
	}
}

// NotifyUser stores one notification addressed to a single user
func (s *NotificationService) NotifyUser(ctx context.Context, userID uuid.UUID, n domain.Notification) error {
	n.ID = uuid.New()
	n.UserID = userID
	if n.Priority == "" {
		n.Priority = domain.NotificationPriorityNormal
	}
	n.CreatedAt = time.Now()
	return s.store.Create(ctx, &n)
}

// NotifyRole stores one copy of the notification per active user holding the
// role. Delivery is a sequential loop; the first failed write aborts the rest
// and the returned count reflects only what was stored.
func (s *NotificationService) NotifyRole(ctx context.Context, role domain.Role, n domain.Notification) (int, error) {
	recipients, err := s.users.FindByRole(ctx, role)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for _, recipient := range recipients {
		if err := s.NotifyUser(ctx, recipient.ID, n); err != nil {
			return delivered, err
		}
		delivered++
	}

	return delivered, nil
}

// List returns a page of the user's notifications
func (s *NotificationService) List(ctx context.Context, userID uuid.UUID, req domain.NotificationListRequest) (*domain.NotificationListResponse, error) {
	return s.store.FindByUser(ctx, userID, req)
}

// MarkRead marks one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	err := s.store.MarkRead(ctx, userID, notificationID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// MarkAllRead marks all of the user's notifications as read
func (s *NotificationService) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.MarkAllRead(ctx, userID)
}
