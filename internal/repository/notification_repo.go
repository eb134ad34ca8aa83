package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lcportal/lcportal/internal/domain"
)

// NotificationRepository handles notification persistence
type NotificationRepository struct {
	db *sql.DB
}

// NewNotificationRepository creates a new notification repository with a shared database connection
func NewNotificationRepository(db *sql.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create stores a notification
func (r *NotificationRepository) Create(ctx context.Context, n *domain.Notification) error {
	query := `
		INSERT INTO notifications (id, user_id, type, title, message, data, is_read, priority, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	data, err := marshalJSON(n.Data)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		n.ID,
		n.UserID,
		n.Type,
		n.Title,
		n.Message,
		data,
		n.IsRead,
		n.Priority,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}

	return nil
}

// FindByUser returns a page of a user's notifications with total and unread counts
func (r *NotificationRepository) FindByUser(ctx context.Context, userID uuid.UUID, req domain.NotificationListRequest) (*domain.NotificationListResponse, error) {
	limit := req.Limit
	if limit <= 0 {
		limit = 20
	}

	query := `
		SELECT id, user_id, type, title, message, data, is_read, priority, read_at, created_at
		FROM notifications
		WHERE user_id = $1
	`
	if req.UnreadOnly {
		query += ` AND NOT is_read`
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC LIMIT %d OFFSET %d`, limit, req.Offset)

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	resp := &domain.NotificationListResponse{Notifications: []domain.Notification{}}
	for rows.Next() {
		var (
			n    domain.Notification
			data []byte
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Message, &data, &n.IsRead, &n.Priority, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		if err := unmarshalJSON(data, &n.Data); err != nil {
			return nil, err
		}
		resp.Notifications = append(resp.Notifications, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	countQuery := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE NOT is_read)
		FROM notifications
		WHERE user_id = $1
	`
	if err := r.db.QueryRowContext(ctx, countQuery, userID).Scan(&resp.TotalCount, &resp.UnreadCount); err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}

	return resp, nil
}

// MarkRead marks one of the user's notifications as read
func (r *NotificationRepository) MarkRead(ctx context.Context, userID, notificationID uuid.UUID) error {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $3
		WHERE id = $1 AND user_id = $2 AND NOT is_read
	`

	result, err := r.db.ExecContext(ctx, query, notificationID, userID, time.Now())
	if err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		// Either missing, someone else's, or already read; verify existence
		var exists bool
		if err := r.db.QueryRowContext(ctx,
			`SELECT EXISTS(SELECT 1 FROM notifications WHERE id = $1 AND user_id = $2)`,
			notificationID, userID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check notification: %w", err)
		}
		if !exists {
			return sql.ErrNoRows
		}
	}

	return nil
}

// MarkAllRead marks all of the user's notifications as read, returning the count
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	query := `
		UPDATE notifications
		SET is_read = TRUE, read_at = $2
		WHERE user_id = $1 AND NOT is_read
	`

	result, err := r.db.ExecContext(ctx, query, userID, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	return result.RowsAffected()
}
