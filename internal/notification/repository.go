// internal/notification/repository.go
// Data access layer for notifications

package notification

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Repository defines notification data operations
type Repository interface {
	Create(ctx context.Context, n *Notification) error
	ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Notification, error)
	CountForUser(ctx context.Context, userID int64) (int, error)
	CountUnread(ctx context.Context, userID int64) (int, error)
	MarkRead(ctx context.Context, userID, notificationID int64) (bool, error)
	MarkAllRead(ctx context.Context, userID int64) error
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a PostgreSQL notification repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) Create(ctx context.Context, n *Notification) error {
	q := `
		INSERT INTO notifications (user_id, actor_id, type, post_id, comment_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, created_at`

	err := r.db.QueryRowContext(ctx, q,
		n.UserID, n.ActorID, n.Type, n.PostID, n.CommentID,
	).Scan(&n.ID, &n.IsRead, &n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create notification: %w", err)
	}
	return nil
}

// ListForUser returns bare rows; the service resolves actor profiles
// in one batch afterwards.
func (r *postgresRepository) ListForUser(ctx context.Context, userID int64, limit, offset int) ([]*Notification, error) {
	q := `
		SELECT id, user_id, actor_id, type, post_id, comment_id, is_read, created_at
		FROM notifications
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	notifications := []*Notification{}
	if err := r.db.SelectContext(ctx, &notifications, q, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	return notifications, nil
}

func (r *postgresRepository) CountForUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count notifications: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) CountUnread(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips one notification; the user_id predicate stops users
// from marking each other's notifications.
func (r *postgresRepository) MarkRead(ctx context.Context, userID, notificationID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`,
		notificationID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to mark notification read: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check marked notification: %w", err)
	}
	return rows > 0, nil
}

func (r *postgresRepository) MarkAllRead(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	return nil
}
