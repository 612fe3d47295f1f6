package repository

import (
	"context"
	"database/sql"

	"github.com/threaded-comments-api/internal/database"
	"github.com/threaded-comments-api/internal/models"
)

// notificationRepo is the concrete implementation of NotificationRepository
type notificationRepo struct {
	db database.Querier
}

// NewNotificationRepo creates a new notification repository
func NewNotificationRepo(db database.Querier) NotificationRepository {
	return &notificationRepo{db: db}
}

// Create inserts a new notification
func (r *notificationRepo) Create(ctx context.Context, n *models.Notification) error {
	query := `
		INSERT INTO notifications (id, type, is_read, recipient_id, comment_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err := r.db.ExecContext(ctx, query,
		n.ID, n.Type, n.IsRead, n.RecipientID, n.CommentID, n.CreatedAt,
	)
	return err
}

// ListByRecipient returns a user's notifications, newest first, each with
// the reply comment and its author
func (r *notificationRepo) ListByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	query := `
		SELECT n.id, n.type, n.is_read, n.recipient_id, n.comment_id, n.created_at,
			c.id, c.content, c.author_id, u.username, c.parent_id,
			c.is_deleted, c.deleted_at, c.created_at, c.updated_at
		FROM notifications n
		JOIN comments c ON c.id = n.comment_id
		JOIN users u ON u.id = c.author_id
		WHERE n.recipient_id = $1
		ORDER BY n.created_at DESC, n.seq DESC
	`
	rows, err := r.db.QueryContext(ctx, query, recipientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*models.Notification, 0)
	for rows.Next() {
		var n models.Notification
		var c models.Comment
		var author models.Author
		var parentID sql.NullString
		var deletedAt sql.NullTime

		err := rows.Scan(
			&n.ID, &n.Type, &n.IsRead, &n.RecipientID, &n.CommentID, &n.CreatedAt,
			&c.ID, &c.Content, &c.AuthorID, &author.Username, &parentID,
			&c.IsDeleted, &deletedAt, &c.CreatedAt, &c.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}

		author.ID = c.AuthorID
		c.Author = &author
		if parentID.Valid {
			c.ParentID = &parentID.String
		}
		if deletedAt.Valid {
			c.DeletedAt = &deletedAt.Time
		}
		n.Comment = &c
		notifications = append(notifications, &n)
	}

	return notifications, rows.Err()
}

// MarkRead flags one of the recipient's notifications as read.
// Returns nil when no such notification exists for the recipient.
func (r *notificationRepo) MarkRead(ctx context.Context, id, recipientID string) (*models.Notification, error) {
	query := `
		UPDATE notifications SET is_read = TRUE
		WHERE id = $1 AND recipient_id = $2
		RETURNING id, type, is_read, recipient_id, comment_id, created_at
	`
	var n models.Notification
	err := r.db.QueryRowContext(ctx, query, id, recipientID).Scan(
		&n.ID, &n.Type, &n.IsRead, &n.RecipientID, &n.CommentID, &n.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// MarkAllRead flags every unread notification of the recipient as read
func (r *notificationRepo) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE WHERE recipient_id = $1 AND NOT is_read`,
		recipientID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CountUnread returns the number of unread notifications for the recipient
func (r *notificationRepo) CountUnread(ctx context.Context, recipientID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read`,
		recipientID,
	).Scan(&count)
	return count, err
}

// Count returns the total number of notifications
func (r *notificationRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM notifications").Scan(&count)
	return count, err
}
