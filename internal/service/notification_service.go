package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/threaded-comments-api/internal/models"
	"github.com/threaded-comments-api/internal/repository"
	"github.com/threaded-comments-api/internal/validation"
)

// notificationService is the concrete implementation of NotificationService
type notificationService struct {
	repo      repository.NotificationRepository
	validator *validation.Validator
	now       func() time.Time
	log       zerolog.Logger
}

// newNotificationService creates a NotificationService over repo, which may be
// bound to a transaction
func newNotificationService(repo repository.NotificationRepository, validator *validation.Validator, now func() time.Time, log zerolog.Logger) *notificationService {
	return &notificationService{
		repo:      repo,
		validator: validator,
		now:       now,
		log:       log.With().Str("service", "notification").Logger(),
	}
}

// CreateReplyNotification records that comment replied to one of recipientID's comments
func (s *notificationService) CreateReplyNotification(ctx context.Context, recipientID string, comment *models.Comment) (*models.Notification, error) {
	n := &models.Notification{
		ID:          uuid.New().String(),
		Type:        models.NotificationTypeReply,
		RecipientID: recipientID,
		CommentID:   comment.ID,
		Comment:     comment,
		CreatedAt:   s.now(),
	}

	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("failed to create reply notification: %w", err)
	}

	s.log.Debug().
		Str("notification_id", n.ID).
		Str("recipient_id", recipientID).
		Str("comment_id", comment.ID).
		Msg("Reply notification created")

	return n, nil
}

// ListForUser returns the user's notifications, newest first
func (s *notificationService) ListForUser(ctx context.Context, userID string) ([]*models.Notification, error) {
	notifications, err := s.repo.ListByRecipient(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	for _, n := range notifications {
		s.validator.RenderComment(n.Comment)
	}
	return notifications, nil
}

// MarkRead flags a notification as read. It returns nil without error when
// the user has no notification with that id.
func (s *notificationService) MarkRead(ctx context.Context, id, userID string) (*models.Notification, error) {
	if !validation.IsValidUUID(id) {
		return nil, nil
	}
	n, err := s.repo.MarkRead(ctx, id, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n, nil
}

// MarkAllRead flags every notification of the user as read
func (s *notificationService) MarkAllRead(ctx context.Context, userID string) error {
	updated, err := s.repo.MarkAllRead(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to mark notifications read: %w", err)
	}
	s.log.Debug().Str("user_id", userID).Int64("updated", updated).Msg("Notifications marked read")
	return nil
}

// UnreadCount returns how many of the user's notifications are unread
func (s *notificationService) UnreadCount(ctx context.Context, userID string) (int, error) {
	count, err := s.repo.CountUnread(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("failed to count unread notifications: %w", err)
	}
	return count, nil
}
