package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/threaded-comments-api/internal/config"
	"github.com/threaded-comments-api/internal/models"
	"github.com/threaded-comments-api/internal/repository"
	"github.com/threaded-comments-api/internal/validation"
)

// commentService is the concrete implementation of CommentService
type commentService struct {
	repos         *repository.Repositories
	validator     *validation.Validator
	editWindow    time.Duration
	restoreWindow time.Duration
	now           func() time.Time
	log           zerolog.Logger
}

// newCommentService creates a new CommentService
func newCommentService(repos *repository.Repositories, validator *validation.Validator, cfg config.CommentConfig, now func() time.Time, log zerolog.Logger) *commentService {
	return &commentService{
		repos:         repos,
		validator:     validator,
		editWindow:    cfg.EditWindow,
		restoreWindow: cfg.RestoreWindow,
		now:           now,
		log:           log.With().Str("service", "comment").Logger(),
	}
}

// Create stores a root comment or a reply. A reply to someone else's comment
// notifies the parent's author in the same transaction: if the notification
// cannot be written, the reply is rolled back too.
func (s *commentService) Create(ctx context.Context, req *models.CreateCommentRequest, principal models.Principal) (*models.Comment, error) {
	content, err := s.validator.NormalizeContent(req.Content)
	if err != nil {
		return nil, invalidInput(err)
	}

	now := s.now()
	comment := &models.Comment{
		ID:        uuid.New().String(),
		Content:   content,
		AuthorID:  principal.ID,
		Author:    &models.Author{ID: principal.ID, Username: principal.Username},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if req.ParentID == nil || *req.ParentID == "" {
		if err := s.repos.Comment.Create(ctx, comment); err != nil {
			return nil, fmt.Errorf("failed to create comment: %w", err)
		}
		s.log.Info().Str("comment_id", comment.ID).Str("author_id", principal.ID).Msg("Comment created")
		s.validator.RenderComment(comment)
		return comment, nil
	}

	parent, err := s.load(ctx, *req.ParentID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, newError(ErrNotFound, "parent comment with ID %s not found", *req.ParentID)
		}
		return nil, err
	}
	comment.ParentID = &parent.ID

	err = s.repos.Tx.WithinTx(ctx, func(tx *repository.Repositories) error {
		if err := tx.Comment.Create(ctx, comment); err != nil {
			return fmt.Errorf("failed to create reply: %w", err)
		}
		if parent.AuthorID == principal.ID {
			return nil
		}
		dispatcher := newNotificationService(tx.Notification, s.validator, s.now, s.log)
		_, err := dispatcher.CreateReplyNotification(ctx, parent.AuthorID, comment)
		return err
	})
	if err != nil {
		s.log.Error().Err(err).Str("parent_id", parent.ID).Msg("Reply creation rolled back")
		return nil, err
	}

	s.log.Info().
		Str("comment_id", comment.ID).
		Str("parent_id", parent.ID).
		Str("author_id", principal.ID).
		Msg("Reply created")

	s.validator.RenderComment(comment)
	return comment, nil
}

// Edit replaces the content of the principal's comment while its edit window is open.
// Ownership and the window are checked before the new content is validated.
func (s *commentService) Edit(ctx context.Context, id, content string, principal models.Principal) (*models.Comment, error) {
	comment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != principal.ID {
		return nil, notAuthor("edit")
	}

	now := s.now()
	if !comment.CanBeEdited(now, s.editWindow) {
		return nil, ErrEditWindowClosed
	}

	normalized, err := s.validator.NormalizeContent(content)
	if err != nil {
		return nil, invalidInput(err)
	}

	comment.Content = normalized
	comment.UpdatedAt = now
	if err := s.repos.Comment.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	s.log.Info().Str("comment_id", id).Str("author_id", principal.ID).Msg("Comment edited")
	s.validator.RenderComment(comment)
	return comment, nil
}

// SoftDelete hides the principal's comment. Replies are left untouched.
func (s *commentService) SoftDelete(ctx context.Context, id string, principal models.Principal) (*models.Comment, error) {
	comment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != principal.ID {
		return nil, notAuthor("delete")
	}

	comment.MarkDeleted(s.now())
	if err := s.repos.Comment.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to delete comment: %w", err)
	}

	s.log.Info().Str("comment_id", id).Str("author_id", principal.ID).Msg("Comment soft-deleted")
	s.validator.RenderComment(comment)
	return comment, nil
}

// Restore undoes a soft delete while the restore window is open
func (s *commentService) Restore(ctx context.Context, id string, principal models.Principal) (*models.Comment, error) {
	comment, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if comment.AuthorID != principal.ID {
		return nil, notAuthor("restore")
	}

	now := s.now()
	if !comment.CanBeRestored(now, s.restoreWindow) {
		return nil, ErrRestoreWindowClosed
	}

	comment.MarkRestored(now)
	if err := s.repos.Comment.Update(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to restore comment: %w", err)
	}

	s.log.Info().Str("comment_id", id).Str("author_id", principal.ID).Msg("Comment restored")
	s.validator.RenderComment(comment)
	return comment, nil
}

func (s *commentService) load(ctx context.Context, id string) (*models.Comment, error) {
	return loadComment(ctx, s.repos.Comment, id)
}

// loadComment fetches a comment or returns a NotFound error
func loadComment(ctx context.Context, repo repository.CommentRepository, id string) (*models.Comment, error) {
	if !validation.IsValidUUID(id) {
		return nil, newError(ErrNotFound, "comment with ID %s not found", id)
	}
	comment, err := repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load comment: %w", err)
	}
	if comment == nil {
		return nil, newError(ErrNotFound, "comment with ID %s not found", id)
	}
	return comment, nil
}

func invalidInput(err error) *Error {
	var ve validation.ValidationError
	if errors.As(err, &ve) {
		return &Error{Kind: ErrInvalidInput, Message: ve.Message, Details: []validation.ValidationError{ve}}
	}
	return &Error{Kind: ErrInvalidInput, Message: err.Error()}
}
