package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/threaded-comments-api/internal/models"
	"github.com/threaded-comments-api/internal/repository"
	"github.com/threaded-comments-api/internal/validation"
)

// threadService is the concrete implementation of ThreadService.
// Both read paths expand exactly one level of replies; deeper replies are
// reachable only by fetching the reply itself.
type threadService struct {
	repos     *repository.Repositories
	validator *validation.Validator
	log       zerolog.Logger
}

// newThreadService creates a new ThreadService
func newThreadService(repos *repository.Repositories, validator *validation.Validator, log zerolog.Logger) *threadService {
	return &threadService{
		repos:     repos,
		validator: validator,
		log:       log.With().Str("service", "thread").Logger(),
	}
}

// ListRoots returns root comments in creation order, each with its direct replies.
// Unless includeDeleted is set, deleted roots and deleted replies are filtered
// independently: a live root keeps its live replies even if some are deleted.
func (s *threadService) ListRoots(ctx context.Context, includeDeleted bool) ([]*models.Comment, error) {
	roots, err := s.repos.Comment.ListRoots(ctx, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to list root comments: %w", err)
	}
	if err := s.attachReplies(ctx, roots, includeDeleted); err != nil {
		return nil, err
	}

	for _, root := range roots {
		s.validator.RenderComment(root)
	}

	s.log.Debug().Int("roots", len(roots)).Bool("include_deleted", includeDeleted).Msg("Listed root comments")
	return roots, nil
}

// GetOne returns a comment with its author, parent and direct replies.
// Deleted comments and replies are returned as-is.
func (s *threadService) GetOne(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := loadComment(ctx, s.repos.Comment, id)
	if err != nil {
		return nil, err
	}

	if comment.ParentID != nil {
		parent, err := s.repos.Comment.GetByID(ctx, *comment.ParentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load parent comment: %w", err)
		}
		comment.Parent = parent
	}

	if err := s.attachReplies(ctx, []*models.Comment{comment}, true); err != nil {
		return nil, err
	}

	s.validator.RenderComment(comment)
	return comment, nil
}

// GetCount returns the number of stored records for a resource
func (s *threadService) GetCount(ctx context.Context, resource string) (int, error) {
	switch resource {
	case "comments":
		return s.repos.Comment.Count(ctx)
	case "notifications":
		return s.repos.Notification.Count(ctx)
	default:
		return 0, newError(ErrInvalidInput, "unknown resource %q", resource)
	}
}

// attachReplies loads the direct replies of parents in one query and
// distributes them through a parent id index
func (s *threadService) attachReplies(ctx context.Context, parents []*models.Comment, includeDeleted bool) error {
	if len(parents) == 0 {
		return nil
	}

	ids := make([]string, len(parents))
	for i, p := range parents {
		ids[i] = p.ID
		p.Replies = make([]*models.Comment, 0)
	}

	replies, err := s.repos.Comment.ListByParentIDs(ctx, ids, includeDeleted)
	if err != nil {
		return fmt.Errorf("failed to list replies: %w", err)
	}

	children := make(map[string][]*models.Comment, len(parents))
	for _, reply := range replies {
		children[*reply.ParentID] = append(children[*reply.ParentID], reply)
	}
	for _, p := range parents {
		if c, ok := children[p.ID]; ok {
			p.Replies = c
		}
	}
	return nil
}
