package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"github.com/threaded-comments-api/internal/config"
	"github.com/threaded-comments-api/internal/models"
	"github.com/threaded-comments-api/internal/repository"
	"github.com/threaded-comments-api/internal/validation"
)

// CommentService owns every comment mutation
type CommentService interface {
	Create(ctx context.Context, req *models.CreateCommentRequest, principal models.Principal) (*models.Comment, error)
	Edit(ctx context.Context, id, content string, principal models.Principal) (*models.Comment, error)
	SoftDelete(ctx context.Context, id string, principal models.Principal) (*models.Comment, error)
	Restore(ctx context.Context, id string, principal models.Principal) (*models.Comment, error)
}

// ThreadService assembles comments for read paths
type ThreadService interface {
	ListRoots(ctx context.Context, includeDeleted bool) ([]*models.Comment, error)
	GetOne(ctx context.Context, id string) (*models.Comment, error)
	GetCount(ctx context.Context, resource string) (int, error)
}

// NotificationService creates and updates reply notifications
type NotificationService interface {
	CreateReplyNotification(ctx context.Context, recipientID string, comment *models.Comment) (*models.Notification, error)
	ListForUser(ctx context.Context, userID string) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, userID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, userID string) error
	UnreadCount(ctx context.Context, userID string) (int, error)
}

// AuthService registers users and resolves bearer tokens to principals
type AuthService interface {
	Register(ctx context.Context, req *models.RegisterRequest) (*models.User, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error)
	IssueToken(user *models.User) (string, time.Time, error)
	Authenticate(ctx context.Context, token string) (models.Principal, error)
	GetUser(ctx context.Context, id string) (models.Principal, error)
}

// Services holds all service interfaces
type Services struct {
	Comment      CommentService
	Thread       ThreadService
	Notification NotificationService
	Auth         AuthService
}

type options struct {
	now func() time.Time
}

// Option customizes service construction
type Option func(*options)

// WithClock replaces the wall clock used for timestamps and time windows
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// NewServices creates all services
func NewServices(repos *repository.Repositories, cfg *config.Config, log zerolog.Logger, opts ...Option) *Services {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	validator := validation.NewValidator(cfg.Comments.MaxLength)
	notificationSvc := newNotificationService(repos.Notification, validator, o.now, log)
	threadSvc := newThreadService(repos, validator, log)
	commentSvc := newCommentService(repos, validator, cfg.Comments, o.now, log)
	authSvc := newAuthService(repos.User, validator, cfg.Auth, o.now, log)

	return &Services{
		Comment:      commentSvc,
		Thread:       threadSvc,
		Notification: notificationSvc,
		Auth:         authSvc,
	}
}
