package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/threaded-comments-api/internal/database"
	"github.com/threaded-comments-api/internal/models"
)

// ErrDuplicate is returned when an insert violates a unique constraint
var ErrDuplicate = errors.New("duplicate record")

// UserRepository defines the interface for user data operations
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// CommentRepository defines the interface for comment data operations.
// All reads join the author; ordering is insertion order.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	Update(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id string) (*models.Comment, error)
	ListRoots(ctx context.Context, includeDeleted bool) ([]*models.Comment, error)
	ListByParentIDs(ctx context.Context, parentIDs []string, includeDeleted bool) ([]*models.Comment, error)
	Count(ctx context.Context) (int, error)
}

// NotificationRepository defines the interface for notification data operations
type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	ListByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error)
	MarkRead(ctx context.Context, id, recipientID string) (*models.Notification, error)
	MarkAllRead(ctx context.Context, recipientID string) (int64, error)
	CountUnread(ctx context.Context, recipientID string) (int, error)
	Count(ctx context.Context) (int, error)
}

// Transactor runs fn with repositories bound to a single transaction
type Transactor interface {
	WithinTx(ctx context.Context, fn func(repos *Repositories) error) error
}

// Repositories holds all repository interfaces
type Repositories struct {
	User         UserRepository
	Comment      CommentRepository
	Notification NotificationRepository
	Tx           Transactor
}

// New creates all repositories with the given database connection
func New(db *database.DB) *Repositories {
	repos := bind(db.DB)
	repos.Tx = &txRunner{db: db}
	return repos
}

func bind(q database.Querier) *Repositories {
	return &Repositories{
		User:         NewUserRepo(q),
		Comment:      NewCommentRepo(q),
		Notification: NewNotificationRepo(q),
	}
}

// txRunner is the database-backed Transactor
type txRunner struct {
	db *database.DB
}

func (t *txRunner) WithinTx(ctx context.Context, fn func(repos *Repositories) error) error {
	return t.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(bind(tx))
	})
}

// isUniqueViolation reports whether err is a PostgreSQL unique_violation
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// scanner is satisfied by *sql.Row and *sql.Rows
type scanner interface {
	Scan(dest ...any) error
}
