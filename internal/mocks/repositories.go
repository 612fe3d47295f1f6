package mocks

import (
	"context"
	"sort"

	"github.com/threaded-comments-api/internal/models"
	"github.com/threaded-comments-api/internal/repository"
)

// Verify interface compliance
var (
	_ repository.UserRepository         = (*MockUserRepository)(nil)
	_ repository.CommentRepository      = (*MockCommentRepository)(nil)
	_ repository.NotificationRepository = (*MockNotificationRepository)(nil)
	_ repository.Transactor             = (*MockTransactor)(nil)
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	Users       map[string]*models.User
	CreateError error
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{
		Users: make(map[string]*models.User),
	}
}

func (m *MockUserRepository) Create(ctx context.Context, user *models.User) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	for _, u := range m.Users {
		if u.Username == user.Username || u.Email == user.Email {
			return repository.ErrDuplicate
		}
	}
	stored := *user
	m.Users[user.ID] = &stored
	return nil
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.Users[id]
	if !ok {
		return nil, nil
	}
	out := *u
	return &out, nil
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	for _, u := range m.Users {
		if u.Username == username {
			out := *u
			return &out, nil
		}
	}
	return nil, nil
}

// MockCommentRepository is a mock implementation of CommentRepository.
// Rows are kept in insertion order and returned as copies with the author joined.
type MockCommentRepository struct {
	Comments    map[string]*models.Comment
	Order       []string
	Users       *MockUserRepository
	CreateError error
	UpdateError error
	CountError  error
}

func NewMockCommentRepository(users *MockUserRepository) *MockCommentRepository {
	return &MockCommentRepository{
		Comments: make(map[string]*models.Comment),
		Users:    users,
	}
}

func (m *MockCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.Comments[comment.ID] = copyRow(comment)
	m.Order = append(m.Order, comment.ID)
	return nil
}

func (m *MockCommentRepository) Update(ctx context.Context, comment *models.Comment) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	stored, ok := m.Comments[comment.ID]
	if !ok {
		return nil
	}
	stored.Content = comment.Content
	stored.IsDeleted = comment.IsDeleted
	stored.DeletedAt = comment.DeletedAt
	stored.UpdatedAt = comment.UpdatedAt
	return nil
}

func (m *MockCommentRepository) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	c, ok := m.Comments[id]
	if !ok {
		return nil, nil
	}
	return m.withAuthor(c), nil
}

func (m *MockCommentRepository) ListRoots(ctx context.Context, includeDeleted bool) ([]*models.Comment, error) {
	out := make([]*models.Comment, 0)
	for _, id := range m.Order {
		c := m.Comments[id]
		if c.ParentID != nil || (!includeDeleted && c.IsDeleted) {
			continue
		}
		out = append(out, m.withAuthor(c))
	}
	return out, nil
}

func (m *MockCommentRepository) ListByParentIDs(ctx context.Context, parentIDs []string, includeDeleted bool) ([]*models.Comment, error) {
	wanted := make(map[string]bool, len(parentIDs))
	for _, id := range parentIDs {
		wanted[id] = true
	}
	out := make([]*models.Comment, 0)
	for _, id := range m.Order {
		c := m.Comments[id]
		if c.ParentID == nil || !wanted[*c.ParentID] || (!includeDeleted && c.IsDeleted) {
			continue
		}
		out = append(out, m.withAuthor(c))
	}
	return out, nil
}

func (m *MockCommentRepository) Count(ctx context.Context) (int, error) {
	if m.CountError != nil {
		return 0, m.CountError
	}
	return len(m.Comments), nil
}

func (m *MockCommentRepository) withAuthor(c *models.Comment) *models.Comment {
	out := copyRow(c)
	out.Author = &models.Author{ID: c.AuthorID}
	if m.Users != nil {
		if u, ok := m.Users.Users[c.AuthorID]; ok {
			out.Author.Username = u.Username
		}
	}
	return out
}

// copyRow copies the persisted columns of a comment, dropping materialized relations
func copyRow(c *models.Comment) *models.Comment {
	out := &models.Comment{
		ID:        c.ID,
		Content:   c.Content,
		AuthorID:  c.AuthorID,
		IsDeleted: c.IsDeleted,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.ParentID != nil {
		parentID := *c.ParentID
		out.ParentID = &parentID
	}
	if c.DeletedAt != nil {
		deletedAt := *c.DeletedAt
		out.DeletedAt = &deletedAt
	}
	return out
}

// MockNotificationRepository is a mock implementation of NotificationRepository
type MockNotificationRepository struct {
	Notifications map[string]*models.Notification
	Order         []string
	Comments      *MockCommentRepository
	CreateError   error
}

func NewMockNotificationRepository(comments *MockCommentRepository) *MockNotificationRepository {
	return &MockNotificationRepository{
		Notifications: make(map[string]*models.Notification),
		Comments:      comments,
	}
}

func (m *MockNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	stored := *n
	stored.Comment = nil
	m.Notifications[n.ID] = &stored
	m.Order = append(m.Order, n.ID)
	return nil
}

func (m *MockNotificationRepository) ListByRecipient(ctx context.Context, recipientID string) ([]*models.Notification, error) {
	out := make([]*models.Notification, 0)
	for i := len(m.Order) - 1; i >= 0; i-- {
		n := m.Notifications[m.Order[i]]
		if n.RecipientID != recipientID {
			continue
		}
		item := *n
		if m.Comments != nil {
			item.Comment, _ = m.Comments.GetByID(ctx, n.CommentID)
		}
		out = append(out, &item)
	}
	// Newest first; ties keep reverse insertion order
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MockNotificationRepository) MarkRead(ctx context.Context, id, recipientID string) (*models.Notification, error) {
	n, ok := m.Notifications[id]
	if !ok || n.RecipientID != recipientID {
		return nil, nil
	}
	n.IsRead = true
	out := *n
	return &out, nil
}

func (m *MockNotificationRepository) MarkAllRead(ctx context.Context, recipientID string) (int64, error) {
	var updated int64
	for _, n := range m.Notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			n.IsRead = true
			updated++
		}
	}
	return updated, nil
}

func (m *MockNotificationRepository) CountUnread(ctx context.Context, recipientID string) (int, error) {
	count := 0
	for _, n := range m.Notifications {
		if n.RecipientID == recipientID && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (m *MockNotificationRepository) Count(ctx context.Context) (int, error) {
	return len(m.Notifications), nil
}

// MockTransactor runs fn against the same mock repositories and restores
// comment and notification state when fn fails
type MockTransactor struct {
	Repos         *repository.Repositories
	Comments      *MockCommentRepository
	Notifications *MockNotificationRepository
	Calls         int
	RolledBack    int
}

func (m *MockTransactor) WithinTx(ctx context.Context, fn func(repos *repository.Repositories) error) error {
	m.Calls++

	comments := make(map[string]*models.Comment, len(m.Comments.Comments))
	for id, c := range m.Comments.Comments {
		comments[id] = copyRow(c)
	}
	commentOrder := append([]string(nil), m.Comments.Order...)

	notifications := make(map[string]*models.Notification, len(m.Notifications.Notifications))
	for id, n := range m.Notifications.Notifications {
		item := *n
		notifications[id] = &item
	}
	notificationOrder := append([]string(nil), m.Notifications.Order...)

	if err := fn(m.Repos); err != nil {
		m.Comments.Comments, m.Comments.Order = comments, commentOrder
		m.Notifications.Notifications, m.Notifications.Order = notifications, notificationOrder
		m.RolledBack++
		return err
	}
	return nil
}

// MockStore bundles wired mock repositories
type MockStore struct {
	Users         *MockUserRepository
	Comments      *MockCommentRepository
	Notifications *MockNotificationRepository
	Tx            *MockTransactor
	Repos         *repository.Repositories
}

// NewMockStore creates mock repositories that join against each other
func NewMockStore() *MockStore {
	users := NewMockUserRepository()
	comments := NewMockCommentRepository(users)
	notifications := NewMockNotificationRepository(comments)

	repos := &repository.Repositories{
		User:         users,
		Comment:      comments,
		Notification: notifications,
	}
	tx := &MockTransactor{Repos: repos, Comments: comments, Notifications: notifications}
	repos.Tx = tx

	return &MockStore{
		Users:         users,
		Comments:      comments,
		Notifications: notifications,
		Tx:            tx,
		Repos:         repos,
	}
}

// AddUser stores a user with the given id and username
func (s *MockStore) AddUser(id, username string) *models.User {
	u := &models.User{ID: id, Username: username, Email: username + "@example.com"}
	s.Users.Users[id] = u
	return u
}
