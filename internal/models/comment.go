package models

import (
	"time"
)

const (
	// DefaultEditWindow is how long after creation a comment stays editable
	DefaultEditWindow = 15 * time.Minute
	// DefaultRestoreWindow is how long after deletion a comment stays restorable
	DefaultRestoreWindow = 15 * time.Minute
)

// Author is the public view of a comment's owner
type Author struct {
	ID       string `json:"id" db:"author_id"`
	Username string `json:"username" db:"username"`
}

// Comment represents a node in a comment thread.
// ParentID is a lookup key only; replies are materialized on read.
type Comment struct {
	ID          string     `json:"id" db:"id"`
	Content     string     `json:"content" db:"content"`
	ContentHTML string     `json:"content_html,omitempty" db:"-"`
	AuthorID    string     `json:"author_id" db:"author_id"`
	Author      *Author    `json:"author,omitempty" db:"-"`
	ParentID    *string    `json:"parent_id" db:"parent_id"`
	Parent      *Comment   `json:"parent,omitempty" db:"-"`
	Replies     []*Comment `json:"replies" db:"-"`
	IsDeleted   bool       `json:"is_deleted" db:"is_deleted"`
	DeletedAt   *time.Time `json:"deleted_at" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

// IsRoot reports whether the comment starts a thread
func (c *Comment) IsRoot() bool {
	return c.ParentID == nil
}

// CanBeEdited reports whether the comment is still inside its edit window at now.
// Deleted comments are never editable.
func (c *Comment) CanBeEdited(now time.Time, window time.Duration) bool {
	return !c.IsDeleted && c.CreatedAt.After(now.Add(-window))
}

// CanBeRestored reports whether a deleted comment is still inside its restore window at now
func (c *Comment) CanBeRestored(now time.Time, window time.Duration) bool {
	if !c.IsDeleted || c.DeletedAt == nil {
		return false
	}
	return c.DeletedAt.After(now.Add(-window))
}

// MarkDeleted soft-deletes the comment at now
func (c *Comment) MarkDeleted(now time.Time) {
	deletedAt := now
	c.IsDeleted = true
	c.DeletedAt = &deletedAt
	c.UpdatedAt = now
}

// MarkRestored clears the soft-delete state
func (c *Comment) MarkRestored(now time.Time) {
	c.IsDeleted = false
	c.DeletedAt = nil
	c.UpdatedAt = now
}

// CreateCommentRequest represents a new comment or reply
type CreateCommentRequest struct {
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parent_id,omitempty"`
}

// UpdateCommentRequest represents an edit of a comment's content
type UpdateCommentRequest struct {
	Content string `json:"content" binding:"required"`
}
