package repository

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/threaded-comments-api/internal/database"
	"github.com/threaded-comments-api/internal/models"
)

const commentSelect = `
	SELECT c.id, c.content, c.author_id, u.username, c.parent_id,
		c.is_deleted, c.deleted_at, c.created_at, c.updated_at
	FROM comments c
	JOIN users u ON u.id = c.author_id
`

// commentRepo is the concrete implementation of CommentRepository
type commentRepo struct {
	db database.Querier
}

// NewCommentRepo creates a new comment repository
func NewCommentRepo(db database.Querier) CommentRepository {
	return &commentRepo{db: db}
}

// Create inserts a new comment
func (r *commentRepo) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (id, content, author_id, parent_id, is_deleted, deleted_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.ID, comment.Content, comment.AuthorID, comment.ParentID,
		comment.IsDeleted, comment.DeletedAt, comment.CreatedAt, comment.UpdatedAt,
	)
	return err
}

// Update persists the mutable state of a comment. Identity, author and
// parent are never written.
func (r *commentRepo) Update(ctx context.Context, comment *models.Comment) error {
	query := `
		UPDATE comments SET content = $1, is_deleted = $2, deleted_at = $3, updated_at = $4
		WHERE id = $5
	`
	_, err := r.db.ExecContext(ctx, query,
		comment.Content, comment.IsDeleted, comment.DeletedAt, comment.UpdatedAt, comment.ID,
	)
	return err
}

// GetByID retrieves a comment with its author
func (r *commentRepo) GetByID(ctx context.Context, id string) (*models.Comment, error) {
	comment, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+` WHERE c.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// ListRoots returns root comments in insertion order
func (r *commentRepo) ListRoots(ctx context.Context, includeDeleted bool) ([]*models.Comment, error) {
	query := commentSelect + `
		WHERE c.parent_id IS NULL AND ($1 OR NOT c.is_deleted)
		ORDER BY c.seq
	`
	return r.list(ctx, query, includeDeleted)
}

// ListByParentIDs returns the direct replies of the given comments in insertion order
func (r *commentRepo) ListByParentIDs(ctx context.Context, parentIDs []string, includeDeleted bool) ([]*models.Comment, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	query := commentSelect + `
		WHERE c.parent_id = ANY($1::uuid[]) AND ($2 OR NOT c.is_deleted)
		ORDER BY c.seq
	`
	return r.list(ctx, query, pq.Array(parentIDs), includeDeleted)
}

// Count returns the total number of comments
func (r *commentRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM comments").Scan(&count)
	return count, err
}

func (r *commentRepo) list(ctx context.Context, query string, args ...any) ([]*models.Comment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	comments := make([]*models.Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		comments = append(comments, comment)
	}

	return comments, rows.Err()
}

func scanComment(row scanner) (*models.Comment, error) {
	var comment models.Comment
	var author models.Author
	var parentID sql.NullString
	var deletedAt sql.NullTime

	err := row.Scan(
		&comment.ID, &comment.Content, &comment.AuthorID, &author.Username, &parentID,
		&comment.IsDeleted, &deletedAt, &comment.CreatedAt, &comment.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	author.ID = comment.AuthorID
	comment.Author = &author
	if parentID.Valid {
		comment.ParentID = &parentID.String
	}
	if deletedAt.Valid {
		comment.DeletedAt = &deletedAt.Time
	}
	return &comment, nil
}
