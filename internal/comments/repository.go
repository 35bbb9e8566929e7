// internal/comments/repository.go
// Data access layer for comments and comment likes

package comments

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/beegin-app/beegin-backend/internal/profile"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrAlreadyLiked    = errors.New("comment already liked")
)

// Repository defines comment data operations
type Repository interface {
	Create(ctx context.Context, comment *Comment) error
	GetByID(ctx context.Context, id int64) (*Comment, error)
	Update(ctx context.Context, id int64, content string) error
	Delete(ctx context.Context, id int64) error

	ListByPost(ctx context.Context, postID int64, limit, offset int) ([]*Comment, error)
	CountByPost(ctx context.Context, postID int64) (int, error)
	ListReplies(ctx context.Context, parentID int64, limit, offset int) ([]*Comment, error)
	CountReplies(ctx context.Context, parentID int64) (int, error)

	InsertLike(ctx context.Context, commentID, userID int64) error
	DeleteLike(ctx context.Context, commentID, userID int64) (bool, error)
	IsLiked(ctx context.Context, commentID, userID int64) (bool, error)
	ListLikers(ctx context.Context, commentID int64, limit, offset int) ([]*profile.Summary, error)
	CountLikers(ctx context.Context, commentID int64) (int, error)

	IncrementLikes(ctx context.Context, commentID int64, delta int) error
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a PostgreSQL comment repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const commentSelect = `
	SELECT c.id, c.post_id, c.user_id, c.parent_id, c.content, c.num_likes, c.created_at,
	       (SELECT COUNT(*) FROM comments r WHERE r.parent_id = c.id) AS num_replies,
	       u.id AS author_id, u.display_name AS author_name,
	       u.avatar AS author_avatar, u.slug AS author_slug
	FROM comments c
	JOIN users u ON u.id = c.user_id`

type commentRow struct {
	Comment
	AuthorID     int64  `db:"author_id"`
	AuthorName   string `db:"author_name"`
	AuthorAvatar string `db:"author_avatar"`
	AuthorSlug   string `db:"author_slug"`
}

func (row *commentRow) toComment() *Comment {
	comment := row.Comment
	comment.Author = &profile.Summary{
		ID:          row.AuthorID,
		DisplayName: row.AuthorName,
		Avatar:      row.AuthorAvatar,
		Slug:        row.AuthorSlug,
	}
	return &comment
}

func (r *postgresRepository) selectComments(ctx context.Context, q string, args ...interface{}) ([]*Comment, error) {
	var rows []*commentRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}

	comments := make([]*Comment, len(rows))
	for i, row := range rows {
		comments[i] = row.toComment()
	}
	return comments, nil
}

func (r *postgresRepository) Create(ctx context.Context, comment *Comment) error {
	q := `
		INSERT INTO comments (post_id, user_id, parent_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, num_likes, created_at`

	err := r.db.QueryRowContext(ctx, q,
		comment.PostID, comment.UserID, comment.ParentID, comment.Content,
	).Scan(&comment.ID, &comment.NumLikes, &comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create comment: %w", err)
	}
	return nil
}

func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Comment, error) {
	var row commentRow
	err := r.db.GetContext(ctx, &row, commentSelect+` WHERE c.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrCommentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return row.toComment(), nil
}

func (r *postgresRepository) Update(ctx context.Context, id int64, content string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE comments SET content = $2 WHERE id = $1`, id, content); err != nil {
		return fmt.Errorf("failed to update comment: %w", err)
	}
	return nil
}

// Delete removes the comment row; replies go with it via the
// parent_id cascade.
func (r *postgresRepository) Delete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByPost(ctx context.Context, postID int64, limit, offset int) ([]*Comment, error) {
	q := commentSelect + `
		WHERE c.post_id = $1 AND c.parent_id IS NULL
		ORDER BY c.created_at DESC
		LIMIT $2 OFFSET $3`
	return r.selectComments(ctx, q, postID, limit, offset)
}

func (r *postgresRepository) CountByPost(ctx context.Context, postID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM comments WHERE post_id = $1 AND parent_id IS NULL`, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to count comments: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) ListReplies(ctx context.Context, parentID int64, limit, offset int) ([]*Comment, error) {
	q := commentSelect + `
		WHERE c.parent_id = $1
		ORDER BY c.created_at ASC
		LIMIT $2 OFFSET $3`
	return r.selectComments(ctx, q, parentID, limit, offset)
}

func (r *postgresRepository) CountReplies(ctx context.Context, parentID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM comments WHERE parent_id = $1`, parentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count replies: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) InsertLike(ctx context.Context, commentID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO comment_likes (comment_id, user_id) VALUES ($1, $2)`, commentID, userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyLiked
		}
		return fmt.Errorf("failed to insert comment like: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteLike(ctx context.Context, commentID, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM comment_likes WHERE comment_id = $1 AND user_id = $2`, commentID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete comment like: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check deleted comment like: %w", err)
	}
	return rows > 0, nil
}

func (r *postgresRepository) IsLiked(ctx context.Context, commentID, userID int64) (bool, error) {
	var liked bool
	err := r.db.GetContext(ctx, &liked,
		`SELECT EXISTS (SELECT 1 FROM comment_likes WHERE comment_id = $1 AND user_id = $2)`,
		commentID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check comment like status: %w", err)
	}
	return liked, nil
}

func (r *postgresRepository) ListLikers(ctx context.Context, commentID int64, limit, offset int) ([]*profile.Summary, error) {
	q := `
		SELECT u.id, u.display_name, u.avatar, u.slug
		FROM comment_likes cl
		JOIN users u ON u.id = cl.user_id
		WHERE cl.comment_id = $1
		ORDER BY cl.created_at DESC
		LIMIT $2 OFFSET $3`

	likers := []*profile.Summary{}
	if err := r.db.SelectContext(ctx, &likers, q, commentID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list comment likers: %w", err)
	}
	return likers, nil
}

func (r *postgresRepository) CountLikers(ctx context.Context, commentID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM comment_likes WHERE comment_id = $1`, commentID)
	if err != nil {
		return 0, fmt.Errorf("failed to count comment likers: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) IncrementLikes(ctx context.Context, commentID int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE comments SET num_likes = num_likes + $2 WHERE id = $1`, commentID, delta)
	if err != nil {
		return fmt.Errorf("failed to update comment like counter: %w", err)
	}
	return nil
}
