// internal/posts/repository.go
// Data access layer for posts, shares and post likes

package posts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/beegin-app/beegin-backend/internal/common/query"
	"github.com/beegin-app/beegin-backend/internal/profile"
)

var (
	ErrPostNotFound = errors.New("post not found")
	ErrAlreadyLiked = errors.New("post already liked")
)

// postColumns whitelists the fields clients may filter and sort on
var postColumns = map[string]string{
	"createdAt":   "p.created_at",
	"numLikes":    "p.num_likes",
	"numComments": "p.num_comments",
	"numShares":   "p.num_shares",
	"content":     "p.content",
}

// postFieldColumns whitelists the payload fields clients may include
// or drop with ?fields=. Identity, visibility and ordering columns are
// always selected.
var postFieldColumns = map[string]string{
	"content":     "p.content",
	"images":      "p.images",
	"numLikes":    "p.num_likes",
	"numComments": "p.num_comments",
	"numShares":   "p.num_shares",
}

var postDefaultFields = []string{
	"p.content", "p.images", "p.num_likes", "p.num_comments", "p.num_shares",
}

// likerColumns whitelists sortable fields of a likers listing
var likerColumns = map[string]string{
	"createdAt":   "pl.created_at",
	"displayName": "u.display_name",
}

// Repository defines post data operations
type Repository interface {
	Create(ctx context.Context, post *Post) error
	GetByID(ctx context.Context, id int64) (*Post, error)
	ParentSummary(ctx context.Context, id int64) (*ParentPost, error)
	Update(ctx context.Context, id int64, req *UpdatePostRequest) error
	SoftDelete(ctx context.Context, id int64) error

	ListByAuthor(ctx context.Context, authorID int64, opts *query.Options) ([]*Post, error)
	CountByAuthor(ctx context.Context, authorID int64, opts *query.Options) (int, error)
	ListSharedBy(ctx context.Context, userID int64, opts *query.Options) ([]*Post, error)
	CountSharedBy(ctx context.Context, userID int64, opts *query.Options) (int, error)
	ListLikedBy(ctx context.Context, userID int64, opts *query.Options) ([]*Post, error)
	CountLikedBy(ctx context.Context, userID int64, opts *query.Options) (int, error)
	ListShares(ctx context.Context, parentID int64, opts *query.Options) ([]*Post, error)
	CountShares(ctx context.Context, parentID int64, opts *query.Options) (int, error)
	Random(ctx context.Context, limit int) ([]*Post, error)
	Search(ctx context.Context, pattern string, mediaOnly bool, limit, offset int) ([]*Post, error)
	CountSearch(ctx context.Context, pattern string, mediaOnly bool) (int, error)

	InsertLike(ctx context.Context, postID, userID int64) error
	DeleteLike(ctx context.Context, postID, userID int64) (bool, error)
	IsLiked(ctx context.Context, postID, userID int64) (bool, error)
	ListLikers(ctx context.Context, postID int64, opts *query.Options) ([]*profile.Summary, error)
	CountLikers(ctx context.Context, postID int64) (int, error)

	IncrementLikes(ctx context.Context, postID int64, delta int) error
	IncrementComments(ctx context.Context, postID int64, delta int) error
	RecomputeShareCount(ctx context.Context, parentID int64) (int, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a PostgreSQL post repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

const postSelect = `
	SELECT p.id, p.user_id, p.content, p.images, p.parent_id,
	       p.num_likes, p.num_comments, p.num_shares, p.is_active, p.created_at,
	       u.id AS author_id, u.display_name AS author_name,
	       u.avatar AS author_avatar, u.slug AS author_slug
	FROM posts p
	JOIN users u ON u.id = p.user_id`

// postProjection renders the select list for a post listing, honoring
// the request's field selection. Columns left out simply come back as
// zero values, so the row struct never changes shape.
func postProjection(opts *query.Options) string {
	cols := append([]string{"p.id", "p.user_id", "p.parent_id", "p.is_active", "p.created_at"},
		opts.Columns(postFieldColumns, postDefaultFields)...)
	cols = append(cols,
		"u.id AS author_id", "u.display_name AS author_name",
		"u.avatar AS author_avatar", "u.slug AS author_slug")
	return "SELECT " + strings.Join(cols, ", ")
}

// postRow carries a post plus its flattened author columns
type postRow struct {
	Post
	AuthorID     int64  `db:"author_id"`
	AuthorName   string `db:"author_name"`
	AuthorAvatar string `db:"author_avatar"`
	AuthorSlug   string `db:"author_slug"`
}

func (row *postRow) toPost() *Post {
	post := row.Post
	post.Author = &profile.Summary{
		ID:          row.AuthorID,
		DisplayName: row.AuthorName,
		Avatar:      row.AuthorAvatar,
		Slug:        row.AuthorSlug,
	}
	return &post
}

func (r *postgresRepository) selectPosts(ctx context.Context, q string, args ...interface{}) ([]*Post, error) {
	var rows []*postRow
	if err := r.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	posts := make([]*Post, len(rows))
	for i, row := range rows {
		posts[i] = row.toPost()
	}
	return posts, nil
}

func (r *postgresRepository) Create(ctx context.Context, post *Post) error {
	q := `
		INSERT INTO posts (user_id, content, images, parent_id)
		VALUES ($1, $2, $3, $4)
		RETURNING id, num_likes, num_comments, num_shares, is_active, created_at`

	err := r.db.QueryRowContext(ctx, q,
		post.UserID, post.Content, pq.Array(post.Images), post.ParentID,
	).Scan(&post.ID, &post.NumLikes, &post.NumComments, &post.NumShares, &post.IsActive, &post.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}

	return nil
}

// GetByID returns the post regardless of its active state; callers
// decide how to treat soft-deleted rows.
func (r *postgresRepository) GetByID(ctx context.Context, id int64) (*Post, error) {
	var row postRow
	err := r.db.GetContext(ctx, &row, postSelect+` WHERE p.id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}

	return row.toPost(), nil
}

func (r *postgresRepository) ParentSummary(ctx context.Context, id int64) (*ParentPost, error) {
	var row struct {
		ParentPost
		AuthorID     int64  `db:"author_id"`
		AuthorName   string `db:"author_name"`
		AuthorAvatar string `db:"author_avatar"`
		AuthorSlug   string `db:"author_slug"`
	}

	q := `
		SELECT p.id, p.user_id, p.content, p.images, p.is_active, p.created_at,
		       u.id AS author_id, u.display_name AS author_name,
		       u.avatar AS author_avatar, u.slug AS author_slug
		FROM posts p
		JOIN users u ON u.id = p.user_id
		WHERE p.id = $1`

	err := r.db.GetContext(ctx, &row, q, id)
	if err == sql.ErrNoRows {
		return nil, ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get parent post: %w", err)
	}

	parent := row.ParentPost
	parent.Author = &profile.Summary{
		ID:          row.AuthorID,
		DisplayName: row.AuthorName,
		Avatar:      row.AuthorAvatar,
		Slug:        row.AuthorSlug,
	}
	return &parent, nil
}

func (r *postgresRepository) Update(ctx context.Context, id int64, req *UpdatePostRequest) error {
	setClauses := []string{}
	args := []interface{}{}
	argCount := 1

	if req.Content != nil {
		setClauses = append(setClauses, fmt.Sprintf("content = $%d", argCount))
		args = append(args, *req.Content)
		argCount++
	}
	if req.Images != nil {
		setClauses = append(setClauses, fmt.Sprintf("images = $%d", argCount))
		args = append(args, pq.Array(*req.Images))
		argCount++
	}

	if len(setClauses) == 0 {
		return nil
	}

	args = append(args, id)
	q := fmt.Sprintf("UPDATE posts SET %s WHERE id = $%d",
		strings.Join(setClauses, ", "), argCount)

	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return nil
}

func (r *postgresRepository) SoftDelete(ctx context.Context, id int64) error {
	if _, err := r.db.ExecContext(ctx, `UPDATE posts SET is_active = FALSE WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return nil
}

func (r *postgresRepository) ListByAuthor(ctx context.Context, authorID int64, opts *query.Options) ([]*Post, error) {
	q := postProjection(opts) + `
	FROM posts p
	JOIN users u ON u.id = p.user_id
	WHERE p.user_id = $1 AND p.is_active = TRUE`
	args := []interface{}{authorID}

	where, whereArgs, next := opts.Where(postColumns, 2)
	q += where
	args = append(args, whereArgs...)

	q += opts.OrderBy(postColumns, "p.created_at DESC")
	limit, offset := opts.LimitOffset()
	q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)
	args = append(args, limit, offset)

	return r.selectPosts(ctx, q, args...)
}

func (r *postgresRepository) CountByAuthor(ctx context.Context, authorID int64, opts *query.Options) (int, error) {
	q := `SELECT COUNT(*) FROM posts p WHERE p.user_id = $1 AND p.is_active = TRUE`
	args := []interface{}{authorID}

	where, whereArgs, _ := opts.Where(postColumns, 2)
	q += where
	args = append(args, whereArgs...)

	var count int
	if err := r.db.GetContext(ctx, &count, q, args...); err != nil {
		return 0, fmt.Errorf("failed to count posts: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) ListSharedBy(ctx context.Context, userID int64, opts *query.Options) ([]*Post, error) {
	q := postProjection(opts) + `
	FROM posts p
	JOIN users u ON u.id = p.user_id
	WHERE p.user_id = $1 AND p.parent_id IS NOT NULL AND p.is_active = TRUE`
	args := []interface{}{userID}

	where, whereArgs, next := opts.Where(postColumns, 2)
	q += where
	args = append(args, whereArgs...)

	q += opts.OrderBy(postColumns, "p.created_at DESC")
	limit, offset := opts.LimitOffset()
	q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)
	args = append(args, limit, offset)

	return r.selectPosts(ctx, q, args...)
}

func (r *postgresRepository) CountSharedBy(ctx context.Context, userID int64, opts *query.Options) (int, error) {
	q := `SELECT COUNT(*) FROM posts p WHERE p.user_id = $1 AND p.parent_id IS NOT NULL AND p.is_active = TRUE`
	args := []interface{}{userID}

	where, whereArgs, _ := opts.Where(postColumns, 2)
	q += where
	args = append(args, whereArgs...)

	var count int
	if err := r.db.GetContext(ctx, &count, q, args...); err != nil {
		return 0, fmt.Errorf("failed to count shares: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) ListLikedBy(ctx context.Context, userID int64, opts *query.Options) ([]*Post, error) {
	q := postProjection(opts) + `
	FROM post_likes pl
	JOIN posts p ON p.id = pl.post_id
	JOIN users u ON u.id = p.user_id
	WHERE pl.user_id = $1 AND p.is_active = TRUE`
	args := []interface{}{userID}

	where, whereArgs, next := opts.Where(postColumns, 2)
	q += where
	args = append(args, whereArgs...)

	q += ` ORDER BY pl.created_at DESC`
	limit, offset := opts.LimitOffset()
	q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)
	args = append(args, limit, offset)

	return r.selectPosts(ctx, q, args...)
}

func (r *postgresRepository) CountLikedBy(ctx context.Context, userID int64, opts *query.Options) (int, error) {
	q := `
	SELECT COUNT(*)
	FROM post_likes pl
	JOIN posts p ON p.id = pl.post_id
	WHERE pl.user_id = $1 AND p.is_active = TRUE`
	args := []interface{}{userID}

	where, whereArgs, _ := opts.Where(postColumns, 2)
	q += where
	args = append(args, whereArgs...)

	var count int
	if err := r.db.GetContext(ctx, &count, q, args...); err != nil {
		return 0, fmt.Errorf("failed to count liked posts: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) ListShares(ctx context.Context, parentID int64, opts *query.Options) ([]*Post, error) {
	q := postProjection(opts) + `
	FROM posts p
	JOIN users u ON u.id = p.user_id
	WHERE p.parent_id = $1 AND p.is_active = TRUE`
	args := []interface{}{parentID}

	where, whereArgs, next := opts.Where(postColumns, 2)
	q += where
	args = append(args, whereArgs...)

	q += opts.OrderBy(postColumns, "p.created_at DESC")
	limit, offset := opts.LimitOffset()
	q += fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)
	args = append(args, limit, offset)

	return r.selectPosts(ctx, q, args...)
}

func (r *postgresRepository) CountShares(ctx context.Context, parentID int64, opts *query.Options) (int, error) {
	q := `SELECT COUNT(*) FROM posts p WHERE p.parent_id = $1 AND p.is_active = TRUE`
	args := []interface{}{parentID}

	where, whereArgs, _ := opts.Where(postColumns, 2)
	q += where
	args = append(args, whereArgs...)

	var count int
	if err := r.db.GetContext(ctx, &count, q, args...); err != nil {
		return 0, fmt.Errorf("failed to count post shares: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) Random(ctx context.Context, limit int) ([]*Post, error) {
	q := postSelect + ` WHERE p.is_active = TRUE ORDER BY random() LIMIT $1`
	return r.selectPosts(ctx, q, limit)
}

// Search matches whole words using POSIX word boundaries; the pattern
// is expected to be pre-quoted by the service.
func (r *postgresRepository) Search(ctx context.Context, pattern string, mediaOnly bool, limit, offset int) ([]*Post, error) {
	q := postSelect + ` WHERE p.is_active = TRUE AND p.content ~* $1`
	if mediaOnly {
		q += ` AND COALESCE(array_length(p.images, 1), 0) > 0`
	}
	q += ` ORDER BY p.created_at DESC LIMIT $2 OFFSET $3`

	return r.selectPosts(ctx, q, pattern, limit, offset)
}

func (r *postgresRepository) CountSearch(ctx context.Context, pattern string, mediaOnly bool) (int, error) {
	q := `SELECT COUNT(*) FROM posts p WHERE p.is_active = TRUE AND p.content ~* $1`
	if mediaOnly {
		q += ` AND COALESCE(array_length(p.images, 1), 0) > 0`
	}

	var count int
	if err := r.db.GetContext(ctx, &count, q, pattern); err != nil {
		return 0, fmt.Errorf("failed to count search results: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) InsertLike(ctx context.Context, postID, userID int64) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO post_likes (post_id, user_id) VALUES ($1, $2)`, postID, userID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrAlreadyLiked
		}
		return fmt.Errorf("failed to insert like: %w", err)
	}
	return nil
}

func (r *postgresRepository) DeleteLike(ctx context.Context, postID, userID int64) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM post_likes WHERE post_id = $1 AND user_id = $2`, postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete like: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check deleted like: %w", err)
	}
	return rows > 0, nil
}

func (r *postgresRepository) IsLiked(ctx context.Context, postID, userID int64) (bool, error) {
	var liked bool
	err := r.db.GetContext(ctx, &liked,
		`SELECT EXISTS (SELECT 1 FROM post_likes WHERE post_id = $1 AND user_id = $2)`,
		postID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to check like status: %w", err)
	}
	return liked, nil
}

func (r *postgresRepository) ListLikers(ctx context.Context, postID int64, opts *query.Options) ([]*profile.Summary, error) {
	q := `
		SELECT u.id, u.display_name, u.avatar, u.slug
		FROM post_likes pl
		JOIN users u ON u.id = pl.user_id
		WHERE pl.post_id = $1`
	q += opts.OrderBy(likerColumns, "pl.created_at DESC")
	q += ` LIMIT $2 OFFSET $3`
	limit, offset := opts.LimitOffset()

	likers := []*profile.Summary{}
	if err := r.db.SelectContext(ctx, &likers, q, postID, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to list likers: %w", err)
	}
	return likers, nil
}

func (r *postgresRepository) CountLikers(ctx context.Context, postID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM post_likes WHERE post_id = $1`, postID)
	if err != nil {
		return 0, fmt.Errorf("failed to count likers: %w", err)
	}
	return count, nil
}

func (r *postgresRepository) IncrementLikes(ctx context.Context, postID int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET num_likes = num_likes + $2 WHERE id = $1`, postID, delta)
	if err != nil {
		return fmt.Errorf("failed to update like counter: %w", err)
	}
	return nil
}

func (r *postgresRepository) IncrementComments(ctx context.Context, postID int64, delta int) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE posts SET num_comments = num_comments + $2 WHERE id = $1`, postID, delta)
	if err != nil {
		return fmt.Errorf("failed to update comment counter: %w", err)
	}
	return nil
}

// RecomputeShareCount resets num_shares from the actual child rows.
// The count includes soft-deleted shares on purpose: the counter is a
// record of share events, not of currently visible shares.
func (r *postgresRepository) RecomputeShareCount(ctx context.Context, parentID int64) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		UPDATE posts
		SET num_shares = (SELECT COUNT(*) FROM posts s WHERE s.parent_id = $1)
		WHERE id = $1
		RETURNING num_shares`, parentID).Scan(&count)
	if err == sql.ErrNoRows {
		return 0, ErrPostNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to recompute share count: %w", err)
	}
	return count, nil
}
