package posts

import (
	"context"
	"net/url"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/beegin-app/beegin-backend/internal/common/query"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func postRowColumns() []string {
	return []string{
		"id", "user_id", "content", "images", "parent_id",
		"num_likes", "num_comments", "num_shares", "is_active", "created_at",
		"author_id", "author_name", "author_avatar", "author_slug",
	}
}

func TestGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM posts p").
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows(postRowColumns()).
			AddRow(int64(7), int64(3), "hello", []byte("{}"), nil,
				2, 1, 0, true, now,
				int64(3), "Ada", "https://cdn.example.com/a.png", "ada"))

	post, err := repo.GetByID(context.Background(), 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), post.ID)
	assert.Equal(t, 2, post.NumLikes)
	assert.True(t, post.IsActive)
	require.NotNil(t, post.Author)
	assert.Equal(t, "ada", post.Author.Slug)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM posts p").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(postRowColumns()))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrPostNotFound)
}

func TestListByAuthorFieldSelection(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	opts := query.Parse(url.Values{"fields": {"content"}})

	// Only the requested payload column is selected; counters stay out
	mock.ExpectQuery(`p.created_at, p.content, u.id AS author_id`).
		WithArgs(int64(3), 100, 0).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "user_id", "parent_id", "is_active", "created_at", "content",
			"author_id", "author_name", "author_avatar", "author_slug",
		}).AddRow(int64(7), int64(3), nil, true, now, "hello",
			int64(3), "Ada", "https://cdn.example.com/a.png", "ada"))

	posts, err := repo.ListByAuthor(context.Background(), 3, opts)
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "hello", posts[0].Content)
	assert.Zero(t, posts[0].NumLikes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListLikersSortable(t *testing.T) {
	repo, mock := newMockRepo(t)
	opts := query.Parse(url.Values{"sort": {"displayName"}})

	mock.ExpectQuery("ORDER BY u.display_name ASC").
		WithArgs(int64(7), 100, 0).
		WillReturnRows(sqlmock.NewRows([]string{"id", "display_name", "avatar", "slug"}).
			AddRow(int64(2), "Ada", "", "ada").
			AddRow(int64(4), "Bola", "", "bola"))

	likers, err := repo.ListLikers(context.Background(), 7, opts)
	require.NoError(t, err)
	require.Len(t, likers, 2)
	assert.Equal(t, "Ada", likers[0].DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertLikeDuplicate(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("INSERT INTO post_likes").
		WithArgs(int64(1), int64(2)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.InsertLike(context.Background(), 1, 2)
	assert.ErrorIs(t, err, ErrAlreadyLiked)
}

func TestDeleteLikeReportsMissing(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("DELETE FROM post_likes").
		WithArgs(int64(1), int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	deleted, err := repo.DeleteLike(context.Background(), 1, 2)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestRecomputeShareCount(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("UPDATE posts").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"num_shares"}).AddRow(3))

	count, err := repo.RecomputeShareCount(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSoftDelete(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectExec("UPDATE posts SET is_active = FALSE").
		WithArgs(int64(9)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SoftDelete(context.Background(), 9))
	assert.NoError(t, mock.ExpectationsWereMet())
}
