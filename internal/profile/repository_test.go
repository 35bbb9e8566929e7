package profile

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func profileColumns() []string {
	return []string{"id", "email", "display_name", "avatar", "slug", "bio", "role", "created_at", "updated_at"}
}

func TestGetByID(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM users").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(profileColumns()).
			AddRow(int64(3), "ada@example.com", "Ada", "", "ada", "", "user", now, now))

	got, err := repo.GetByID(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)
	assert.Equal(t, "ada", got.Slug)
}

func TestGetByIDNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("FROM users").
		WithArgs(int64(404)).
		WillReturnRows(sqlmock.NewRows(profileColumns()))

	_, err := repo.GetByID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrProfileNotFound)
}

func TestUpdateOnlyTouchesProvidedFields(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()
	name := "Ada L"

	mock.ExpectQuery(`UPDATE users SET display_name = \$1, updated_at = NOW\(\)`).
		WithArgs(name, int64(3)).
		WillReturnRows(sqlmock.NewRows(profileColumns()).
			AddRow(int64(3), "ada@example.com", name, "", "ada", "", "user", now, now))

	got, err := repo.Update(context.Background(), 3, &UpdateProfileRequest{DisplayName: &name})
	require.NoError(t, err)
	assert.Equal(t, name, got.DisplayName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateWithoutFieldsReadsBack(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Now()

	mock.ExpectQuery("FROM users").
		WithArgs(int64(3)).
		WillReturnRows(sqlmock.NewRows(profileColumns()).
			AddRow(int64(3), "ada@example.com", "Ada", "", "ada", "", "user", now, now))

	got, err := repo.Update(context.Background(), 3, &UpdateProfileRequest{})
	require.NoError(t, err)
	assert.Equal(t, "Ada", got.DisplayName)
}
