// internal/profile/repository.go
// Data access layer for user profiles

package profile

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

var ErrProfileNotFound = errors.New("profile not found")

// Repository defines profile data operations
type Repository interface {
	GetByID(ctx context.Context, userID int64) (*Profile, error)
	GetSummary(ctx context.Context, userID int64) (*Summary, error)
	GetSummaries(ctx context.Context, userIDs []int64) (map[int64]*Summary, error)
	Update(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error)
	Search(ctx context.Context, term string, limit, offset int) ([]*Summary, error)
	CountSearch(ctx context.Context, term string) (int, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

// NewRepository creates a PostgreSQL profile repository
func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetByID(ctx context.Context, userID int64) (*Profile, error) {
	var profile Profile
	query := `
		SELECT id, email, display_name, avatar, slug, bio, role, created_at, updated_at
		FROM users
		WHERE id = $1`

	err := r.db.GetContext(ctx, &profile, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	return &profile, nil
}

func (r *postgresRepository) GetSummary(ctx context.Context, userID int64) (*Summary, error) {
	var summary Summary
	query := `SELECT id, display_name, avatar, slug FROM users WHERE id = $1`

	err := r.db.GetContext(ctx, &summary, query, userID)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user summary: %w", err)
	}

	return &summary, nil
}

func (r *postgresRepository) GetSummaries(ctx context.Context, userIDs []int64) (map[int64]*Summary, error) {
	if len(userIDs) == 0 {
		return map[int64]*Summary{}, nil
	}

	query, args, err := sqlx.In(
		`SELECT id, display_name, avatar, slug FROM users WHERE id IN (?)`, userIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build summary query: %w", err)
	}
	query = r.db.Rebind(query)

	var summaries []*Summary
	if err := r.db.SelectContext(ctx, &summaries, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get user summaries: %w", err)
	}

	result := make(map[int64]*Summary, len(summaries))
	for _, s := range summaries {
		result[s.ID] = s
	}
	return result, nil
}

func (r *postgresRepository) Update(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error) {
	setClauses := []string{}
	args := []interface{}{}
	argCount := 1

	if req.DisplayName != nil {
		setClauses = append(setClauses, fmt.Sprintf("display_name = $%d", argCount))
		args = append(args, *req.DisplayName)
		argCount++
	}
	if req.Avatar != nil {
		setClauses = append(setClauses, fmt.Sprintf("avatar = $%d", argCount))
		args = append(args, *req.Avatar)
		argCount++
	}
	if req.Bio != nil {
		setClauses = append(setClauses, fmt.Sprintf("bio = $%d", argCount))
		args = append(args, *req.Bio)
		argCount++
	}

	if len(setClauses) == 0 {
		return r.GetByID(ctx, userID)
	}

	setClauses = append(setClauses, "updated_at = NOW()")
	args = append(args, userID)

	query := fmt.Sprintf(`
		UPDATE users SET %s
		WHERE id = $%d
		RETURNING id, email, display_name, avatar, slug, bio, role, created_at, updated_at`,
		strings.Join(setClauses, ", "), argCount)

	var profile Profile
	err := r.db.GetContext(ctx, &profile, query, args...)
	if err == sql.ErrNoRows {
		return nil, ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	return &profile, nil
}

func (r *postgresRepository) Search(ctx context.Context, term string, limit, offset int) ([]*Summary, error) {
	query := `
		SELECT id, display_name, avatar, slug
		FROM users
		WHERE display_name ILIKE $1 OR slug ILIKE $1
		ORDER BY display_name ASC
		LIMIT $2 OFFSET $3`

	summaries := []*Summary{}
	pattern := "%" + term + "%"
	if err := r.db.SelectContext(ctx, &summaries, query, pattern, limit, offset); err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}

	return summaries, nil
}

func (r *postgresRepository) CountSearch(ctx context.Context, term string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM users WHERE display_name ILIKE $1 OR slug ILIKE $1`

	if err := r.db.GetContext(ctx, &count, query, "%"+term+"%"); err != nil {
		return 0, fmt.Errorf("failed to count user search: %w", err)
	}

	return count, nil
}
