// internal/profile/service.go
// Business logic for user profiles

package profile

import (
	"context"
	"errors"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
	"github.com/beegin-app/beegin-backend/internal/common/utils"
)

// Service defines profile business operations
type Service interface {
	GetProfile(ctx context.Context, userID int64) (*Profile, error)
	UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error)
	SearchUsers(ctx context.Context, term string, limit, offset int) ([]*Summary, int, error)
}

type service struct {
	repo Repository
}

// NewService creates a profile service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) GetProfile(ctx context.Context, userID int64) (*Profile, error) {
	profile, err := s.repo.GetByID(ctx, userID)
	if errors.Is(err, ErrProfileNotFound) {
		return nil, apperrors.NotFound("user_not_found", "User does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return profile, nil
}

func (s *service) UpdateProfile(ctx context.Context, userID int64, req *UpdateProfileRequest) (*Profile, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, err
	}

	profile, err := s.repo.Update(ctx, userID, req)
	if errors.Is(err, ErrProfileNotFound) {
		return nil, apperrors.NotFound("user_not_found", "User does not exist")
	}
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	return profile, nil
}

func (s *service) SearchUsers(ctx context.Context, term string, limit, offset int) ([]*Summary, int, error) {
	if term == "" {
		return nil, 0, apperrors.BadRequest("empty_search", "Search term is required")
	}

	users, err := s.repo.Search(ctx, term, limit, offset)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	total, err := s.repo.CountSearch(ctx, term)
	if err != nil {
		return nil, 0, apperrors.Internal(err)
	}

	return users, total, nil
}
