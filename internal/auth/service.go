// internal/auth/service.go
// Token validation backed by Redis revocation checks

package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-redis/redis/v8"

	"github.com/beegin-app/beegin-backend/internal/common/utils"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenRevoked = errors.New("token has been revoked")
)

// Service validates bearer tokens for the HTTP middleware
type Service interface {
	ValidateToken(ctx context.Context, tokenString string) (*utils.JWTClaims, error)
}

type service struct {
	jwtSecret   string
	redisClient *redis.Client
}

// NewService creates an auth service. The Redis client is optional;
// without it revocation checks are skipped.
func NewService(jwtSecret string, redisClient *redis.Client) Service {
	return &service{
		jwtSecret:   jwtSecret,
		redisClient: redisClient,
	}
}

func (s *service) ValidateToken(ctx context.Context, tokenString string) (*utils.JWTClaims, error) {
	claims, err := utils.ValidateJWT(tokenString, s.jwtSecret)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if claims.Type != "" && claims.Type != "access" {
		return nil, ErrInvalidToken
	}

	if s.redisClient != nil && claims.TokenID != "" {
		key := fmt.Sprintf("auth:revoked:%s", claims.TokenID)
		exists, err := s.redisClient.Exists(ctx, key).Result()
		if err == nil && exists > 0 {
			return nil, ErrTokenRevoked
		}
	}

	return claims, nil
}
