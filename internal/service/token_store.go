package service

import (
	"context"
	"fmt"
	"time"

	"healthsync-api/pkg/jwt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// TokenStore tracks issued token IDs so tokens can be revoked before expiry.
type TokenStore interface {
	Store(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string, ttl time.Duration) error
	Exists(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) (bool, error)
	Revoke(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) error
	RevokeAll(ctx context.Context, userID uuid.UUID) error
}

type redisTokenStore struct {
	redisClient *redis.Client
}

func NewRedisTokenStore(redisClient *redis.Client) TokenStore {
	return &redisTokenStore{redisClient: redisClient}
}

func tokenKey(tokenType jwt.TokenType, userID uuid.UUID, tokenID string) string {
	return fmt.Sprintf("%s_token:%s:%s", tokenType, userID.String(), tokenID)
}

func (s *redisTokenStore) Store(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string, ttl time.Duration) error {
	return s.redisClient.Set(ctx, tokenKey(tokenType, userID, tokenID), "valid", ttl).Err()
}

func (s *redisTokenStore) Exists(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) (bool, error) {
	exists, err := s.redisClient.Exists(ctx, tokenKey(tokenType, userID, tokenID)).Result()
	if err != nil {
		return false, err
	}
	return exists > 0, nil
}

func (s *redisTokenStore) Revoke(ctx context.Context, tokenType jwt.TokenType, userID uuid.UUID, tokenID string) error {
	return s.redisClient.Del(ctx, tokenKey(tokenType, userID, tokenID)).Err()
}

// RevokeAll revokes every token of a user (password reset or account compromise)
func (s *redisTokenStore) RevokeAll(ctx context.Context, userID uuid.UUID) error {
	for _, tokenType := range []jwt.TokenType{jwt.AccessToken, jwt.RefreshToken} {
		pattern := tokenKey(tokenType, userID, "*")
		iter := s.redisClient.Scan(ctx, 0, pattern, 100).Iterator()

		var keys []string
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("scan %s: %w", pattern, err)
		}

		if len(keys) > 0 {
			if err := s.redisClient.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("delete %s tokens: %w", tokenType, err)
			}
		}
	}
	return nil
}
