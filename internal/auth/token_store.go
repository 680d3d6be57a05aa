package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"swiftattend/internal/cache"
	"swiftattend/internal/model"
)

const (
	refreshTokenKeyPrefix = "refresh_token:"
	accessTokenKeyPrefix  = "blacklist:access_token:"
)

// TokenStoreInterface defines the interface for token storage operations.
type TokenStoreInterface interface {
	StoreRefreshToken(ctx context.Context, tokenID string, id Identity, ttl time.Duration) error
	GetRefreshToken(ctx context.Context, tokenID string) (Identity, error)
	DeleteRefreshToken(ctx context.Context, tokenID string) error
	BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error
	IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error)
}

// TokenStore handles storage and retrieval of tokens in Redis.
type TokenStore struct {
	cache *cache.Client
}

// Ensure TokenStore implements TokenStoreInterface
var _ TokenStoreInterface = (*TokenStore)(nil)

// NewTokenStore creates a new token store.
func NewTokenStore(cache *cache.Client) *TokenStore {
	return &TokenStore{cache: cache}
}

type storedIdentity struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

// StoreRefreshToken stores a refresh token in Redis with TTL.
func (s *TokenStore) StoreRefreshToken(ctx context.Context, tokenID string, id Identity, ttl time.Duration) error {
	payload, err := json.Marshal(storedIdentity{
		UserID: id.UserID.String(),
		Email:  id.Email,
		Name:   id.Name,
		Role:   string(id.Role),
	})
	if err != nil {
		return fmt.Errorf("marshal token data: %w", err)
	}

	return s.cache.Set(ctx, refreshTokenKeyPrefix+tokenID, payload, ttl)
}

// GetRefreshToken retrieves refresh token data from Redis.
func (s *TokenStore) GetRefreshToken(ctx context.Context, tokenID string) (Identity, error) {
	var stored storedIdentity
	if !s.cache.GetJSON(ctx, refreshTokenKeyPrefix+tokenID, &stored) {
		return Identity{}, fmt.Errorf("refresh token not found")
	}

	userID, err := uuid.Parse(stored.UserID)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid user_id in token data: %w", err)
	}

	return Identity{
		UserID: userID,
		Email:  stored.Email,
		Name:   stored.Name,
		Role:   model.Role(stored.Role),
	}, nil
}

// DeleteRefreshToken removes a refresh token from Redis.
func (s *TokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	return s.cache.Delete(ctx, refreshTokenKeyPrefix+tokenID)
}

// BlacklistAccessToken adds an access token to the blacklist until it expires.
func (s *TokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	return s.cache.Set(ctx, accessTokenKeyPrefix+tokenID, []byte("1"), ttl)
}

// IsAccessTokenBlacklisted checks if an access token is blacklisted.
// Redis outages read as not blacklisted.
func (s *TokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	data, _ := s.cache.Get(ctx, accessTokenKeyPrefix+tokenID)
	return data != nil, nil
}
