package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"swiftattend/internal/model"
)

const (
	// AccessTokenExpiry is the duration for which access tokens are valid.
	AccessTokenExpiry = 15 * time.Minute
	// RefreshTokenExpiry is the duration for which refresh tokens are valid.
	RefreshTokenExpiry = 7 * 24 * time.Hour
)

// Claims represents JWT claims.
type Claims struct {
	UserID uuid.UUID  `json:"user_id"`
	Email  string     `json:"email"`
	Name   string     `json:"name"`
	Role   model.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity is the authenticated caller, as carried by a token.
type Identity struct {
	UserID uuid.UUID
	Email  string
	Name   string
	Role   model.Role
}

// IdentityFromUser builds the identity embedded in tokens for user.
func IdentityFromUser(user *model.User) Identity {
	return Identity{UserID: user.ID, Email: user.Email, Name: user.Name, Role: user.Role}
}

// Identity returns the caller described by the claims.
func (c *Claims) Identity() Identity {
	return Identity{UserID: c.UserID, Email: c.Email, Name: c.Name, Role: c.Role}
}

// JWTService handles JWT token generation and validation.
type JWTService struct {
	secret []byte
}

// NewJWTService creates a new JWT service with the given secret.
func NewJWTService(secret string) *JWTService {
	return &JWTService{
		secret: []byte(secret),
	}
}

// Secret returns the signing key, for middleware that validates tokens itself.
func (s *JWTService) Secret() []byte {
	return s.secret
}

// GenerateAccessToken generates a new access token for the identity.
// Each access token gets its own ID so it can be blacklisted on logout.
func (s *JWTService) GenerateAccessToken(id Identity) (string, error) {
	return s.sign(id, generateTokenID(), AccessTokenExpiry)
}

// GenerateRefreshToken generates a new refresh token for the identity.
// The refresh token ID is returned separately for storage in Redis.
func (s *JWTService) GenerateRefreshToken(id Identity) (tokenID string, token string, err error) {
	tokenID = generateTokenID()
	token, err = s.sign(id, tokenID, RefreshTokenExpiry)
	return tokenID, token, err
}

func (s *JWTService) sign(id Identity, tokenID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID: id.UserID,
		Email:  id.Email,
		Name:   id.Name,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        tokenID,
			Subject:   id.UserID.String(),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken validates a JWT token and returns the claims.
func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New("token ID not found")
	}

	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	return uuid.New().String()
}
