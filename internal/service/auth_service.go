package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"swiftattend/internal/auth"
	"swiftattend/internal/db"
	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/repository"
)

const bcryptCost = 10

var (
	// ErrInvalidRefreshToken is returned when refresh token is invalid or expired.
	ErrInvalidRefreshToken = errors.New("invalid or expired refresh token")

	nonSlug = regexp.MustCompile(`[^a-z0-9]+`)
)

// LoginInput is what a user submits on the login screen.
// Password is only checked for admin and staff; participants are identified
// by name and an allow-listed email.
type LoginInput struct {
	Role      model.Role
	Password  string
	Name      string
	Email     string
	StudentID string
}

// AuthPolicy holds the shared role passwords and the participant email suffix.
type AuthPolicy struct {
	AdminPassword          string
	StaffPassword          string
	ParticipantEmailDomain string
}

// AuthService handles authentication operations.
type AuthService interface {
	Login(ctx context.Context, in LoginInput) (accessToken, refreshToken string, user *model.User, err error)
	RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error)
	Logout(ctx context.Context, refreshToken string, access *auth.Claims) error
}

type authService struct {
	userRepo    repository.UserRepository
	jwtService  *auth.JWTService
	tokenStore  auth.TokenStoreInterface
	roleHashes  map[model.Role][]byte
	emailDomain string
}

// NewAuthService creates a new authentication service. The shared passwords
// are hashed once here so they are never compared in plain text.
func NewAuthService(userRepo repository.UserRepository, jwtService *auth.JWTService, tokenStore auth.TokenStoreInterface, policy AuthPolicy) (AuthService, error) {
	hashes := make(map[model.Role][]byte, 2)
	for role, password := range map[model.Role]string{
		model.RoleAdmin: policy.AdminPassword,
		model.RoleStaff: policy.StaffPassword,
	} {
		if password == "" {
			return nil, fmt.Errorf("%s password is not configured", role)
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, fmt.Errorf("hash %s password: %w", role, err)
		}
		hashes[role] = hash
	}

	domain := strings.ToLower(strings.TrimSpace(policy.ParticipantEmailDomain))
	if domain == "" || domain == "@" {
		return nil, fmt.Errorf("participant email domain is not configured")
	}
	if !strings.HasPrefix(domain, "@") {
		domain = "@" + domain
	}

	return &authService{
		userRepo:    userRepo,
		jwtService:  jwtService,
		tokenStore:  tokenStore,
		roleHashes:  hashes,
		emailDomain: domain,
	}, nil
}

// Login checks the role gate, upserts the user and returns access and refresh tokens.
func (s *authService) Login(ctx context.Context, in LoginInput) (accessToken, refreshToken string, user *model.User, err error) {
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return "", "", nil, apperrors.NewValidationError("name is required")
	}

	switch in.Role {
	case model.RoleAdmin, model.RoleStaff:
		if bcrypt.CompareHashAndPassword(s.roleHashes[in.Role], []byte(in.Password)) != nil {
			return "", "", nil, apperrors.ErrUnauthorized
		}
		if email == "" {
			email = fallbackEmail(name, in.Role)
		}
	case model.RoleParticipant:
		if email == "" {
			return "", "", nil, apperrors.NewValidationError("email is required")
		}
		if !strings.HasSuffix(email, s.emailDomain) {
			return "", "", nil, apperrors.ErrEmailDomainNotAllowed
		}
	default:
		return "", "", nil, apperrors.NewValidationError("role must be admin, staff or participant")
	}

	user, err = s.upsertUser(ctx, in.Role, name, email, strings.TrimSpace(in.StudentID))
	if err != nil {
		return "", "", nil, err
	}

	id := auth.IdentityFromUser(user)
	accessToken, err = s.jwtService.GenerateAccessToken(id)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate access token: %w", err)
	}

	tokenID, refreshToken, err := s.jwtService.GenerateRefreshToken(id)
	if err != nil {
		return "", "", nil, fmt.Errorf("generate refresh token: %w", err)
	}

	if err := s.tokenStore.StoreRefreshToken(ctx, tokenID, id, auth.RefreshTokenExpiry); err != nil {
		return "", "", nil, fmt.Errorf("store refresh token: %w", err)
	}

	return accessToken, refreshToken, user, nil
}

// upsertUser finds the user by email or creates it. A stored user keeps its
// role, name and student id; only PATCH /me edits the profile.
func (s *authService) upsertUser(ctx context.Context, role model.Role, name, email, studentID string) (*model.User, error) {
	existing, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !db.IsNotFound(err) {
		return nil, fmt.Errorf("check user existence: %w", err)
	}

	if existing == nil {
		user := &model.User{Name: name, Email: email, Role: role, StudentID: studentID}
		if err := s.userRepo.Create(ctx, user); err != nil {
			if !db.IsUniqueViolation(err) {
				return nil, fmt.Errorf("create user: %w", err)
			}
			// lost a race with a concurrent first login
			existing, err = s.userRepo.FindByEmail(ctx, email)
			if err != nil {
				return nil, fmt.Errorf("find user: %w", err)
			}
		} else {
			return user, nil
		}
	}

	if existing.Role != role {
		return nil, apperrors.ErrRoleMismatch
	}
	return existing, nil
}

// RefreshToken validates a refresh token and returns a new access token.
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (accessToken string, err error) {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	stored, err := s.tokenStore.GetRefreshToken(ctx, claims.ID)
	if err != nil {
		return "", ErrInvalidRefreshToken
	}

	if stored != claims.Identity() {
		return "", ErrInvalidRefreshToken
	}

	accessToken, err = s.jwtService.GenerateAccessToken(stored)
	if err != nil {
		return "", fmt.Errorf("generate access token: %w", err)
	}

	return accessToken, nil
}

// Logout invalidates the refresh token and blacklists the current access token.
func (s *authService) Logout(ctx context.Context, refreshToken string, access *auth.Claims) error {
	claims, err := s.jwtService.ValidateToken(refreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	if access != nil && claims.UserID != access.UserID {
		return ErrInvalidRefreshToken
	}

	if err := s.tokenStore.DeleteRefreshToken(ctx, claims.ID); err != nil {
		return fmt.Errorf("delete refresh token: %w", err)
	}

	if access != nil && access.ExpiresAt != nil {
		ttl := time.Until(access.ExpiresAt.Time)
		if err := s.tokenStore.BlacklistAccessToken(ctx, access.ID, ttl); err != nil {
			return fmt.Errorf("blacklist access token: %w", err)
		}
	}
	return nil
}

// fallbackEmail gives admin and staff without an email a stable identity per name.
func fallbackEmail(name string, role model.Role) string {
	slug := strings.Trim(nonSlug.ReplaceAllString(strings.ToLower(name), "."), ".")
	if slug == "" {
		slug = "user"
	}
	return fmt.Sprintf("%s.%s@swiftattend.local", slug, role)
}
