package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"swiftattend/internal/auth"
	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
)

// MockUserRepository is a mock implementation of UserRepository.
type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *MockUserRepository) Update(ctx context.Context, user *model.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

// MockTokenStore is a mock implementation of TokenStoreInterface.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) StoreRefreshToken(ctx context.Context, tokenID string, id auth.Identity, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, id, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) GetRefreshToken(ctx context.Context, tokenID string) (auth.Identity, error) {
	args := m.Called(ctx, tokenID)
	return args.Get(0).(auth.Identity), args.Error(1)
}

func (m *MockTokenStore) DeleteRefreshToken(ctx context.Context, tokenID string) error {
	args := m.Called(ctx, tokenID)
	return args.Error(0)
}

func (m *MockTokenStore) BlacklistAccessToken(ctx context.Context, tokenID string, ttl time.Duration) error {
	args := m.Called(ctx, tokenID, ttl)
	return args.Error(0)
}

func (m *MockTokenStore) IsAccessTokenBlacklisted(ctx context.Context, tokenID string) (bool, error) {
	args := m.Called(ctx, tokenID)
	return args.Bool(0), args.Error(1)
}

var testPolicy = AuthPolicy{
	AdminPassword:          "admin-pass",
	StaffPassword:          "staff-pass",
	ParticipantEmailDomain: "@qatar.cmu.edu",
}

func newTestAuthService(t *testing.T, repo *MockUserRepository, store *MockTokenStore) (AuthService, *auth.JWTService) {
	t.Helper()
	jwtService := auth.NewJWTService("test-secret")
	svc, err := NewAuthService(repo, jwtService, store, testPolicy)
	require.NoError(t, err)
	return svc, jwtService
}

func TestNewAuthService_RequiresPasswords(t *testing.T) {
	_, err := NewAuthService(new(MockUserRepository), auth.NewJWTService("x"), new(MockTokenStore), AuthPolicy{AdminPassword: "a"})
	assert.Error(t, err)
}

func TestNewAuthService_RequiresEmailDomain(t *testing.T) {
	for _, domain := range []string{"", " ", "@"} {
		policy := testPolicy
		policy.ParticipantEmailDomain = domain
		_, err := NewAuthService(new(MockUserRepository), auth.NewJWTService("x"), new(MockTokenStore), policy)
		assert.Error(t, err, "domain %q", domain)
	}
}

func TestAuthService_EmailDomainIsAnchored(t *testing.T) {
	policy := testPolicy
	policy.ParticipantEmailDomain = "qatar.cmu.edu"
	svc, err := NewAuthService(new(MockUserRepository), auth.NewJWTService("x"), new(MockTokenStore), policy)
	require.NoError(t, err)

	_, _, _, err = svc.Login(context.Background(), LoginInput{Role: model.RoleParticipant, Name: "Eve", Email: "x@evilqatar.cmu.edu"})
	assert.ErrorIs(t, err, apperrors.ErrEmailDomainNotAllowed)
}

func TestAuthService_Login(t *testing.T) {
	tests := []struct {
		name          string
		input         LoginInput
		setupMock     func(*MockUserRepository, *MockTokenStore)
		expectedError error
		expectedEmail string
		expectedName  string
	}{
		{
			name:  "participant first login",
			input: LoginInput{Role: model.RoleParticipant, Name: "Ada Lovelace", Email: "Ada@Qatar.CMU.edu", StudentID: "a1"},
			setupMock: func(m *MockUserRepository, s *MockTokenStore) {
				m.On("FindByEmail", mock.Anything, "ada@qatar.cmu.edu").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
				s.On("StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, auth.RefreshTokenExpiry).Return(nil)
			},
			expectedEmail: "ada@qatar.cmu.edu",
		},
		{
			name:          "participant outside allowed domain",
			input:         LoginInput{Role: model.RoleParticipant, Name: "Eve", Email: "eve@gmail.com"},
			setupMock:     func(m *MockUserRepository, s *MockTokenStore) {},
			expectedError: apperrors.ErrEmailDomainNotAllowed,
		},
		{
			name:          "participant without email",
			input:         LoginInput{Role: model.RoleParticipant, Name: "Eve"},
			setupMock:     func(m *MockUserRepository, s *MockTokenStore) {},
			expectedError: apperrors.ErrValidation,
		},
		{
			name:  "staff with shared password",
			input: LoginInput{Role: model.RoleStaff, Password: "staff-pass", Name: "Door Crew"},
			setupMock: func(m *MockUserRepository, s *MockTokenStore) {
				m.On("FindByEmail", mock.Anything, "door.crew.staff@swiftattend.local").Return(nil, gorm.ErrRecordNotFound)
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(nil)
				s.On("StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, auth.RefreshTokenExpiry).Return(nil)
			},
			expectedEmail: "door.crew.staff@swiftattend.local",
		},
		{
			name:  "returning admin keeps stored profile",
			input: LoginInput{Role: model.RoleAdmin, Password: "admin-pass", Name: "Someone Else", Email: "grace@qatar.cmu.edu"},
			setupMock: func(m *MockUserRepository, s *MockTokenStore) {
				m.On("FindByEmail", mock.Anything, "grace@qatar.cmu.edu").Return(&model.User{
					ID: uuid.New(), Name: "Grace", Email: "grace@qatar.cmu.edu", Role: model.RoleAdmin,
				}, nil)
				s.On("StoreRefreshToken", mock.Anything, mock.Anything, mock.Anything, auth.RefreshTokenExpiry).Return(nil)
			},
			expectedEmail: "grace@qatar.cmu.edu",
			expectedName:  "Grace",
		},
		{
			name:  "participant login with an admin's email",
			input: LoginInput{Role: model.RoleParticipant, Name: "Mallory", Email: "boss@qatar.cmu.edu"},
			setupMock: func(m *MockUserRepository, s *MockTokenStore) {
				m.On("FindByEmail", mock.Anything, "boss@qatar.cmu.edu").Return(&model.User{
					ID: uuid.New(), Name: "Boss", Email: "boss@qatar.cmu.edu", Role: model.RoleAdmin,
				}, nil)
			},
			expectedError: apperrors.ErrRoleMismatch,
		},
		{
			name:  "role mismatch after losing a first-login race",
			input: LoginInput{Role: model.RoleParticipant, Name: "Mallory", Email: "boss@qatar.cmu.edu"},
			setupMock: func(m *MockUserRepository, s *MockTokenStore) {
				m.On("FindByEmail", mock.Anything, "boss@qatar.cmu.edu").Return(nil, gorm.ErrRecordNotFound).Once()
				m.On("Create", mock.Anything, mock.AnythingOfType("*model.User")).Return(gorm.ErrDuplicatedKey)
				m.On("FindByEmail", mock.Anything, "boss@qatar.cmu.edu").Return(&model.User{
					ID: uuid.New(), Name: "Boss", Email: "boss@qatar.cmu.edu", Role: model.RoleStaff,
				}, nil).Once()
			},
			expectedError: apperrors.ErrRoleMismatch,
		},
		{
			name:          "admin with wrong password",
			input:         LoginInput{Role: model.RoleAdmin, Password: "staff-pass", Name: "Mallory"},
			setupMock:     func(m *MockUserRepository, s *MockTokenStore) {},
			expectedError: apperrors.ErrUnauthorized,
		},
		{
			name:          "unknown role",
			input:         LoginInput{Role: "owner", Name: "Mallory"},
			setupMock:     func(m *MockUserRepository, s *MockTokenStore) {},
			expectedError: apperrors.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockUserRepository)
			mockTokenStore := new(MockTokenStore)
			tt.setupMock(mockRepo, mockTokenStore)
			svc, jwtService := newTestAuthService(t, mockRepo, mockTokenStore)

			accessToken, refreshToken, user, err := svc.Login(context.Background(), tt.input)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Empty(t, accessToken)
				assert.Empty(t, refreshToken)
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedEmail, user.Email)
				assert.Equal(t, tt.input.Role, user.Role)
				if tt.expectedName != "" {
					assert.Equal(t, tt.expectedName, user.Name)
				}

				claims, err := jwtService.ValidateToken(accessToken)
				require.NoError(t, err)
				assert.Equal(t, user.ID, claims.UserID)
				assert.Equal(t, tt.input.Role, claims.Role)
				assert.NotEmpty(t, refreshToken)
			}

			mockRepo.AssertExpectations(t)
			mockTokenStore.AssertExpectations(t)
		})
	}
}

func TestAuthService_RefreshToken(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockTokenStore := new(MockTokenStore)
	svc, jwtService := newTestAuthService(t, mockRepo, mockTokenStore)

	id := auth.Identity{UserID: uuid.New(), Email: "s@swiftattend.local", Name: "S", Role: model.RoleStaff}
	tokenID, refresh, err := jwtService.GenerateRefreshToken(id)
	require.NoError(t, err)

	mockTokenStore.On("GetRefreshToken", mock.Anything, tokenID).Return(id, nil).Once()
	access, err := svc.RefreshToken(context.Background(), refresh)
	require.NoError(t, err)
	claims, err := jwtService.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, id, claims.Identity())

	mockTokenStore.On("GetRefreshToken", mock.Anything, tokenID).Return(auth.Identity{}, assert.AnError).Once()
	_, err = svc.RefreshToken(context.Background(), refresh)
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	_, err = svc.RefreshToken(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	mockTokenStore.AssertExpectations(t)
}

func TestAuthService_Logout(t *testing.T) {
	mockRepo := new(MockUserRepository)
	mockTokenStore := new(MockTokenStore)
	svc, jwtService := newTestAuthService(t, mockRepo, mockTokenStore)

	id := auth.Identity{UserID: uuid.New(), Role: model.RoleParticipant}
	tokenID, refresh, err := jwtService.GenerateRefreshToken(id)
	require.NoError(t, err)
	access, err := jwtService.GenerateAccessToken(id)
	require.NoError(t, err)
	accessClaims, err := jwtService.ValidateToken(access)
	require.NoError(t, err)

	mockTokenStore.On("DeleteRefreshToken", mock.Anything, tokenID).Return(nil)
	mockTokenStore.On("BlacklistAccessToken", mock.Anything, accessClaims.ID, mock.MatchedBy(func(ttl time.Duration) bool {
		return ttl > 0 && ttl <= auth.AccessTokenExpiry
	})).Return(nil)

	require.NoError(t, svc.Logout(context.Background(), refresh, accessClaims))
	mockTokenStore.AssertExpectations(t)

	other, _ := jwtService.GenerateAccessToken(auth.Identity{UserID: uuid.New(), Role: model.RoleAdmin})
	otherClaims, _ := jwtService.ValidateToken(other)
	assert.ErrorIs(t, svc.Logout(context.Background(), refresh, otherClaims), ErrInvalidRefreshToken)
}
