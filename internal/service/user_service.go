package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"swiftattend/internal/cache"
	"swiftattend/internal/db"
	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/repository"
)

const userCacheTTL = 5 * time.Minute

// ProfileUpdate carries the editable profile fields. Nil fields are left unchanged.
type ProfileUpdate struct {
	Name      *string
	StudentID *string
}

// UserService exposes profile operations.
type UserService interface {
	GetUser(ctx context.Context, id uuid.UUID) (*model.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*model.User, error)
}

type userService struct {
	repo  repository.UserRepository
	cache *cache.Client
}

// NewUserService builds a UserService with repository and cache.
func NewUserService(repo repository.UserRepository, cache *cache.Client) UserService {
	return &userService{repo: repo, cache: cache}
}

func userCacheKey(id uuid.UUID) string {
	return "user:" + id.String()
}

func (s *userService) GetUser(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var cached model.User
	if s.cache.GetJSON(ctx, userCacheKey(id), &cached) {
		return &cached, nil
	}

	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	_ = s.cache.SetJSON(ctx, userCacheKey(id), user, userCacheTTL)
	return user, nil
}

// UpdateProfile changes the caller's display name and student id. Email and
// role are fixed by login.
func (s *userService) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*model.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.ErrUserNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if update.Name != nil {
		name := strings.TrimSpace(*update.Name)
		if name == "" {
			return nil, apperrors.NewValidationError("name must not be empty")
		}
		user.Name = name
	}
	if update.StudentID != nil {
		user.StudentID = strings.TrimSpace(*update.StudentID)
	}

	if err := s.repo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update user: %w", err)
	}
	_ = s.cache.Delete(ctx, userCacheKey(id))
	return user, nil
}
