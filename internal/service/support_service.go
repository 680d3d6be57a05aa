package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"swiftattend/internal/auth"
	"swiftattend/internal/db"
	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/repository"
)

const maxSupportMessageLength = 2000

// SupportQuery filters a support listing.
type SupportQuery struct {
	EventID *uuid.UUID
	Status  model.SupportStatus
}

// SupportService handles support messages between users and admins.
type SupportService interface {
	CreateMessage(ctx context.Context, author auth.Identity, eventID *uuid.UUID, message string) (*model.SupportMessage, error)
	ListMessages(ctx context.Context, caller auth.Identity, q SupportQuery) ([]model.SupportMessage, error)
	ResolveMessage(ctx context.Context, id, adminID uuid.UUID) (*model.SupportMessage, error)
}

type supportService struct {
	supportRepo repository.SupportMessageRepository
	eventRepo   repository.EventRepository
	now         func() time.Time
}

// NewSupportService creates a new support service.
func NewSupportService(supportRepo repository.SupportMessageRepository, eventRepo repository.EventRepository) SupportService {
	return &supportService{supportRepo: supportRepo, eventRepo: eventRepo, now: time.Now}
}

// CreateMessage stores an open message. When eventID is given the event must exist.
func (s *supportService) CreateMessage(ctx context.Context, author auth.Identity, eventID *uuid.UUID, message string) (*model.SupportMessage, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, apperrors.NewValidationError("message is required")
	}
	if len(message) > maxSupportMessageLength {
		return nil, apperrors.NewValidationError("message must be at most %d characters", maxSupportMessageLength)
	}
	if eventID != nil {
		if _, err := findEvent(ctx, s.eventRepo, *eventID); err != nil {
			return nil, err
		}
	}

	msg := &model.SupportMessage{
		UserID:   author.UserID,
		UserName: author.Name,
		EventID:  eventID,
		Message:  message,
		Status:   model.SupportStatusOpen,
	}
	if err := s.supportRepo.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create support message: %w", err)
	}
	return msg, nil
}

// ListMessages returns all messages to admins and only the caller's own to
// everyone else.
func (s *supportService) ListMessages(ctx context.Context, caller auth.Identity, q SupportQuery) ([]model.SupportMessage, error) {
	filter := repository.SupportFilter{EventID: q.EventID}
	if caller.Role != model.RoleAdmin {
		userID := caller.UserID
		filter.UserID = &userID
	}
	if q.Status != "" {
		if q.Status != model.SupportStatusOpen && q.Status != model.SupportStatusResolved {
			return nil, apperrors.NewValidationError("status must be open or resolved")
		}
		status := q.Status
		filter.Status = &status
	}

	messages, err := s.supportRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list support messages: %w", err)
	}
	return messages, nil
}

// ResolveMessage marks an open message resolved. Resolving twice fails with
// ErrAlreadyResolved.
func (s *supportService) ResolveMessage(ctx context.Context, id, adminID uuid.UUID) (*model.SupportMessage, error) {
	msg, err := s.supportRepo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.ErrSupportMessageNotFound
		}
		return nil, fmt.Errorf("find support message: %w", err)
	}
	if msg.Status == model.SupportStatusResolved {
		return nil, apperrors.ErrAlreadyResolved
	}

	now := s.now()
	msg.ResolvedAt = &now
	msg.ResolvedBy = &adminID
	ok, err := s.supportRepo.MarkResolved(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("resolve support message: %w", err)
	}
	if !ok {
		return nil, apperrors.ErrAlreadyResolved
	}
	msg.Status = model.SupportStatusResolved
	return msg, nil
}
