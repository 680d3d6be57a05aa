package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	qrcode "github.com/skip2/go-qrcode"

	"swiftattend/internal/auth"
	"swiftattend/internal/cache"
	"swiftattend/internal/db"
	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/repository"
)

const (
	maxCodeAttempts = 5

	// DefaultQRSize is the PNG edge length in pixels when none is requested.
	DefaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

// RegistrationService handles registering for events and reading registrations.
type RegistrationService interface {
	Register(ctx context.Context, eventID, userID uuid.UUID) (*model.Registration, error)
	ListMine(ctx context.Context, userID uuid.UUID) ([]model.Registration, error)
	GetRegistration(ctx context.Context, id uuid.UUID, caller auth.Identity) (*model.Registration, error)
	ListForEvent(ctx context.Context, eventID uuid.UUID) ([]model.Registration, error)
	Lookup(ctx context.Context, code string) (*model.Registration, model.CheckinMethod, error)
	DeleteRegistration(ctx context.Context, id uuid.UUID) error
	QRCodePNG(ctx context.Context, id uuid.UUID, caller auth.Identity, size int) ([]byte, error)
}

type registrationService struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	cache            *cache.Client
	codes            *CodeGenerator
	clock            Clock
	// serializes the capacity check and insert per event
	eventLocks keyedMutex
}

// NewRegistrationService creates a new registration service.
func NewRegistrationService(
	eventRepo repository.EventRepository,
	registrationRepo repository.RegistrationRepository,
	cache *cache.Client,
	codes *CodeGenerator,
	clock Clock,
) RegistrationService {
	return &registrationService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		cache:            cache,
		codes:            codes,
		clock:            clock,
	}
}

// Register creates the user's registration for an event with a fresh QR
// payload and backup code. A second registration for the same event fails
// with ErrAlreadyRegistered.
func (s *registrationService) Register(ctx context.Context, eventID, userID uuid.UUID) (*model.Registration, error) {
	event, err := findEvent(ctx, s.eventRepo, eventID)
	if err != nil {
		return nil, err
	}
	if dateBefore(event.Date, s.clock.Today()) {
		return nil, apperrors.ErrEventPassed
	}

	unlock := s.eventLocks.lock(eventID)
	defer unlock()

	existing, err := s.registrationRepo.FindByEventAndUser(ctx, eventID, userID)
	if err != nil && !db.IsNotFound(err) {
		return nil, fmt.Errorf("check registration: %w", err)
	}
	if existing != nil {
		return nil, apperrors.ErrAlreadyRegistered
	}

	if event.MaxCapacity != nil {
		registered, err := s.registrationRepo.CountByEvent(ctx, eventID)
		if err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if event.IsFull(registered) {
			return nil, apperrors.ErrEventFull
		}
	}

	for attempt := 1; ; attempt++ {
		registration, err := s.newRegistration(eventID, userID)
		if err != nil {
			return nil, err
		}

		err = s.registrationRepo.Create(ctx, registration)
		if err == nil {
			invalidateStats(ctx, s.cache, eventID)
			registration.Event = event
			return registration, nil
		}
		if !db.IsUniqueViolation(err) {
			return nil, fmt.Errorf("create registration: %w", err)
		}

		// Either the (event, user) pair or a generated code collided.
		if _, findErr := s.registrationRepo.FindByEventAndUser(ctx, eventID, userID); findErr == nil {
			return nil, apperrors.ErrAlreadyRegistered
		}
		if attempt == maxCodeAttempts {
			return nil, fmt.Errorf("create registration: no unique backup code after %d attempts: %w", attempt, err)
		}
		log.Printf("registration: code collision for event %s, retrying (%d/%d)", eventID, attempt, maxCodeAttempts)
	}
}

func (s *registrationService) newRegistration(eventID, userID uuid.UUID) (*model.Registration, error) {
	code, err := s.codes.BackupCode()
	if err != nil {
		return nil, fmt.Errorf("generate backup code: %w", err)
	}
	registration := &model.Registration{
		ID:         uuid.New(),
		EventID:    eventID,
		UserID:     userID,
		BackupCode: code,
	}
	registration.QRPayload = s.codes.RegistrationQRPayload(eventID, userID, registration.ID)
	return registration, nil
}

// ListMine returns the user's registrations with their event and check-in state.
func (s *registrationService) ListMine(ctx context.Context, userID uuid.UUID) ([]model.Registration, error) {
	registrations, err := s.registrationRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return registrations, nil
}

// GetRegistration returns one registration. Participants may only read their own.
func (s *registrationService) GetRegistration(ctx context.Context, id uuid.UUID, caller auth.Identity) (*model.Registration, error) {
	registration, err := s.registrationRepo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	if registration.UserID != caller.UserID && !caller.Role.CanManageCheckins() {
		// not yours: indistinguishable from missing
		return nil, apperrors.ErrRegistrationNotFound
	}
	return registration, nil
}

// ListForEvent returns an event's registrations with attendee and check-in state.
func (s *registrationService) ListForEvent(ctx context.Context, eventID uuid.UUID) ([]model.Registration, error) {
	if _, err := findEvent(ctx, s.eventRepo, eventID); err != nil {
		return nil, err
	}
	registrations, err := s.registrationRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	return registrations, nil
}

// Lookup resolves a scanned QR payload or typed backup code to its
// registration and reports which kind of code matched.
func (s *registrationService) Lookup(ctx context.Context, code string) (*model.Registration, model.CheckinMethod, error) {
	return lookupRegistration(ctx, s.registrationRepo, code)
}

// lookupRegistration tries the exact QR payload first, then the backup code.
func lookupRegistration(ctx context.Context, repo repository.RegistrationRepository, code string) (*model.Registration, model.CheckinMethod, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, "", apperrors.NewValidationError("code is required")
	}

	registration, err := repo.FindByQRPayload(ctx, code)
	if err == nil {
		return registration, model.CheckinMethodQRScan, nil
	}
	if !db.IsNotFound(err) {
		return nil, "", fmt.Errorf("find by qr payload: %w", err)
	}

	backup, ok := NormalizeBackupCode(code)
	if !ok {
		return nil, "", apperrors.ErrInvalidCode
	}
	registration, err = repo.FindByBackupCode(ctx, backup)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, "", apperrors.ErrInvalidCode
		}
		return nil, "", fmt.Errorf("find by backup code: %w", err)
	}
	return registration, model.CheckinMethodBackupCode, nil
}

// DeleteRegistration removes a registration and its attendance record.
func (s *registrationService) DeleteRegistration(ctx context.Context, id uuid.UUID) error {
	registration, err := s.registrationRepo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return apperrors.ErrRegistrationNotFound
		}
		return fmt.Errorf("find registration: %w", err)
	}
	if err := s.registrationRepo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return apperrors.ErrRegistrationNotFound
		}
		return fmt.Errorf("delete registration: %w", err)
	}
	invalidateStats(ctx, s.cache, registration.EventID)
	return nil
}

// QRCodePNG renders the registration's QR payload. size is clamped to a
// sane range; 0 selects DefaultQRSize.
func (s *registrationService) QRCodePNG(ctx context.Context, id uuid.UUID, caller auth.Identity, size int) ([]byte, error) {
	registration, err := s.GetRegistration(ctx, id, caller)
	if err != nil {
		return nil, err
	}

	switch {
	case size == 0:
		size = DefaultQRSize
	case size < minQRSize:
		size = minQRSize
	case size > maxQRSize:
		size = maxQRSize
	}

	png, err := qrcode.Encode(registration.QRPayload, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}
