package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"swiftattend/internal/model"
)

// RegistrationRepository defines registration persistence operations.
type RegistrationRepository interface {
	Create(ctx context.Context, registration *model.Registration) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error)
	FindByQRPayload(ctx context.Context, payload string) (*model.Registration, error)
	FindByBackupCode(ctx context.Context, code string) (*model.Registration, error)
	FindByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*model.Registration, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Registration, error)
	ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Registration, error)
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type registrationRepository struct {
	db *gorm.DB
}

// NewRegistrationRepository creates a new registration repository.
func NewRegistrationRepository(db *gorm.DB) RegistrationRepository {
	return &registrationRepository{db: db}
}

// withDetails preloads everything a registration is displayed with.
func (r *registrationRepository) withDetails(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Event").Preload("User").Preload("Attendance")
}

// Create inserts a registration. Unique indexes reject a second
// registration for the same (event, user) and colliding codes.
func (r *registrationRepository) Create(ctx context.Context, registration *model.Registration) error {
	return r.db.WithContext(ctx).Omit("Event", "User", "Attendance").Create(registration).Error
}

// FindByID finds a registration by ID with its event, user and attendance.
func (r *registrationRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Registration, error) {
	var registration model.Registration
	if err := r.withDetails(ctx).Where("id = ?", id).First(&registration).Error; err != nil {
		return nil, err
	}
	return &registration, nil
}

// FindByQRPayload finds the registration whose QR payload equals payload exactly.
func (r *registrationRepository) FindByQRPayload(ctx context.Context, payload string) (*model.Registration, error) {
	var registration model.Registration
	if err := r.withDetails(ctx).Where("qr_payload = ?", payload).First(&registration).Error; err != nil {
		return nil, err
	}
	return &registration, nil
}

// FindByBackupCode finds a registration by its stored (uppercase) backup code.
func (r *registrationRepository) FindByBackupCode(ctx context.Context, code string) (*model.Registration, error) {
	var registration model.Registration
	if err := r.withDetails(ctx).Where("backup_code = ?", code).First(&registration).Error; err != nil {
		return nil, err
	}
	return &registration, nil
}

// FindByEventAndUser finds the registration of userID for eventID.
func (r *registrationRepository) FindByEventAndUser(ctx context.Context, eventID, userID uuid.UUID) (*model.Registration, error) {
	var registration model.Registration
	if err := r.db.WithContext(ctx).
		Where("event_id = ? AND user_id = ?", eventID, userID).
		First(&registration).Error; err != nil {
		return nil, err
	}
	return &registration, nil
}

// ListByUser lists a user's registrations, newest first.
func (r *registrationRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Registration, error) {
	var registrations []model.Registration
	if err := r.withDetails(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&registrations).Error; err != nil {
		return nil, err
	}
	return registrations, nil
}

// ListByEvent lists an event's registrations in sign-up order.
func (r *registrationRepository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]model.Registration, error) {
	var registrations []model.Registration
	if err := r.db.WithContext(ctx).
		Preload("User").
		Preload("Attendance").
		Where("event_id = ?", eventID).
		Order("created_at ASC").
		Find(&registrations).Error; err != nil {
		return nil, err
	}
	return registrations, nil
}

// CountByEvent counts registrations for an event.
func (r *registrationRepository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Registration{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}

// Delete removes a registration and the attendance record referencing it.
func (r *registrationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("registration_id = ?", id).Delete(&model.Attendance{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Registration{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}
