package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"swiftattend/internal/model"
)

// MethodCount is the number of check-ins recorded with one method.
type MethodCount struct {
	Method model.CheckinMethod
	Count  int64
}

// AttendanceRepository defines attendance persistence operations.
type AttendanceRepository interface {
	Create(ctx context.Context, attendance *model.Attendance) error
	FindByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.Attendance, error)
	CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)
	CountByMethod(ctx context.Context, eventID uuid.UUID) ([]MethodCount, error)
}

type attendanceRepository struct {
	db *gorm.DB
}

// NewAttendanceRepository creates a new attendance repository.
func NewAttendanceRepository(db *gorm.DB) AttendanceRepository {
	return &attendanceRepository{db: db}
}

// Create inserts an attendance record. The unique index on registration_id
// rejects a second check-in for the same registration.
func (r *attendanceRepository) Create(ctx context.Context, attendance *model.Attendance) error {
	return r.db.WithContext(ctx).Create(attendance).Error
}

// FindByRegistrationID finds the attendance record of a registration.
func (r *attendanceRepository) FindByRegistrationID(ctx context.Context, registrationID uuid.UUID) (*model.Attendance, error) {
	var attendance model.Attendance
	if err := r.db.WithContext(ctx).Where("registration_id = ?", registrationID).First(&attendance).Error; err != nil {
		return nil, err
	}
	return &attendance, nil
}

// CountByEvent counts check-ins for an event.
func (r *attendanceRepository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.Attendance{}).
		Where("event_id = ?", eventID).
		Count(&count).Error
	return count, err
}

// CountByMethod groups an event's check-ins by method.
func (r *attendanceRepository) CountByMethod(ctx context.Context, eventID uuid.UUID) ([]MethodCount, error) {
	var rows []MethodCount
	err := r.db.WithContext(ctx).Model(&model.Attendance{}).
		Select("method, COUNT(*) AS count").
		Where("event_id = ?", eventID).
		Group("method").
		Scan(&rows).Error
	return rows, err
}
