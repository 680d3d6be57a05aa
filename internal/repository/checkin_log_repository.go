package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"swiftattend/internal/model"
)

// CheckinLogRepository defines check-in log persistence operations.
type CheckinLogRepository interface {
	Create(ctx context.Context, log *model.CheckinLog) error
	CreateBatch(ctx context.Context, logs []model.CheckinLog) error
	ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]model.CheckinLog, error)
}

type checkinLogRepository struct {
	db *gorm.DB
}

// NewCheckinLogRepository creates a new check-in log repository.
func NewCheckinLogRepository(db *gorm.DB) CheckinLogRepository {
	return &checkinLogRepository{db: db}
}

// Create creates a new check-in log entry.
func (r *checkinLogRepository) Create(ctx context.Context, log *model.CheckinLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}

// CreateBatch creates multiple check-in log entries in a single statement batch.
func (r *checkinLogRepository) CreateBatch(ctx context.Context, logs []model.CheckinLog) error {
	if len(logs) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(logs, 100).Error
}

// ListByEvent returns the most recent attempts for an event.
func (r *checkinLogRepository) ListByEvent(ctx context.Context, eventID uuid.UUID, limit int) ([]model.CheckinLog, error) {
	if limit <= 0 {
		limit = 50
	}
	var logs []model.CheckinLog
	if err := r.db.WithContext(ctx).
		Where("event_id = ?", eventID).
		Order("created_at DESC").
		Limit(limit).
		Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
