package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"swiftattend/internal/model"
)

// SupportFilter narrows a support message listing. Nil fields are ignored.
type SupportFilter struct {
	UserID  *uuid.UUID
	EventID *uuid.UUID
	Status  *model.SupportStatus
}

// SupportMessageRepository defines support message persistence operations.
type SupportMessageRepository interface {
	Create(ctx context.Context, message *model.SupportMessage) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.SupportMessage, error)
	List(ctx context.Context, filter SupportFilter) ([]model.SupportMessage, error)
	MarkResolved(ctx context.Context, message *model.SupportMessage) (bool, error)
}

type supportMessageRepository struct {
	db *gorm.DB
}

// NewSupportMessageRepository creates a new support message repository.
func NewSupportMessageRepository(db *gorm.DB) SupportMessageRepository {
	return &supportMessageRepository{db: db}
}

func (r *supportMessageRepository) Create(ctx context.Context, message *model.SupportMessage) error {
	return r.db.WithContext(ctx).Create(message).Error
}

func (r *supportMessageRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.SupportMessage, error) {
	var message model.SupportMessage
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		return nil, err
	}
	return &message, nil
}

// List returns matching messages, newest first.
func (r *supportMessageRepository) List(ctx context.Context, filter SupportFilter) ([]model.SupportMessage, error) {
	query := r.db.WithContext(ctx).Model(&model.SupportMessage{})
	if filter.UserID != nil {
		query = query.Where("user_id = ?", *filter.UserID)
	}
	if filter.EventID != nil {
		query = query.Where("event_id = ?", *filter.EventID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}

	var messages []model.SupportMessage
	if err := query.Order("created_at DESC").Find(&messages).Error; err != nil {
		return nil, err
	}
	return messages, nil
}

// MarkResolved flips an open message to resolved. It reports false when the
// message was no longer open, so two concurrent resolutions cannot both win.
func (r *supportMessageRepository) MarkResolved(ctx context.Context, message *model.SupportMessage) (bool, error) {
	res := r.db.WithContext(ctx).Model(&model.SupportMessage{}).
		Where("id = ? AND status = ?", message.ID, model.SupportStatusOpen).
		Updates(map[string]interface{}{
			"status":      model.SupportStatusResolved,
			"resolved_at": message.ResolvedAt,
			"resolved_by": message.ResolvedBy,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
