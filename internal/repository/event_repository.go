package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"swiftattend/internal/model"
)

// eventOrder sorts by date, then start time (unset last), then creation order.
// The trailing id keeps pages stable when everything else ties.
const eventOrder = "date ASC, CASE WHEN start_time IS NULL THEN 1 ELSE 0 END ASC, start_time ASC, created_at ASC, id ASC"

// EventFilter narrows an event listing. Zero values mean no restriction.
type EventFilter struct {
	From  *datatypes.Date
	To    *datatypes.Date
	Limit int
}

// EventRepository defines event persistence operations.
type EventRepository interface {
	Create(ctx context.Context, event *model.Event) error
	Update(ctx context.Context, event *model.Event) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error)
	List(ctx context.Context, filter EventFilter) ([]model.Event, error)
}

type eventRepository struct {
	db *gorm.DB
}

// NewEventRepository creates a new event repository.
func NewEventRepository(db *gorm.DB) EventRepository {
	return &eventRepository{db: db}
}

// Create creates a new event.
func (r *eventRepository) Create(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Create(event).Error
}

// Update saves every column of an existing event.
func (r *eventRepository) Update(ctx context.Context, event *model.Event) error {
	return r.db.WithContext(ctx).Save(event).Error
}

// Delete removes an event with its registrations and their attendance.
func (r *eventRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ?", id).Delete(&model.Event{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if err := tx.Where("event_id = ?", id).Delete(&model.Attendance{}).Error; err != nil {
			return err
		}
		return tx.Where("event_id = ?", id).Delete(&model.Registration{}).Error
	})
}

// FindByID finds an event by ID.
func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	var event model.Event
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

// List returns events in display order.
func (r *eventRepository) List(ctx context.Context, filter EventFilter) ([]model.Event, error) {
	query := r.db.WithContext(ctx).Model(&model.Event{})
	if filter.From != nil {
		query = query.Where("date >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("date <= ?", *filter.To)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var events []model.Event
	if err := query.Order(eventOrder).Find(&events).Error; err != nil {
		return nil, err
	}
	return events, nil
}
