package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Event is something participants register for and staff check people into.
type Event struct {
	ID          uuid.UUID       `json:"id" gorm:"type:char(36);primaryKey"`
	Name        string          `json:"name" gorm:"size:255;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Date        datatypes.Date  `json:"date" gorm:"not null;index"`
	StartTime   *datatypes.Time `json:"start_time,omitempty"`
	EndTime     *datatypes.Time `json:"end_time,omitempty"`
	Location    string          `json:"location" gorm:"size:255"`
	MaxCapacity *int            `json:"max_capacity,omitempty"`
	PosterURL   string          `json:"poster_url,omitempty" gorm:"size:512"`
	CreatedBy   uuid.UUID       `json:"created_by" gorm:"type:char(36);not null;index"`
	QRPayload   string          `json:"qr_payload" gorm:"size:128;not null;uniqueIndex"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (e *Event) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// Remaining returns the number of open seats, or nil when capacity is unlimited.
func (e *Event) Remaining(registered int64) *int64 {
	if e.MaxCapacity == nil {
		return nil
	}
	left := int64(*e.MaxCapacity) - registered
	if left < 0 {
		left = 0
	}
	return &left
}

// IsFull reports whether no seats remain.
func (e *Event) IsFull(registered int64) bool {
	return e.MaxCapacity != nil && registered >= int64(*e.MaxCapacity)
}
