package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckinOutcome represents the result of a check-in attempt.
type CheckinOutcome string

const (
	CheckinOutcomeCheckedIn        CheckinOutcome = "checked_in"
	CheckinOutcomeInvalidCode      CheckinOutcome = "invalid_code"
	CheckinOutcomeWrongEvent       CheckinOutcome = "wrong_event"
	CheckinOutcomeAlreadyCheckedIn CheckinOutcome = "already_checked_in"
	CheckinOutcomeError            CheckinOutcome = "error"
)

// CheckinLog represents a log entry for a check-in attempt.
// All attempts are logged regardless of success or failure.
type CheckinLog struct {
	ID        uuid.UUID      `json:"id" gorm:"type:char(36);primaryKey"`
	EventID   uuid.UUID      `json:"event_id" gorm:"type:char(36);not null;index"`
	StaffID   uuid.UUID      `json:"staff_id" gorm:"type:char(36);not null"`
	Code      string         `json:"code" gorm:"size:255"`
	Outcome   CheckinOutcome `json:"outcome" gorm:"type:varchar(32);not null;index"`
	Message   string         `json:"message,omitempty" gorm:"type:text"`
	CreatedAt time.Time      `json:"created_at"`
}

// BeforeCreate sets UUID before creating the record.
func (l *CheckinLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
