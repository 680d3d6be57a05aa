package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SupportStatus is open until an admin resolves the message. Resolution is final.
type SupportStatus string

const (
	SupportStatusOpen     SupportStatus = "open"
	SupportStatusResolved SupportStatus = "resolved"
)

// SupportMessage is a free-text issue report from a user, optionally about one event.
type SupportMessage struct {
	ID         uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	UserID     uuid.UUID     `json:"user_id" gorm:"type:char(36);not null;index"`
	UserName   string        `json:"user_name" gorm:"size:255"`
	EventID    *uuid.UUID    `json:"event_id,omitempty" gorm:"type:char(36);index"`
	Message    string        `json:"message" gorm:"type:text;not null"`
	Status     SupportStatus `json:"status" gorm:"type:varchar(20);not null;default:'open';index"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
	ResolvedBy *uuid.UUID    `json:"resolved_by,omitempty" gorm:"type:char(36)"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (m *SupportMessage) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
