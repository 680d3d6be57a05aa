package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CheckinMethod records how a registration was matched at the door.
type CheckinMethod string

const (
	CheckinMethodQRScan     CheckinMethod = "qr_scan"
	CheckinMethodBackupCode CheckinMethod = "backup_code"
)

// Valid reports whether m is a known method.
func (m CheckinMethod) Valid() bool {
	return m == CheckinMethodQRScan || m == CheckinMethodBackupCode
}

// Attendance is written once per registration on a successful check-in and never updated.
type Attendance struct {
	ID             uuid.UUID     `json:"id" gorm:"type:char(36);primaryKey"`
	RegistrationID uuid.UUID     `json:"registration_id" gorm:"type:char(36);not null;uniqueIndex"`
	EventID        uuid.UUID     `json:"event_id" gorm:"type:char(36);not null;index"`
	Method         CheckinMethod `json:"method" gorm:"type:varchar(20);not null"`
	CheckedInBy    uuid.UUID     `json:"checked_in_by" gorm:"type:char(36);not null"`
	CheckedInAt    time.Time     `json:"checked_in_at" gorm:"not null"`
}

// TableName keeps the table name singular, matching the other attendance consumers.
func (Attendance) TableName() string {
	return "attendance"
}

// BeforeCreate sets UUID and check-in time before creating the record.
func (a *Attendance) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CheckedInAt.IsZero() {
		a.CheckedInAt = time.Now()
	}
	return nil
}
