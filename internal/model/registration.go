package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Registration links one user to one event and carries the codes used at check-in.
// A user holds at most one registration per event.
type Registration struct {
	ID         uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	EventID    uuid.UUID `json:"event_id" gorm:"type:char(36);not null;uniqueIndex:idx_registration_event_user"`
	UserID     uuid.UUID `json:"user_id" gorm:"type:char(36);not null;uniqueIndex:idx_registration_event_user;index"`
	QRPayload  string    `json:"qr_payload" gorm:"size:255;not null;uniqueIndex"`
	BackupCode string    `json:"backup_code" gorm:"size:8;not null;uniqueIndex"`
	CreatedAt  time.Time `json:"created_at"`

	// Relations
	Event      *Event      `json:"event,omitempty" gorm:"foreignKey:EventID;constraint:OnDelete:CASCADE"`
	User       *User       `json:"user,omitempty" gorm:"foreignKey:UserID"`
	Attendance *Attendance `json:"attendance,omitempty" gorm:"foreignKey:RegistrationID;constraint:OnDelete:CASCADE"`
}

// BeforeCreate sets UUID before creating the record.
func (r *Registration) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

// CheckedIn reports whether an attendance record was loaded for the registration.
func (r *Registration) CheckedIn() bool {
	return r.Attendance != nil
}
