package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Role determines which operations a user may invoke.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleStaff       Role = "staff"
	RoleParticipant Role = "participant"
)

// Valid reports whether r is one of the three fixed roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleParticipant:
		return true
	}
	return false
}

// CanManageCheckins reports whether the role may scan codes and read attendance.
func (r Role) CanManageCheckins() bool {
	return r == RoleAdmin || r == RoleStaff
}

// User represents an authenticated user in the system.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:char(36);primaryKey"`
	Name      string    `json:"name" gorm:"size:255;not null"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:255;not null"`
	Role      Role      `json:"role" gorm:"type:varchar(20);not null;default:'participant';index"`
	StudentID string    `json:"student_id,omitempty" gorm:"size:64"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate sets UUID before creating the record.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
