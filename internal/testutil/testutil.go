package testutil

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"swiftattend/internal/db"
	"swiftattend/internal/model"
)

// OpenTestDB opens a private in-memory SQLite database with the schema applied.
func OpenTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%s?mode=memory&cache=shared", name, uuid.NewString()[:8])
	gormDB, err := db.Open(db.DriverSQLite, dsn, false)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return gormDB
}

// Day returns the date-only value for t in UTC.
func Day(t time.Time) datatypes.Date {
	y, m, d := t.Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// CreateUser inserts a user with the given role.
func CreateUser(t *testing.T, gormDB *gorm.DB, name string, role model.Role) *model.User {
	t.Helper()
	user := &model.User{
		Name:  name,
		Email: strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "-" + uuid.NewString()[:6] + "@qatar.cmu.edu",
		Role:  role,
	}
	if err := gormDB.Create(user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user
}

// CreateEvent inserts an event on the given day.
func CreateEvent(t *testing.T, gormDB *gorm.DB, name string, day time.Time, creator uuid.UUID) *model.Event {
	t.Helper()
	event := &model.Event{
		ID:        uuid.New(),
		Name:      name,
		Date:      Day(day),
		CreatedBy: creator,
	}
	event.QRPayload = "SA1-EVT:" + event.ID.String()
	if err := gormDB.Create(event).Error; err != nil {
		t.Fatalf("create event: %v", err)
	}
	return event
}

// CreateRegistration inserts a registration with the given backup code.
func CreateRegistration(t *testing.T, gormDB *gorm.DB, eventID, userID uuid.UUID, backupCode string) *model.Registration {
	t.Helper()
	registration := &model.Registration{
		ID:         uuid.New(),
		EventID:    eventID,
		UserID:     userID,
		BackupCode: backupCode,
	}
	registration.QRPayload = "SA1:" + eventID.String() + ":" + userID.String() + ":" + registration.ID.String()
	if err := gormDB.Create(registration).Error; err != nil {
		t.Fatalf("create registration: %v", err)
	}
	return registration
}
