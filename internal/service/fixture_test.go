package service

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"swiftattend/internal/cache"
	"swiftattend/internal/model"
	"swiftattend/internal/repository"
	"swiftattend/internal/testutil"
)

// fixture wires the services over one in-memory database.
type fixture struct {
	db    *gorm.DB
	cache *cache.Client
	clock Clock
	now   time.Time

	users         UserService
	events        EventService
	registrations RegistrationService
	checkins      CheckinService
	support       SupportService

	admin *model.User
	staff *model.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithCache(t, nil)
}

func newFixtureWithRedis(t *testing.T) (*fixture, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c := cache.NewFromRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	t.Cleanup(func() { _ = c.Close() })
	return newFixtureWithCache(t, c), mr
}

func newFixtureWithCache(t *testing.T, c *cache.Client) *fixture {
	t.Helper()
	gormDB := testutil.OpenTestDB(t)

	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	clock := Clock{Now: func() time.Time { return now }, Location: time.UTC}

	userRepo := repository.NewUserRepository(gormDB)
	eventRepo := repository.NewEventRepository(gormDB)
	registrationRepo := repository.NewRegistrationRepository(gormDB)
	attendanceRepo := repository.NewAttendanceRepository(gormDB)
	checkinLogRepo := repository.NewCheckinLogRepository(gormDB)
	supportRepo := repository.NewSupportMessageRepository(gormDB)

	f := &fixture{
		db:            gormDB,
		cache:         c,
		clock:         clock,
		now:           now,
		users:         NewUserService(userRepo, c),
		events:        NewEventService(eventRepo, registrationRepo, attendanceRepo, c, clock),
		registrations: NewRegistrationService(eventRepo, registrationRepo, c, NewCodeGenerator(), clock),
		checkins:      NewCheckinService(eventRepo, registrationRepo, attendanceRepo, checkinLogRepo, c),
		support:       NewSupportService(supportRepo, eventRepo),
	}
	t.Cleanup(f.checkins.Close)

	f.admin = testutil.CreateUser(t, gormDB, "Admin", model.RoleAdmin)
	f.staff = testutil.CreateUser(t, gormDB, "Door Staff", model.RoleStaff)
	return f
}

// eventOn creates an event offset days from the fixture's today.
func (f *fixture) eventOn(t *testing.T, name string, offset int) *model.Event {
	t.Helper()
	return testutil.CreateEvent(t, f.db, name, f.now.AddDate(0, 0, offset), f.admin.ID)
}

func (f *fixture) participant(t *testing.T, name string) *model.User {
	t.Helper()
	return testutil.CreateUser(t, f.db, name, model.RoleParticipant)
}

func (f *fixture) attendanceCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.db.Model(&model.Attendance{}).Count(&n).Error; err != nil {
		t.Fatalf("count attendance: %v", err)
	}
	return n
}
