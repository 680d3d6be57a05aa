package db

import (
	"errors"
	"fmt"
	"testing"

	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"swiftattend/internal/model"
)

func TestIsUniqueViolation(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"translated", fmt.Errorf("create: %w", gorm.ErrDuplicatedKey), true},
		{"postgres unique", &pgconn.PgError{Code: "23505"}, true},
		{"postgres fk", &pgconn.PgError{Code: "23503"}, false},
		{"mysql duplicate", &mysqldriver.MySQLError{Number: 1062}, true},
		{"sqlite text", errors.New("UNIQUE constraint failed: attendance.registration_id"), true},
		{"other", errors.New("connection reset"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsUniqueViolation(tt.err))
		})
	}
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open("oracle", "", false)
	assert.Error(t, err)
}

func TestMigrate_SQLiteEnforcesAttendanceUniqueness(t *testing.T) {
	gormDB, err := Open(DriverSQLite, "file:migrate_test?mode=memory&cache=shared", false)
	require.NoError(t, err)
	require.NoError(t, Migrate(gormDB))
	t.Cleanup(func() { Reset(gormDB) })

	registrationID := uuid.New()
	first := &model.Attendance{RegistrationID: registrationID, Method: model.CheckinMethodQRScan}
	require.NoError(t, gormDB.Create(first).Error)

	second := &model.Attendance{RegistrationID: registrationID, Method: model.CheckinMethodBackupCode}
	err = gormDB.Create(second).Error
	assert.True(t, IsUniqueViolation(err), "got %v", err)
}
