package service

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportAttendance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.eventOn(t, "Demo Day / Spring", 1)

	ada := f.participant(t, "Ada")
	reg, err := f.registrations.Register(ctx, event.ID, ada.ID)
	require.NoError(t, err)
	_, err = f.registrations.Register(ctx, event.ID, f.participant(t, "Grace").ID)
	require.NoError(t, err)
	_, err = f.checkins.CheckIn(ctx, CheckinInput{EventID: event.ID, Code: reg.BackupCode, StaffID: f.staff.ID})
	require.NoError(t, err)

	export, err := ExportAttendance(ctx, f.events, f.registrations, event.ID, time.UTC)
	require.NoError(t, err)
	assert.Equal(t, "Demo-Day-Spring-2026-03-15-attendance.xlsx", export.Filename)

	book, err := excelize.OpenReader(bytes.NewReader(export.Data))
	require.NoError(t, err)
	defer book.Close()

	rows, err := book.GetRows(attendanceSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Backup Code", rows[0][3])
	assert.Equal(t, "Ada", rows[1][0])
	assert.Equal(t, reg.BackupCode, rows[1][3])
	assert.Equal(t, "backup_code", rows[1][6])
	assert.Equal(t, "Grace", rows[2][0])
	assert.Empty(t, cellAt(rows[2], 5))
	assert.Empty(t, cellAt(rows[2], 6))
}

func cellAt(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
