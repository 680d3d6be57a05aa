package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
)

func intPtr(v int) *int { return &v }

func strPtr(v string) *string { return &v }

func TestEventService_CreateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		input   EventInput
		wantErr error
	}{
		{"valid", EventInput{Name: " Hack Night ", Date: "2026-04-01", StartTime: "18:00", EndTime: "21:30", MaxCapacity: intPtr(40)}, nil},
		{"no times", EventInput{Name: "Open House", Date: "2026-04-02"}, nil},
		{"missing name", EventInput{Date: "2026-04-01"}, apperrors.ErrValidation},
		{"missing date", EventInput{Name: "x"}, apperrors.ErrValidation},
		{"bad date", EventInput{Name: "x", Date: "04/01/2026"}, apperrors.ErrValidation},
		{"bad time", EventInput{Name: "x", Date: "2026-04-01", StartTime: "7pm"}, apperrors.ErrValidation},
		{"end before start", EventInput{Name: "x", Date: "2026-04-01", StartTime: "18:00", EndTime: "17:00"}, apperrors.ErrValidation},
		{"zero capacity", EventInput{Name: "x", Date: "2026-04-01", MaxCapacity: intPtr(0)}, apperrors.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event, err := f.events.CreateEvent(ctx, f.admin.ID, tt.input)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, event)
				return
			}
			require.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, event.ID)
			assert.Equal(t, EventQRPayload(event.ID), event.QRPayload)
			assert.Equal(t, f.admin.ID, event.CreatedBy)

			stored, err := f.events.GetEvent(ctx, event.ID)
			require.NoError(t, err)
			assert.Equal(t, event.Name, stored.Name)
		})
	}
}

func TestEventService_UpdateEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.events.CreateEvent(ctx, f.admin.ID, EventInput{Name: "Career Fair", Date: "2026-04-01", StartTime: "10:00", MaxCapacity: intPtr(5)})
	require.NoError(t, err)
	for _, name := range []string{"Ada", "Grace", "Linus"} {
		_, err := f.registrations.Register(ctx, event.ID, f.participant(t, name).ID)
		require.NoError(t, err)
	}

	t.Run("partial edit keeps other fields", func(t *testing.T) {
		updated, err := f.events.UpdateEvent(ctx, event.ID, EventUpdate{Location: strPtr("Atrium")})
		require.NoError(t, err)
		assert.Equal(t, "Atrium", updated.Location)
		assert.Equal(t, "Career Fair", updated.Name)
		require.NotNil(t, updated.StartTime)
	})

	t.Run("capacity below registrations", func(t *testing.T) {
		_, err := f.events.UpdateEvent(ctx, event.ID, EventUpdate{MaxCapacity: intPtr(2)})
		assert.ErrorIs(t, err, apperrors.ErrCapacityBelowRegistrations)
	})

	t.Run("capacity equal to registrations", func(t *testing.T) {
		updated, err := f.events.UpdateEvent(ctx, event.ID, EventUpdate{MaxCapacity: intPtr(3)})
		require.NoError(t, err)
		assert.Equal(t, 3, *updated.MaxCapacity)
	})

	t.Run("zero removes the limit", func(t *testing.T) {
		updated, err := f.events.UpdateEvent(ctx, event.ID, EventUpdate{MaxCapacity: intPtr(0)})
		require.NoError(t, err)
		assert.Nil(t, updated.MaxCapacity)
	})

	t.Run("empty start time clears it", func(t *testing.T) {
		updated, err := f.events.UpdateEvent(ctx, event.ID, EventUpdate{StartTime: strPtr("")})
		require.NoError(t, err)
		assert.Nil(t, updated.StartTime)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := f.events.UpdateEvent(ctx, event.ID, EventUpdate{Name: strPtr("  ")})
		assert.ErrorIs(t, err, apperrors.ErrValidation)
	})

	t.Run("unknown event", func(t *testing.T) {
		_, err := f.events.UpdateEvent(ctx, uuid.New(), EventUpdate{Name: strPtr("x")})
		assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	})
}

func TestEventService_ListEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.eventOn(t, "yesterday", -1)
	f.eventOn(t, "today", 0)
	f.eventOn(t, "next week", 7)

	participantView, err := f.events.ListEvents(ctx, model.RoleParticipant, EventListQuery{From: "2000-01-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{"today", "next week"}, names(participantView))

	staffView, err := f.events.ListEvents(ctx, model.RoleStaff, EventListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"yesterday", "today", "next week"}, names(staffView))

	window, err := f.events.ListEvents(ctx, model.RoleAdmin, EventListQuery{From: "2026-03-14", To: "2026-03-20"})
	require.NoError(t, err)
	assert.Equal(t, []string{"today"}, names(window))

	_, err = f.events.ListEvents(ctx, model.RoleAdmin, EventListQuery{From: "yesterday"})
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestEventService_ListEventsUsesConfiguredTimezone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	doha := time.FixedZone("AST", 3*60*60)
	// 22:30 UTC on the 14th is already the 15th in Doha.
	late := time.Date(2026, 3, 14, 22, 30, 0, 0, time.UTC)
	svc := f.events.(*eventService)
	svc.clock = Clock{Now: func() time.Time { return late }, Location: doha}

	f.eventOn(t, "fourteenth", 0)
	f.eventOn(t, "fifteenth", 1)

	events, err := f.events.ListEvents(ctx, model.RoleParticipant, EventListQuery{})
	require.NoError(t, err)
	assert.Equal(t, []string{"fifteenth"}, names(events))
}

func TestEventService_DeleteEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event := f.eventOn(t, "doomed", 1)
	reg, err := f.registrations.Register(ctx, event.ID, f.participant(t, "Ada").ID)
	require.NoError(t, err)
	_, err = f.checkins.CheckIn(ctx, CheckinInput{EventID: event.ID, Code: reg.BackupCode, StaffID: f.staff.ID})
	require.NoError(t, err)

	require.NoError(t, f.events.DeleteEvent(ctx, event.ID))

	_, err = f.events.GetEvent(ctx, event.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
	assert.Zero(t, f.attendanceCount(t))
	assert.ErrorIs(t, f.events.DeleteEvent(ctx, event.ID), apperrors.ErrEventNotFound)
}

func TestEventService_GetEventStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.events.CreateEvent(ctx, f.admin.ID, EventInput{Name: "Demo Day", Date: "2026-03-20", MaxCapacity: intPtr(10)})
	require.NoError(t, err)

	var regs []*model.Registration
	for _, name := range []string{"Ada", "Grace", "Linus"} {
		reg, err := f.registrations.Register(ctx, event.ID, f.participant(t, name).ID)
		require.NoError(t, err)
		regs = append(regs, reg)
	}
	_, err = f.checkins.CheckIn(ctx, CheckinInput{EventID: event.ID, Code: regs[0].QRPayload, StaffID: f.staff.ID})
	require.NoError(t, err)
	_, err = f.checkins.CheckIn(ctx, CheckinInput{EventID: event.ID, Code: regs[1].BackupCode, StaffID: f.staff.ID})
	require.NoError(t, err)

	stats, err := f.events.GetEventStats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.Registered)
	assert.Equal(t, int64(2), stats.CheckedIn)
	assert.Equal(t, int64(1), stats.NotCheckedIn)
	assert.Equal(t, int64(1), stats.ByMethod[model.CheckinMethodQRScan])
	assert.Equal(t, int64(1), stats.ByMethod[model.CheckinMethodBackupCode])
	require.NotNil(t, stats.Remaining)
	assert.Equal(t, int64(7), *stats.Remaining)
	assert.True(t, decimal.RequireFromString("66.67").Equal(stats.AttendanceRate), stats.AttendanceRate.String())

	empty := f.eventOn(t, "empty", 2)
	stats, err = f.events.GetEventStats(ctx, empty.ID)
	require.NoError(t, err)
	assert.Nil(t, stats.Remaining)
	assert.True(t, stats.AttendanceRate.IsZero())

	_, err = f.events.GetEventStats(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestEventService_StatsCacheInvalidatedOnCheckin(t *testing.T) {
	f, mr := newFixtureWithRedis(t)
	ctx := context.Background()

	event := f.eventOn(t, "cached", 1)
	reg, err := f.registrations.Register(ctx, event.ID, f.participant(t, "Ada").ID)
	require.NoError(t, err)

	stats, err := f.events.GetEventStats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.CheckedIn)
	assert.True(t, mr.Exists(statsCacheKey(event.ID)))

	_, err = f.checkins.CheckIn(ctx, CheckinInput{EventID: event.ID, Code: reg.BackupCode, StaffID: f.staff.ID})
	require.NoError(t, err)
	assert.False(t, mr.Exists(statsCacheKey(event.ID)))

	stats, err = f.events.GetEventStats(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.CheckedIn)
	assert.Equal(t, "100", stats.AttendanceRate.String())
}

func names(events []model.Event) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.Name)
	}
	return out
}

func TestEventService_ImportEvents(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.events.ImportEvents(ctx, f.admin.ID, []EventInput{
		{Name: "Orientation", Date: "2026-08-20", StartTime: "09:00"},
		{Name: "", Date: "2026-08-21"},
		{Name: "Welcome BBQ", Date: "2026-08-21", MaxCapacity: intPtr(120)},
		{Name: "Broken", Date: "tomorrow"},
	})
	require.NoError(t, err)
	assert.Len(t, result.Created, 2)
	require.Len(t, result.Skipped, 2)
	assert.Equal(t, 1, result.Skipped[0].Index)
	assert.Equal(t, "Broken", result.Skipped[1].Name)

	events, err := f.events.ListEvents(ctx, model.RoleAdmin, EventListQuery{From: "2026-08-01"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Orientation", "Welcome BBQ"}, names(events))
}
