package service

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftattend/internal/auth"
	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/testutil"
)

func TestRegistrationService_Register(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.eventOn(t, "Hack Night", 1)
	user := f.participant(t, "Ada")

	reg, err := f.registrations.Register(ctx, event.ID, user.ID)
	require.NoError(t, err)
	assert.Equal(t, event.ID, reg.EventID)
	assert.Equal(t, user.ID, reg.UserID)
	assert.Len(t, reg.BackupCode, BackupCodeLength)
	assert.Equal(t, strings.ToUpper(reg.BackupCode), reg.BackupCode)
	assert.True(t, strings.HasPrefix(reg.QRPayload, "SA1:"+event.ID.String()+":"+user.ID.String()+":"+reg.ID.String()+":"))

	_, err = f.registrations.Register(ctx, event.ID, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyRegistered)

	other, err := f.registrations.Register(ctx, event.ID, f.participant(t, "Grace").ID)
	require.NoError(t, err)
	assert.NotEqual(t, reg.BackupCode, other.BackupCode)
	assert.NotEqual(t, reg.QRPayload, other.QRPayload)
}

func TestRegistrationService_RegisterRejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.participant(t, "Ada")

	_, err := f.registrations.Register(ctx, uuid.New(), user.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)

	past := f.eventOn(t, "last week", -7)
	_, err = f.registrations.Register(ctx, past.ID, user.ID)
	assert.ErrorIs(t, err, apperrors.ErrEventPassed)

	today := f.eventOn(t, "today", 0)
	_, err = f.registrations.Register(ctx, today.ID, user.ID)
	assert.NoError(t, err)
}

func TestRegistrationService_RegisterConcurrentlyRespectsCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	event, err := f.events.CreateEvent(ctx, f.admin.ID, EventInput{Name: "Small Room", Date: "2026-03-20", MaxCapacity: intPtr(3)})
	require.NoError(t, err)

	users := make([]*model.User, 8)
	for i := range users {
		users[i] = f.participant(t, "Guest")
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		full      int
	)
	for _, u := range users {
		wg.Add(1)
		go func(userID uuid.UUID) {
			defer wg.Done()
			_, err := f.registrations.Register(ctx, event.ID, userID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case assert.ErrorIs(t, err, apperrors.ErrEventFull):
				full++
			}
		}(u.ID)
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	assert.Equal(t, 5, full)
}

func TestRegistrationService_RetriesBackupCodeCollision(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.eventOn(t, "Collision", 1)

	testutil.CreateRegistration(t, f.db, event.ID, f.participant(t, "Ada").ID, "AAAAAAAA")

	// first code collides with the existing registration, second is fresh
	src := append(bytes.Repeat([]byte{0}, 16), bytes.Repeat([]byte{1}, 16)...)
	svc := f.registrations.(*registrationService)
	svc.codes = &CodeGenerator{random: bytes.NewReader(src), now: f.clock.Now}

	reg, err := f.registrations.Register(ctx, event.ID, f.participant(t, "Grace").ID)
	require.NoError(t, err)
	assert.Equal(t, "BBBBBBBB", reg.BackupCode)
}

func TestRegistrationService_GetRegistration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.eventOn(t, "Talk", 1)
	owner := f.participant(t, "Ada")
	stranger := f.participant(t, "Mallory")

	reg, err := f.registrations.Register(ctx, event.ID, owner.ID)
	require.NoError(t, err)

	got, err := f.registrations.GetRegistration(ctx, reg.ID, auth.IdentityFromUser(owner))
	require.NoError(t, err)
	require.NotNil(t, got.Event)
	assert.Equal(t, "Talk", got.Event.Name)
	assert.False(t, got.CheckedIn())

	_, err = f.registrations.GetRegistration(ctx, reg.ID, auth.IdentityFromUser(f.staff))
	assert.NoError(t, err)

	_, err = f.registrations.GetRegistration(ctx, reg.ID, auth.IdentityFromUser(stranger))
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)

	_, err = f.registrations.GetRegistration(ctx, uuid.New(), auth.IdentityFromUser(f.admin))
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)
}

func TestRegistrationService_ListMineAndForEvent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first := f.eventOn(t, "First", 1)
	second := f.eventOn(t, "Second", 2)
	ada := f.participant(t, "Ada")
	grace := f.participant(t, "Grace")

	adaFirst, err := f.registrations.Register(ctx, first.ID, ada.ID)
	require.NoError(t, err)
	_, err = f.registrations.Register(ctx, second.ID, ada.ID)
	require.NoError(t, err)
	_, err = f.registrations.Register(ctx, first.ID, grace.ID)
	require.NoError(t, err)
	_, err = f.checkins.CheckIn(ctx, CheckinInput{EventID: first.ID, Code: adaFirst.QRPayload, StaffID: f.staff.ID})
	require.NoError(t, err)

	mine, err := f.registrations.ListMine(ctx, ada.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, r := range mine {
		require.NotNil(t, r.Event)
		assert.Equal(t, r.ID == adaFirst.ID, r.CheckedIn())
	}

	attendees, err := f.registrations.ListForEvent(ctx, first.ID)
	require.NoError(t, err)
	require.Len(t, attendees, 2)
	assert.Equal(t, "Ada", attendees[0].User.Name)
	assert.True(t, attendees[0].CheckedIn())
	assert.False(t, attendees[1].CheckedIn())

	_, err = f.registrations.ListForEvent(ctx, uuid.New())
	assert.ErrorIs(t, err, apperrors.ErrEventNotFound)
}

func TestRegistrationService_Lookup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.eventOn(t, "Lookup", 1)
	reg, err := f.registrations.Register(ctx, event.ID, f.participant(t, "Ada").ID)
	require.NoError(t, err)

	found, method, err := f.registrations.Lookup(ctx, "  "+reg.QRPayload+"\n")
	require.NoError(t, err)
	assert.Equal(t, reg.ID, found.ID)
	assert.Equal(t, model.CheckinMethodQRScan, method)

	found, method, err = f.registrations.Lookup(ctx, strings.ToLower(reg.BackupCode))
	require.NoError(t, err)
	assert.Equal(t, reg.ID, found.ID)
	assert.Equal(t, model.CheckinMethodBackupCode, method)

	_, _, err = f.registrations.Lookup(ctx, "ZZZZZZZZ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)
	_, _, err = f.registrations.Lookup(ctx, "not a code")
	assert.ErrorIs(t, err, apperrors.ErrInvalidCode)
	_, _, err = f.registrations.Lookup(ctx, "   ")
	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

func TestRegistrationService_DeleteRegistrationRemovesOnlyItsAttendance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.eventOn(t, "Workshop", 1)

	doomed, err := f.registrations.Register(ctx, event.ID, f.participant(t, "Ada").ID)
	require.NoError(t, err)
	kept, err := f.registrations.Register(ctx, event.ID, f.participant(t, "Grace").ID)
	require.NoError(t, err)
	for _, r := range []*model.Registration{doomed, kept} {
		_, err := f.checkins.CheckIn(ctx, CheckinInput{EventID: event.ID, Code: r.BackupCode, StaffID: f.staff.ID})
		require.NoError(t, err)
	}

	require.NoError(t, f.registrations.DeleteRegistration(ctx, doomed.ID))

	assert.Equal(t, int64(1), f.attendanceCount(t))
	remaining, err := f.registrations.ListForEvent(ctx, event.ID)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, kept.ID, remaining[0].ID)
	assert.True(t, remaining[0].CheckedIn())

	_, err = f.events.GetEvent(ctx, event.ID)
	assert.NoError(t, err)
	assert.ErrorIs(t, f.registrations.DeleteRegistration(ctx, doomed.ID), apperrors.ErrRegistrationNotFound)
}

func TestRegistrationService_QRCodePNG(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	event := f.eventOn(t, "QR", 1)
	owner := f.participant(t, "Ada")
	reg, err := f.registrations.Register(ctx, event.ID, owner.ID)
	require.NoError(t, err)

	png, err := f.registrations.QRCodePNG(ctx, reg.ID, auth.IdentityFromUser(owner), 0)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(png, []byte("\x89PNG\r\n\x1a\n")))

	_, err = f.registrations.QRCodePNG(ctx, reg.ID, auth.IdentityFromUser(f.participant(t, "Eve")), 0)
	assert.ErrorIs(t, err, apperrors.ErrRegistrationNotFound)
}
