package service

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	apperrors "swiftattend/internal/errors"
)

const dateLayout = "2006-01-02"

var clockLayouts = []string{"15:04", "15:04:05"}

// Clock tells the services what day it is in the configured timezone.
type Clock struct {
	Now      func() time.Time
	Location *time.Location
}

// NewClock returns a wall clock for loc. A nil loc means UTC.
func NewClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return Clock{Now: time.Now, Location: loc}
}

// Today returns the local calendar day, stored as UTC midnight like event dates.
func (c Clock) Today() datatypes.Date {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := now().In(loc).Date()
	return datatypes.Date(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

// ParseDate parses YYYY-MM-DD into a date-only value.
func ParseDate(value string) (datatypes.Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(value))
	if err != nil {
		return datatypes.Date{}, apperrors.NewValidationError("date must be YYYY-MM-DD, got %q", value)
	}
	return datatypes.Date(t), nil
}

// ParseClock parses HH:MM or HH:MM:SS into a time of day.
func ParseClock(value string) (datatypes.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return datatypes.NewTime(t.Hour(), t.Minute(), t.Second(), 0), nil
		}
	}
	return 0, apperrors.NewValidationError("time must be HH:MM, got %q", value)
}

func dateBefore(a, b datatypes.Date) bool {
	return time.Time(a).Before(time.Time(b))
}
