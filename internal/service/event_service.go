package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"

	"swiftattend/internal/cache"
	"swiftattend/internal/db"
	apperrors "swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/repository"
)

const statsCacheTTL = 30 * time.Second

// EventInput is the payload for creating an event. Date is YYYY-MM-DD and
// times are HH:MM; empty times mean unset.
type EventInput struct {
	Name        string
	Description string
	Date        string
	StartTime   string
	EndTime     string
	Location    string
	MaxCapacity *int
	PosterURL   string
}

// EventUpdate is a partial edit. Nil fields keep their value. An empty
// StartTime or EndTime clears it, and a MaxCapacity of 0 removes the limit.
type EventUpdate struct {
	Name        *string
	Description *string
	Date        *string
	StartTime   *string
	EndTime     *string
	Location    *string
	MaxCapacity *int
	PosterURL   *string
}

// EventListQuery narrows the staff and admin listing. Participants always
// get upcoming events only.
type EventListQuery struct {
	From  string
	To    string
	Limit int
}

// EventStats summarises registrations and check-ins for one event.
type EventStats struct {
	EventID        uuid.UUID                     `json:"event_id"`
	Registered     int64                         `json:"registered"`
	CheckedIn      int64                         `json:"checked_in"`
	NotCheckedIn   int64                         `json:"not_checked_in"`
	ByMethod       map[model.CheckinMethod]int64 `json:"by_method"`
	Capacity       *int                          `json:"capacity,omitempty"`
	Remaining      *int64                        `json:"remaining,omitempty"`
	AttendanceRate decimal.Decimal               `json:"attendance_rate"`
}

// EventService handles event administration and listing.
type EventService interface {
	CreateEvent(ctx context.Context, creator uuid.UUID, in EventInput) (*model.Event, error)
	UpdateEvent(ctx context.Context, id uuid.UUID, in EventUpdate) (*model.Event, error)
	DeleteEvent(ctx context.Context, id uuid.UUID) error
	GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error)
	ListEvents(ctx context.Context, role model.Role, q EventListQuery) ([]model.Event, error)
	GetEventStats(ctx context.Context, id uuid.UUID) (*EventStats, error)
	ImportEvents(ctx context.Context, creator uuid.UUID, inputs []EventInput) (*ImportResult, error)
}

// ImportResult reports a bulk event import. Invalid entries are skipped, not fatal.
type ImportResult struct {
	Created []uuid.UUID  `json:"created"`
	Skipped []ImportSkip `json:"skipped"`
}

// ImportSkip names an entry that was not imported and why.
type ImportSkip struct {
	Index  int    `json:"index"`
	Name   string `json:"name"`
	Reason string `json:"reason"`
}

type eventService struct {
	eventRepo        repository.EventRepository
	registrationRepo repository.RegistrationRepository
	attendanceRepo   repository.AttendanceRepository
	cache            *cache.Client
	clock            Clock
}

// NewEventService creates a new event service.
func NewEventService(
	eventRepo repository.EventRepository,
	registrationRepo repository.RegistrationRepository,
	attendanceRepo repository.AttendanceRepository,
	cache *cache.Client,
	clock Clock,
) EventService {
	return &eventService{
		eventRepo:        eventRepo,
		registrationRepo: registrationRepo,
		attendanceRepo:   attendanceRepo,
		cache:            cache,
		clock:            clock,
	}
}

func statsCacheKey(eventID uuid.UUID) string {
	return "event_stats:" + eventID.String()
}

// invalidateStats drops cached stats after anything that changes the counts.
func invalidateStats(ctx context.Context, c *cache.Client, eventID uuid.UUID) {
	_ = c.Delete(ctx, statsCacheKey(eventID))
}

// findEvent loads an event, translating a missing row to ErrEventNotFound.
func findEvent(ctx context.Context, repo repository.EventRepository, id uuid.UUID) (*model.Event, error) {
	event, err := repo.FindByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apperrors.ErrEventNotFound
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return event, nil
}

// CreateEvent validates the input and stores a new event with its own QR payload.
func (s *eventService) CreateEvent(ctx context.Context, creator uuid.UUID, in EventInput) (*model.Event, error) {
	event := &model.Event{
		ID:          uuid.New(),
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Location:    strings.TrimSpace(in.Location),
		PosterURL:   strings.TrimSpace(in.PosterURL),
		MaxCapacity: in.MaxCapacity,
		CreatedBy:   creator,
	}
	if in.Date == "" {
		return nil, apperrors.NewValidationError("date is required")
	}
	date, err := ParseDate(in.Date)
	if err != nil {
		return nil, err
	}
	event.Date = date
	if event.StartTime, err = parseOptionalClock(in.StartTime); err != nil {
		return nil, err
	}
	if event.EndTime, err = parseOptionalClock(in.EndTime); err != nil {
		return nil, err
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}
	event.QRPayload = EventQRPayload(event.ID)

	if err := s.eventRepo.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("create event: %w", err)
	}
	return event, nil
}

// UpdateEvent applies a partial edit. Capacity may not drop below the
// number of registrations already taken.
func (s *eventService) UpdateEvent(ctx context.Context, id uuid.UUID, in EventUpdate) (*model.Event, error) {
	event, err := findEvent(ctx, s.eventRepo, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		event.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		event.Description = strings.TrimSpace(*in.Description)
	}
	if in.Location != nil {
		event.Location = strings.TrimSpace(*in.Location)
	}
	if in.PosterURL != nil {
		event.PosterURL = strings.TrimSpace(*in.PosterURL)
	}
	if in.Date != nil {
		if event.Date, err = ParseDate(*in.Date); err != nil {
			return nil, err
		}
	}
	if in.StartTime != nil {
		if event.StartTime, err = parseOptionalClock(*in.StartTime); err != nil {
			return nil, err
		}
	}
	if in.EndTime != nil {
		if event.EndTime, err = parseOptionalClock(*in.EndTime); err != nil {
			return nil, err
		}
	}
	if in.MaxCapacity != nil {
		if *in.MaxCapacity == 0 {
			event.MaxCapacity = nil
		} else {
			capacity := *in.MaxCapacity
			event.MaxCapacity = &capacity
		}
	}
	if err := validateEvent(event); err != nil {
		return nil, err
	}

	if event.MaxCapacity != nil {
		registered, err := s.registrationRepo.CountByEvent(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("count registrations: %w", err)
		}
		if registered > int64(*event.MaxCapacity) {
			return nil, apperrors.ErrCapacityBelowRegistrations
		}
	}

	if err := s.eventRepo.Update(ctx, event); err != nil {
		return nil, fmt.Errorf("update event: %w", err)
	}
	invalidateStats(ctx, s.cache, id)
	return event, nil
}

// DeleteEvent removes the event together with its registrations and attendance.
func (s *eventService) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	if err := s.eventRepo.Delete(ctx, id); err != nil {
		if db.IsNotFound(err) {
			return apperrors.ErrEventNotFound
		}
		return fmt.Errorf("delete event: %w", err)
	}
	invalidateStats(ctx, s.cache, id)
	return nil
}

func (s *eventService) GetEvent(ctx context.Context, id uuid.UUID) (*model.Event, error) {
	return findEvent(ctx, s.eventRepo, id)
}

// ListEvents returns events in display order. Participants see events dated
// today or later; admin and staff see everything, optionally narrowed by q.
func (s *eventService) ListEvents(ctx context.Context, role model.Role, q EventListQuery) ([]model.Event, error) {
	var filter repository.EventFilter
	if role.CanManageCheckins() {
		if q.From != "" {
			from, err := ParseDate(q.From)
			if err != nil {
				return nil, err
			}
			filter.From = &from
		}
		if q.To != "" {
			to, err := ParseDate(q.To)
			if err != nil {
				return nil, err
			}
			filter.To = &to
		}
		if q.Limit < 0 {
			return nil, apperrors.NewValidationError("limit must not be negative")
		}
		filter.Limit = q.Limit
	} else {
		today := s.clock.Today()
		filter.From = &today
	}

	events, err := s.eventRepo.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	return events, nil
}

// GetEventStats counts registrations and check-ins. Results are cached
// briefly and dropped whenever the counts change.
func (s *eventService) GetEventStats(ctx context.Context, id uuid.UUID) (*EventStats, error) {
	var cached EventStats
	if s.cache.GetJSON(ctx, statsCacheKey(id), &cached) {
		return &cached, nil
	}

	event, err := findEvent(ctx, s.eventRepo, id)
	if err != nil {
		return nil, err
	}

	registered, err := s.registrationRepo.CountByEvent(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count registrations: %w", err)
	}
	methods, err := s.attendanceRepo.CountByMethod(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count check-ins: %w", err)
	}

	stats := &EventStats{
		EventID:    id,
		Registered: registered,
		ByMethod: map[model.CheckinMethod]int64{
			model.CheckinMethodQRScan:     0,
			model.CheckinMethodBackupCode: 0,
		},
		Capacity:       event.MaxCapacity,
		Remaining:      event.Remaining(registered),
		AttendanceRate: decimal.Zero,
	}
	for _, m := range methods {
		stats.ByMethod[m.Method] += m.Count
		stats.CheckedIn += m.Count
	}
	stats.NotCheckedIn = registered - stats.CheckedIn
	if registered > 0 {
		stats.AttendanceRate = decimal.NewFromInt(stats.CheckedIn).
			Mul(decimal.NewFromInt(100)).
			Div(decimal.NewFromInt(registered)).
			Round(2)
	}

	_ = s.cache.SetJSON(ctx, statsCacheKey(id), stats, statsCacheTTL)
	return stats, nil
}

// ImportEvents creates each valid input and skips the rest. Only storage
// failures abort the import.
func (s *eventService) ImportEvents(ctx context.Context, creator uuid.UUID, inputs []EventInput) (*ImportResult, error) {
	result := &ImportResult{Created: []uuid.UUID{}, Skipped: []ImportSkip{}}
	for i, in := range inputs {
		event, err := s.CreateEvent(ctx, creator, in)
		if err != nil {
			if !errors.Is(err, apperrors.ErrValidation) {
				return result, err
			}
			result.Skipped = append(result.Skipped, ImportSkip{Index: i, Name: in.Name, Reason: err.Error()})
			continue
		}
		result.Created = append(result.Created, event.ID)
	}
	return result, nil
}

func parseOptionalClock(value string) (*datatypes.Time, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	t, err := ParseClock(value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func validateEvent(event *model.Event) error {
	if event.Name == "" {
		return apperrors.NewValidationError("name is required")
	}
	if time.Time(event.Date).IsZero() {
		return apperrors.NewValidationError("date is required")
	}
	if event.StartTime != nil && event.EndTime != nil && *event.EndTime <= *event.StartTime {
		return apperrors.NewValidationError("end_time must be after start_time")
	}
	if event.MaxCapacity != nil && *event.MaxCapacity < 1 {
		return apperrors.NewValidationError("max_capacity must be at least 1")
	}
	return nil
}
