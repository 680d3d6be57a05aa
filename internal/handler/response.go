package handler

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/datatypes"

	"swiftattend/internal/auth"
	"swiftattend/internal/errors"
	"swiftattend/internal/model"
)

const dateLayout = "2006-01-02"

// bindAndValidate decodes the request into req and runs its validate tags.
func bindAndValidate(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if err := c.Validate(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
	}
	return nil
}

// errorResponse converts a service error into an echo error with a JSON body.
func errorResponse(c echo.Context, err error) error {
	httpErr := errors.MapErrorToHTTP(err)
	if httpErr.StatusCode >= http.StatusInternalServerError {
		log.Printf("%s %s: %v", c.Request().Method, c.Path(), err)
	}
	return echo.NewHTTPError(httpErr.StatusCode, httpErr.ToErrorResponse())
}

// uuidParam parses a path parameter as a UUID.
func uuidParam(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: fmt.Sprintf("invalid %s", name),
			Code:  "INVALID_UUID",
		})
	}
	return id, nil
}

// identity returns the authenticated caller.
func identity(c echo.Context) (auth.Identity, error) {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return auth.Identity{}, echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: "missing or invalid token",
			Code:  "INVALID_TOKEN",
		})
	}
	return claims.Identity(), nil
}

// MessageResponse is a plain acknowledgement.
type MessageResponse struct {
	Message string `json:"message"`
}

// EventResponse is an event as shown to clients, with a date-only date and HH:MM times.
type EventResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Date        string    `json:"date"`
	StartTime   string    `json:"start_time,omitempty"`
	EndTime     string    `json:"end_time,omitempty"`
	Location    string    `json:"location"`
	MaxCapacity *int      `json:"max_capacity,omitempty"`
	PosterURL   string    `json:"poster_url,omitempty"`
	QRPayload   string    `json:"qr_payload"`
	CreatedBy   uuid.UUID `json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
}

func newEventResponse(e *model.Event) EventResponse {
	return EventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Date:        time.Time(e.Date).Format(dateLayout),
		StartTime:   formatClock(e.StartTime),
		EndTime:     formatClock(e.EndTime),
		Location:    e.Location,
		MaxCapacity: e.MaxCapacity,
		PosterURL:   e.PosterURL,
		QRPayload:   e.QRPayload,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
	}
}

func newEventResponses(events []model.Event) []EventResponse {
	out := make([]EventResponse, 0, len(events))
	for i := range events {
		out = append(out, newEventResponse(&events[i]))
	}
	return out
}

func formatClock(t *datatypes.Time) string {
	if t == nil {
		return ""
	}
	d := time.Duration(*t)
	return fmt.Sprintf("%02d:%02d", int(d.Hours()), int(d.Minutes())%60)
}

// RegistrationResponse is a registration with its attendee and check-in state.
type RegistrationResponse struct {
	ID            uuid.UUID           `json:"id"`
	EventID       uuid.UUID           `json:"event_id"`
	UserID        uuid.UUID           `json:"user_id"`
	QRPayload     string              `json:"qr_payload"`
	BackupCode    string              `json:"backup_code"`
	CreatedAt     time.Time           `json:"created_at"`
	AttendeeName  string              `json:"attendee_name,omitempty"`
	AttendeeEmail string              `json:"attendee_email,omitempty"`
	StudentID     string              `json:"student_id,omitempty"`
	CheckedIn     bool                `json:"checked_in"`
	CheckedInAt   *time.Time          `json:"checked_in_at,omitempty"`
	Method        model.CheckinMethod `json:"method,omitempty"`
	Event         *EventResponse      `json:"event,omitempty"`
}

func newRegistrationResponse(r *model.Registration) RegistrationResponse {
	resp := RegistrationResponse{
		ID:         r.ID,
		EventID:    r.EventID,
		UserID:     r.UserID,
		QRPayload:  r.QRPayload,
		BackupCode: r.BackupCode,
		CreatedAt:  r.CreatedAt,
		CheckedIn:  r.CheckedIn(),
	}
	if r.User != nil {
		resp.AttendeeName = r.User.Name
		resp.AttendeeEmail = r.User.Email
		resp.StudentID = r.User.StudentID
	}
	if r.Attendance != nil {
		at := r.Attendance.CheckedInAt
		resp.CheckedInAt = &at
		resp.Method = r.Attendance.Method
	}
	if r.Event != nil {
		event := newEventResponse(r.Event)
		resp.Event = &event
	}
	return resp
}

func newRegistrationResponses(registrations []model.Registration) []RegistrationResponse {
	out := make([]RegistrationResponse, 0, len(registrations))
	for i := range registrations {
		out = append(out, newRegistrationResponse(&registrations[i]))
	}
	return out
}
