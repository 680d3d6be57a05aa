package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrValidation is returned when input is missing or malformed.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthorized is returned when credentials are wrong or missing.
	ErrUnauthorized = errors.New("invalid credentials")
	// ErrForbidden is returned when the caller's role may not perform the operation.
	ErrForbidden = errors.New("operation not permitted for this role")
	// ErrRoleMismatch is returned when logging in with a role other than the one the email was registered with.
	ErrRoleMismatch = errors.New("email is registered with a different role")
	// ErrEmailDomainNotAllowed is returned when a participant email is outside the allow-list.
	ErrEmailDomainNotAllowed = errors.New("email domain is not allowed")

	// ErrUserNotFound is returned when a user is not found.
	ErrUserNotFound = errors.New("user not found")
	// ErrEventNotFound is returned when an event is not found.
	ErrEventNotFound = errors.New("event not found")
	// ErrRegistrationNotFound is returned when a registration is not found.
	ErrRegistrationNotFound = errors.New("registration not found")
	// ErrSupportMessageNotFound is returned when a support message is not found.
	ErrSupportMessageNotFound = errors.New("support message not found")

	// ErrAlreadyRegistered is returned when the user already holds a registration for the event.
	ErrAlreadyRegistered = errors.New("already registered for this event")
	// ErrEventFull is returned when the event has reached its capacity.
	ErrEventFull = errors.New("event is full")
	// ErrEventPassed is returned when registering for an event dated before today.
	ErrEventPassed = errors.New("event has already taken place")
	// ErrCapacityBelowRegistrations is returned when an edit would set capacity under the current count.
	ErrCapacityBelowRegistrations = errors.New("capacity is below the number of registrations")

	// ErrInvalidCode is returned when a code matches neither a QR payload nor a backup code.
	ErrInvalidCode = errors.New("invalid code")
	// ErrWrongEvent is returned when a code belongs to a registration for another event.
	ErrWrongEvent = errors.New("code is for a different event")
	// ErrAlreadyCheckedIn is returned when the registration already has an attendance record.
	ErrAlreadyCheckedIn = errors.New("already checked in")

	// ErrAlreadyResolved is returned when resolving a support message twice.
	ErrAlreadyResolved = errors.New("support message already resolved")
)

// AlreadyCheckedInError carries the attendee who was already checked in.
// It matches ErrAlreadyCheckedIn with errors.Is.
type AlreadyCheckedInError struct {
	AttendeeName string
	CheckedInAt  time.Time
}

func (e *AlreadyCheckedInError) Error() string {
	if e.AttendeeName == "" {
		return ErrAlreadyCheckedIn.Error()
	}
	return fmt.Sprintf("%s: %s", ErrAlreadyCheckedIn.Error(), e.AttendeeName)
}

// Is reports whether target is ErrAlreadyCheckedIn.
func (e *AlreadyCheckedInError) Is(target error) bool {
	return target == ErrAlreadyCheckedIn
}

// ValidationError wraps a field-level message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is reports whether target is ErrValidation.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError creates a validation error with a user-facing message.
func NewValidationError(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

// ErrorResponse represents a standardized error response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// HTTPError represents an HTTP error with status code.
type HTTPError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *HTTPError) Error() string {
	return e.Message
}

// NewHTTPError creates a new HTTP error.
func NewHTTPError(statusCode int, message, code string) *HTTPError {
	return &HTTPError{
		StatusCode: statusCode,
		Message:    message,
		Code:       code,
	}
}

// ToErrorResponse converts an HTTPError to ErrorResponse.
func (e *HTTPError) ToErrorResponse() ErrorResponse {
	return ErrorResponse{
		Error: e.Message,
		Code:  e.Code,
	}
}

var mappings = []struct {
	err    error
	status int
	code   string
}{
	{ErrValidation, http.StatusBadRequest, "VALIDATION_ERROR"},
	{ErrUnauthorized, http.StatusUnauthorized, "INVALID_CREDENTIALS"},
	{ErrEmailDomainNotAllowed, http.StatusBadRequest, "EMAIL_DOMAIN_NOT_ALLOWED"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN"},
	{ErrRoleMismatch, http.StatusConflict, "ROLE_MISMATCH"},
	{ErrUserNotFound, http.StatusNotFound, "USER_NOT_FOUND"},
	{ErrEventNotFound, http.StatusNotFound, "EVENT_NOT_FOUND"},
	{ErrRegistrationNotFound, http.StatusNotFound, "REGISTRATION_NOT_FOUND"},
	{ErrSupportMessageNotFound, http.StatusNotFound, "SUPPORT_MESSAGE_NOT_FOUND"},
	{ErrAlreadyRegistered, http.StatusConflict, "ALREADY_REGISTERED"},
	{ErrEventFull, http.StatusConflict, "EVENT_FULL"},
	{ErrEventPassed, http.StatusConflict, "EVENT_PASSED"},
	{ErrCapacityBelowRegistrations, http.StatusConflict, "CAPACITY_BELOW_REGISTRATIONS"},
	{ErrInvalidCode, http.StatusNotFound, "INVALID_CODE"},
	{ErrWrongEvent, http.StatusConflict, "WRONG_EVENT"},
	{ErrAlreadyCheckedIn, http.StatusConflict, "ALREADY_CHECKED_IN"},
	{ErrAlreadyResolved, http.StatusConflict, "ALREADY_RESOLVED"},
}

// MapErrorToHTTP maps domain errors to HTTP errors.
// Unknown errors collapse into a generic 500 so storage details are not leaked.
func MapErrorToHTTP(err error) *HTTPError {
	for _, m := range mappings {
		if errors.Is(err, m.err) {
			return NewHTTPError(m.status, err.Error(), m.code)
		}
	}
	return NewHTTPError(http.StatusInternalServerError, "internal server error", "INTERNAL_ERROR")
}
