package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/service"
)

// CheckinHandler handles check-in endpoints.
type CheckinHandler struct {
	checkinService service.CheckinService
}

// NewCheckinHandler creates a new check-in handler.
func NewCheckinHandler(checkinService service.CheckinService) *CheckinHandler {
	return &CheckinHandler{checkinService: checkinService}
}

// CheckinRequest is a scanned QR payload or a typed backup code.
type CheckinRequest struct {
	Code   string `json:"code" validate:"required,max=255"`
	Method string `json:"method" validate:"omitempty,oneof=qr_scan backup_code"`
}

// CheckinResponse represents a successful check-in.
type CheckinResponse struct {
	Message        string              `json:"message"`
	RegistrationID uuid.UUID           `json:"registration_id"`
	AttendeeName   string              `json:"attendee_name"`
	Method         model.CheckinMethod `json:"method"`
	CheckedInAt    time.Time           `json:"checked_in_at"`
}

// CheckIn godoc
// @Summary Check an attendee in to an event
// @Description Looks the code up as a QR payload, then as a backup code (case-insensitive).
// @Tags checkin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body CheckinRequest true "Code"
// @Success 201 {object} CheckinResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse "invalid code or unknown event"
// @Failure 409 {object} errors.ErrorResponse "already checked in or wrong event"
// @Router /events/{id}/checkin [post]
func (h *CheckinHandler) CheckIn(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req CheckinRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	result, err := h.checkinService.CheckIn(c.Request().Context(), service.CheckinInput{
		EventID: eventID,
		Code:    req.Code,
		Method:  model.CheckinMethod(req.Method),
		StaffID: id.UserID,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusCreated, CheckinResponse{
		Message:        "checked in",
		RegistrationID: result.Registration.ID,
		AttendeeName:   result.AttendeeName,
		Method:         result.Attendance.Method,
		CheckedInAt:    result.Attendance.CheckedInAt,
	})
}

// RecentAttempts godoc
// @Summary List recent check-in attempts for an event
// @Tags checkin
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param limit query int false "Maximum entries (default 50)"
// @Success 200 {array} model.CheckinLog
// @Router /events/{id}/checkins [get]
func (h *CheckinHandler) RecentAttempts(c echo.Context) error {
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil || limit < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "limit must be a positive number",
				Code:  "VALIDATION_ERROR",
			})
		}
	}

	logs, err := h.checkinService.RecentAttempts(c.Request().Context(), eventID, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, logs)
}
