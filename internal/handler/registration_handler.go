package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// RegistrationHandler handles registration endpoints.
type RegistrationHandler struct {
	registrationService service.RegistrationService
	eventService        service.EventService
	location            *time.Location
}

// NewRegistrationHandler creates a new registration handler. loc is used for
// timestamps in exports.
func NewRegistrationHandler(registrationService service.RegistrationService, eventService service.EventService, loc *time.Location) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: registrationService,
		eventService:        eventService,
		location:            loc,
	}
}

// LookupResponse is a registration found by code, with the kind of code that matched.
type LookupResponse struct {
	RegistrationResponse
	MatchedBy model.CheckinMethod `json:"matched_by"`
}

// Register godoc
// @Summary Register the current participant for an event
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 201 {object} RegistrationResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /events/{id}/register [post]
func (h *RegistrationHandler) Register(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}

	registration, err := h.registrationService.Register(c.Request().Context(), eventID, id.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, newRegistrationResponse(registration))
}

// ListMine godoc
// @Summary List the current user's registrations
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Success 200 {array} RegistrationResponse
// @Router /registrations/mine [get]
func (h *RegistrationHandler) ListMine(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	registrations, err := h.registrationService.ListMine(c.Request().Context(), id.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newRegistrationResponses(registrations))
}

// GetRegistration godoc
// @Summary Get a registration
// @Description Participants can only read their own registrations.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 200 {object} RegistrationResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) GetRegistration(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	registrationID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	registration, err := h.registrationService.GetRegistration(c.Request().Context(), registrationID, id)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newRegistrationResponse(registration))
}

// GetQRCode godoc
// @Summary Render a registration's QR code
// @Tags registrations
// @Produce png
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Param size query int false "Edge length in pixels"
// @Success 200 {file} binary
// @Failure 404 {object} errors.ErrorResponse
// @Router /registrations/{id}/qr [get]
func (h *RegistrationHandler) GetQRCode(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	registrationID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	size := 0
	if raw := c.QueryParam("size"); raw != "" {
		if size, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "size must be a number",
				Code:  "VALIDATION_ERROR",
			})
		}
	}

	png, err := h.registrationService.QRCodePNG(c.Request().Context(), registrationID, id, size)
	if err != nil {
		return errorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, no-store")
	return c.Blob(http.StatusOK, "image/png", png)
}

// ListForEvent godoc
// @Summary List an event's registrations with check-in state
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {array} RegistrationResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id}/registrations [get]
func (h *RegistrationHandler) ListForEvent(c echo.Context) error {
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	registrations, err := h.registrationService.ListForEvent(c.Request().Context(), eventID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newRegistrationResponses(registrations))
}

// Lookup godoc
// @Summary Find a registration by QR payload or backup code
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param code query string true "QR payload or backup code"
// @Success 200 {object} LookupResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /registrations/lookup [get]
func (h *RegistrationHandler) Lookup(c echo.Context) error {
	registration, method, err := h.registrationService.Lookup(c.Request().Context(), c.QueryParam("code"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, LookupResponse{
		RegistrationResponse: newRegistrationResponse(registration),
		MatchedBy:            method,
	})
}

// DeleteRegistration godoc
// @Summary Delete a registration and its attendance
// @Tags registrations
// @Security BearerAuth
// @Param id path string true "Registration ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /registrations/{id} [delete]
func (h *RegistrationHandler) DeleteRegistration(c echo.Context) error {
	registrationID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.registrationService.DeleteRegistration(c.Request().Context(), registrationID); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ExportAttendance godoc
// @Summary Download an event's attendance as xlsx
// @Tags registrations
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {file} binary
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id}/export [get]
func (h *RegistrationHandler) ExportAttendance(c echo.Context) error {
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	export, err := service.ExportAttendance(c.Request().Context(), h.eventService, h.registrationService, eventID, h.location)
	if err != nil {
		return errorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", export.Filename))
	return c.Blob(http.StatusOK, xlsxContentType, export.Data)
}
