package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"swiftattend/internal/errors"
	"swiftattend/internal/service"
)

// EventHandler handles event endpoints.
type EventHandler struct {
	eventService service.EventService
}

// NewEventHandler creates a new event handler.
func NewEventHandler(eventService service.EventService) *EventHandler {
	return &EventHandler{eventService: eventService}
}

// EventRequest represents an event to create. Date is YYYY-MM-DD, times HH:MM.
type EventRequest struct {
	Name        string `json:"name" validate:"required,max=255"`
	Description string `json:"description"`
	Date        string `json:"date" validate:"required"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location" validate:"max=255"`
	MaxCapacity *int   `json:"max_capacity" validate:"omitempty,min=1"`
	PosterURL   string `json:"poster_url" validate:"omitempty,url,max=512"`
}

func (r EventRequest) input() service.EventInput {
	return service.EventInput{
		Name:        r.Name,
		Description: r.Description,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Location:    r.Location,
		MaxCapacity: r.MaxCapacity,
		PosterURL:   r.PosterURL,
	}
}

// EventUpdateRequest is a partial edit. Omitted fields are unchanged; an
// empty start_time or end_time clears it and max_capacity 0 removes the limit.
type EventUpdateRequest struct {
	Name        *string `json:"name" validate:"omitempty,max=255"`
	Description *string `json:"description"`
	Date        *string `json:"date"`
	StartTime   *string `json:"start_time"`
	EndTime     *string `json:"end_time"`
	Location    *string `json:"location" validate:"omitempty,max=255"`
	MaxCapacity *int    `json:"max_capacity" validate:"omitempty,min=0"`
	PosterURL   *string `json:"poster_url" validate:"omitempty,max=512"`
}

// ListEvents godoc
// @Summary List events
// @Description Participants get events dated today or later. Admin and staff get all events, optionally filtered.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param from query string false "First date (YYYY-MM-DD), admin/staff only"
// @Param to query string false "Last date (YYYY-MM-DD), admin/staff only"
// @Param limit query int false "Maximum number of events, admin/staff only"
// @Success 200 {array} EventResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /events [get]
func (h *EventHandler) ListEvents(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	q := service.EventListQuery{From: c.QueryParam("from"), To: c.QueryParam("to")}
	if raw := c.QueryParam("limit"); raw != "" {
		if q.Limit, err = strconv.Atoi(raw); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
				Error: "limit must be a number",
				Code:  "VALIDATION_ERROR",
			})
		}
	}

	events, err := h.eventService.ListEvents(c.Request().Context(), id.Role, q)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newEventResponses(events))
}

// GetEvent godoc
// @Summary Get event by id
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} EventResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id} [get]
func (h *EventHandler) GetEvent(c echo.Context) error {
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	event, err := h.eventService.GetEvent(c.Request().Context(), eventID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newEventResponse(event))
}

// CreateEvent godoc
// @Summary Create an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body EventRequest true "Event data"
// @Success 201 {object} EventResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /events [post]
func (h *EventHandler) CreateEvent(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req EventRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	event, err := h.eventService.CreateEvent(c.Request().Context(), id.UserID, req.input())
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, newEventResponse(event))
}

// UpdateEvent godoc
// @Summary Edit an event
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Param request body EventUpdateRequest true "Fields to change"
// @Success 200 {object} EventResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /events/{id} [put]
func (h *EventHandler) UpdateEvent(c echo.Context) error {
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	var req EventUpdateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	event, err := h.eventService.UpdateEvent(c.Request().Context(), eventID, service.EventUpdate{
		Name:        req.Name,
		Description: req.Description,
		Date:        req.Date,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Location:    req.Location,
		MaxCapacity: req.MaxCapacity,
		PosterURL:   req.PosterURL,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, newEventResponse(event))
}

// DeleteEvent godoc
// @Summary Delete an event with its registrations and attendance
// @Tags events
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 204
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id} [delete]
func (h *EventHandler) DeleteEvent(c echo.Context) error {
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	if err := h.eventService.DeleteEvent(c.Request().Context(), eventID); err != nil {
		return errorResponse(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetEventStats godoc
// @Summary Registration and check-in counts for an event
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param id path string true "Event ID"
// @Success 200 {object} service.EventStats
// @Failure 404 {object} errors.ErrorResponse
// @Router /events/{id}/stats [get]
func (h *EventHandler) GetEventStats(c echo.Context) error {
	eventID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	stats, err := h.eventService.GetEventStats(c.Request().Context(), eventID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
