package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"swiftattend/internal/errors"
	"swiftattend/internal/service"
)

const maxImportEvents = 500

// SeedHandler handles bulk event import.
type SeedHandler struct {
	eventService service.EventService
}

// NewSeedHandler creates a new seed handler.
func NewSeedHandler(eventService service.EventService) *SeedHandler {
	return &SeedHandler{eventService: eventService}
}

// ImportEventsResponse represents the import outcome.
type ImportEventsResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count"`
	*service.ImportResult
}

// ImportEvents godoc
// @Summary Import a batch of events
// @Description Invalid entries are skipped and reported; valid ones are created.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body []EventRequest true "Events"
// @Success 200 {object} ImportEventsResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 403 {object} errors.ErrorResponse
// @Router /events/import [post]
func (h *SeedHandler) ImportEvents(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	var reqs []EventRequest
	if err := c.Bind(&reqs); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_REQUEST",
		})
	}
	if len(reqs) == 0 || len(reqs) > maxImportEvents {
		return echo.NewHTTPError(http.StatusBadRequest, errors.ErrorResponse{
			Error: "expected between 1 and 500 events",
			Code:  "VALIDATION_ERROR",
		})
	}

	inputs := make([]service.EventInput, 0, len(reqs))
	for _, req := range reqs {
		inputs = append(inputs, req.input())
	}

	result, err := h.eventService.ImportEvents(c.Request().Context(), id.UserID, inputs)
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, ImportEventsResponse{
		Message:      "events imported",
		Count:        len(result.Created),
		ImportResult: result,
	})
}
