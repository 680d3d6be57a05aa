package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/service"
)

// SupportHandler handles support message endpoints.
type SupportHandler struct {
	supportService service.SupportService
}

// NewSupportHandler creates a new support handler.
func NewSupportHandler(supportService service.SupportService) *SupportHandler {
	return &SupportHandler{supportService: supportService}
}

// SupportRequest represents a new support message.
type SupportRequest struct {
	EventID string `json:"event_id" validate:"omitempty,uuid"`
	Message string `json:"message" validate:"required"`
}

// CreateMessage godoc
// @Summary Send a support message
// @Tags support
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body SupportRequest true "Message"
// @Success 201 {object} model.SupportMessage
// @Failure 400 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /support [post]
func (h *SupportHandler) CreateMessage(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req SupportRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var eventID *uuid.UUID
	if req.EventID != "" {
		parsed := uuid.MustParse(req.EventID)
		eventID = &parsed
	}

	msg, err := h.supportService.CreateMessage(c.Request().Context(), id, eventID, req.Message)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, msg)
}

// ListMessages godoc
// @Summary List support messages
// @Description Admins see every message; everyone else sees their own.
// @Tags support
// @Produce json
// @Security BearerAuth
// @Param event_id query string false "Event ID"
// @Param status query string false "open or resolved"
// @Success 200 {array} model.SupportMessage
// @Failure 400 {object} errors.ErrorResponse
// @Router /support [get]
func (h *SupportHandler) ListMessages(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}

	q := service.SupportQuery{Status: model.SupportStatus(c.QueryParam("status"))}
	if raw := c.QueryParam("event_id"); raw != "" {
		eventID, err := uuid.Parse(raw)
		if err != nil {
			return errorResponse(c, errors.NewValidationError("invalid event_id"))
		}
		q.EventID = &eventID
	}

	messages, err := h.supportService.ListMessages(c.Request().Context(), id, q)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

// ResolveMessage godoc
// @Summary Mark a support message resolved
// @Tags support
// @Produce json
// @Security BearerAuth
// @Param id path string true "Message ID"
// @Success 200 {object} model.SupportMessage
// @Failure 404 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Router /support/{id}/resolve [post]
func (h *SupportHandler) ResolveMessage(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	messageID, err := uuidParam(c, "id")
	if err != nil {
		return err
	}
	msg, err := h.supportService.ResolveMessage(c.Request().Context(), messageID, id.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, msg)
}
