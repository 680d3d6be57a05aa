package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"swiftattend/internal/service"
)

// UserHandler serves the caller's own profile.
type UserHandler struct {
	svc service.UserService
}

// NewUserHandler creates a handler layer.
func NewUserHandler(svc service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// UpdateProfileRequest carries the editable profile fields.
type UpdateProfileRequest struct {
	Name      *string `json:"name" validate:"omitempty,max=255"`
	StudentID *string `json:"student_id" validate:"omitempty,max=64"`
}

// GetMe godoc
// @Summary Get the current user's profile
// @Tags profile
// @Produce json
// @Security BearerAuth
// @Success 200 {object} model.User
// @Failure 401 {object} errors.ErrorResponse
// @Failure 404 {object} errors.ErrorResponse
// @Router /me [get]
func (h *UserHandler) GetMe(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	user, err := h.svc.GetUser(c.Request().Context(), id.UserID)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, user)
}

// UpdateMe godoc
// @Summary Update the current user's name or student id
// @Tags profile
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body UpdateProfileRequest true "Profile fields"
// @Success 200 {object} model.User
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Router /me [patch]
func (h *UserHandler) UpdateMe(c echo.Context) error {
	id, err := identity(c)
	if err != nil {
		return err
	}
	var req UpdateProfileRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.svc.UpdateProfile(c.Request().Context(), id.UserID, service.ProfileUpdate{
		Name:      req.Name,
		StudentID: req.StudentID,
	})
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, user)
}
