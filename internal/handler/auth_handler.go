package handler

import (
	stderrors "errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"swiftattend/internal/auth"
	"swiftattend/internal/errors"
	"swiftattend/internal/model"
	"swiftattend/internal/service"
)

// AuthHandler handles authentication endpoints.
type AuthHandler struct {
	authService service.AuthService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(authService service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// LoginRequest represents a role login. Password is required for admin and
// staff; email is required for participants.
type LoginRequest struct {
	Role      string `json:"role" validate:"required,oneof=admin staff participant"`
	Password  string `json:"password"`
	Name      string `json:"name" validate:"required,max=255"`
	Email     string `json:"email" validate:"omitempty,email,max=255"`
	StudentID string `json:"student_id" validate:"max=64"`
}

// RefreshRequest represents a token refresh request.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// LogoutRequest represents a logout request.
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse represents an authentication response.
type AuthResponse struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token,omitempty"`
	User         *model.User `json:"user,omitempty"`
}

// Login godoc
// @Summary Log in as admin, staff or participant
// @Tags auth
// @Accept json
// @Produce json
// @Param request body LoginRequest true "Login data"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 409 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken, refreshToken, user, err := h.authService.Login(c.Request().Context(), service.LoginInput{
		Role:      model.Role(req.Role),
		Password:  req.Password,
		Name:      req.Name,
		Email:     req.Email,
		StudentID: req.StudentID,
	})
	if err != nil {
		return errorResponse(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		User:         user,
	})
}

// Refresh godoc
// @Summary Refresh access token
// @Tags auth
// @Accept json
// @Produce json
// @Param request body RefreshRequest true "Refresh token"
// @Success 200 {object} AuthResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/refresh [post]
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req RefreshRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	accessToken, err := h.authService.RefreshToken(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return refreshError(c, err)
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken: accessToken,
	})
}

// Logout godoc
// @Summary Logout user
// @Tags auth
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body LogoutRequest true "Refresh token"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 401 {object} errors.ErrorResponse
// @Failure 500 {object} errors.ErrorResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	var req LogoutRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	claims, _ := auth.ClaimsFrom(c)
	if err := h.authService.Logout(c.Request().Context(), req.RefreshToken, claims); err != nil {
		return refreshError(c, err)
	}

	return c.JSON(http.StatusOK, MessageResponse{Message: "logged out successfully"})
}

func refreshError(c echo.Context, err error) error {
	if stderrors.Is(err, service.ErrInvalidRefreshToken) {
		return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
			Error: err.Error(),
			Code:  "INVALID_REFRESH_TOKEN",
		})
	}
	return errorResponse(c, err)
}
