package auth

import (
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"swiftattend/internal/errors"
	"swiftattend/internal/model"
)

// ContextKey is where the validated *Claims live on the echo context.
const ContextKey = "claims"

// JWTMiddleware validates bearer tokens and stores *Claims on the context.
// Blacklisted (logged out) access tokens are rejected.
func JWTMiddleware(jwtService *JWTService, tokenStore TokenStoreInterface) echo.MiddlewareFunc {
	validate := echojwt.WithConfig(echojwt.Config{
		ContextKey:  ContextKey,
		TokenLookup: "header:" + echo.HeaderAuthorization + ":Bearer ",
		ParseTokenFunc: func(c echo.Context, token string) (interface{}, error) {
			return jwtService.ValidateToken(token)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
				Error: "missing or invalid token",
				Code:  "INVALID_TOKEN",
			})
		},
	})

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return validate(func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
					Error: "missing or invalid token",
					Code:  "INVALID_TOKEN",
				})
			}
			revoked, _ := tokenStore.IsAccessTokenBlacklisted(c.Request().Context(), claims.ID)
			if revoked {
				return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
					Error: "token has been revoked",
					Code:  "TOKEN_REVOKED",
				})
			}
			return next(c)
		})
	}
}

// RequireRoles rejects callers whose role is not listed.
func RequireRoles(roles ...model.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims, ok := ClaimsFrom(c)
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, errors.ErrorResponse{
					Error: "missing or invalid token",
					Code:  "INVALID_TOKEN",
				})
			}
			for _, r := range roles {
				if claims.Role == r {
					return next(c)
				}
			}
			return echo.NewHTTPError(http.StatusForbidden, errors.ErrorResponse{
				Error: errors.ErrForbidden.Error(),
				Code:  "FORBIDDEN",
			})
		}
	}
}

// ClaimsFrom returns the claims stored by JWTMiddleware.
func ClaimsFrom(c echo.Context) (*Claims, bool) {
	claims, ok := c.Get(ContextKey).(*Claims)
	return claims, ok && claims != nil
}
