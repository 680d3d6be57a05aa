package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swiftattend/internal/model"
)

func newProtectedServer(t *testing.T, store *TokenStore, svc *JWTService, roles ...model.Role) *echo.Echo {
	t.Helper()
	e := echo.New()
	g := e.Group("", JWTMiddleware(svc, store))
	if len(roles) > 0 {
		g.Use(RequireRoles(roles...))
	}
	g.GET("/whoami", func(c echo.Context) error {
		claims, _ := ClaimsFrom(c)
		return c.String(http.StatusOK, string(claims.Role))
	})
	return e
}

func doGet(e *echo.Echo, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTMiddleware(t *testing.T) {
	store, _ := newTestTokenStore(t)
	svc := NewJWTService("test-secret")
	e := newProtectedServer(t, store, svc)

	token, err := svc.GenerateAccessToken(Identity{UserID: uuid.New(), Role: model.RoleStaff})
	require.NoError(t, err)

	rec := doGet(e, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "staff", rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, doGet(e, "").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(e, "garbage").Code)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	require.NoError(t, store.BlacklistAccessToken(context.Background(), claims.ID, time.Minute))
	assert.Equal(t, http.StatusUnauthorized, doGet(e, token).Code)
}

func TestRequireRoles(t *testing.T) {
	store, _ := newTestTokenStore(t)
	svc := NewJWTService("test-secret")
	e := newProtectedServer(t, store, svc, model.RoleAdmin)

	admin, _ := svc.GenerateAccessToken(Identity{UserID: uuid.New(), Role: model.RoleAdmin})
	participant, _ := svc.GenerateAccessToken(Identity{UserID: uuid.New(), Role: model.RoleParticipant})

	assert.Equal(t, http.StatusOK, doGet(e, admin).Code)
	assert.Equal(t, http.StatusForbidden, doGet(e, participant).Code)
}
