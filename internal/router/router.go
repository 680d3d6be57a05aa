package router

import (
	"context"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"gorm.io/gorm"

	"swiftattend/internal/auth"
	"swiftattend/internal/cache"
	"swiftattend/internal/config"
	"swiftattend/internal/handler"
	"swiftattend/internal/model"
)

// Handlers groups the HTTP handlers mounted under /api.
type Handlers struct {
	Auth         *handler.AuthHandler
	User         *handler.UserHandler
	Event        *handler.EventHandler
	Registration *handler.RegistrationHandler
	Checkin      *handler.CheckinHandler
	Support      *handler.SupportHandler
	Seed         *handler.SeedHandler
}

// Deps are what the router needs beyond the handlers: token checks for the
// secured group and backends for the health check.
type Deps struct {
	JWTService *auth.JWTService
	TokenStore auth.TokenStoreInterface
	DB         *gorm.DB
	Cache      *cache.Client
}

// Register wires routes and middleware.
func Register(e *echo.Echo, cfg *config.Config, deps Deps, h Handlers) {
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	e.Validator = NewValidator()

	e.GET("/healthz", healthz(deps))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	api := e.Group("/api")

	// Public routes
	api.POST("/auth/login", h.Auth.Login)
	api.POST("/auth/refresh", h.Auth.Refresh)

	// Secured routes (require JWT authentication)
	secured := api.Group("", auth.JWTMiddleware(deps.JWTService, deps.TokenStore))
	adminOnly := auth.RequireRoles(model.RoleAdmin)
	staffOrAdmin := auth.RequireRoles(model.RoleAdmin, model.RoleStaff)
	participantOnly := auth.RequireRoles(model.RoleParticipant)

	secured.POST("/auth/logout", h.Auth.Logout)
	secured.GET("/me", h.User.GetMe)
	secured.PATCH("/me", h.User.UpdateMe)

	// Event routes
	secured.GET("/events", h.Event.ListEvents)
	secured.GET("/events/:id", h.Event.GetEvent)
	secured.POST("/events", h.Event.CreateEvent, adminOnly)
	secured.POST("/events/import", h.Seed.ImportEvents, adminOnly)
	secured.PUT("/events/:id", h.Event.UpdateEvent, adminOnly)
	secured.DELETE("/events/:id", h.Event.DeleteEvent, adminOnly)
	secured.GET("/events/:id/stats", h.Event.GetEventStats, staffOrAdmin)
	secured.GET("/events/:id/registrations", h.Registration.ListForEvent, staffOrAdmin)
	secured.GET("/events/:id/export", h.Registration.ExportAttendance, staffOrAdmin)
	secured.POST("/events/:id/register", h.Registration.Register, participantOnly)

	// Check-in routes
	secured.POST("/events/:id/checkin", h.Checkin.CheckIn, staffOrAdmin)
	secured.GET("/events/:id/checkins", h.Checkin.RecentAttempts, staffOrAdmin)

	// Registration routes
	secured.GET("/registrations/mine", h.Registration.ListMine)
	secured.GET("/registrations/lookup", h.Registration.Lookup, staffOrAdmin)
	secured.GET("/registrations/:id", h.Registration.GetRegistration)
	secured.GET("/registrations/:id/qr", h.Registration.GetQRCode)
	secured.DELETE("/registrations/:id", h.Registration.DeleteRegistration, adminOnly)

	// Support routes
	secured.POST("/support", h.Support.CreateMessage)
	secured.GET("/support", h.Support.ListMessages)
	secured.POST("/support/:id/resolve", h.Support.ResolveMessage, adminOnly)
}

// healthz reports ok when the database answers. Redis is optional and only
// reported.
func healthz(deps Deps) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
		defer cancel()

		status := map[string]string{"database": "ok", "cache": "ok"}
		code := http.StatusOK
		if deps.DB != nil {
			sqlDB, err := deps.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				status["database"] = "unavailable"
				code = http.StatusServiceUnavailable
			}
		}
		if err := deps.Cache.Ping(ctx); err != nil {
			status["cache"] = "unavailable"
		}
		return c.JSON(code, status)
	}
}

// CustomValidator wraps validator for Echo.
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates the request validator.
func NewValidator() *CustomValidator {
	return &CustomValidator{validator: validator.New()}
}

// Validate implements echo.Validator interface.
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}
