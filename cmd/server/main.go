package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"swiftattend/docs"

	"github.com/labstack/echo/v4"

	"swiftattend/internal/auth"
	"swiftattend/internal/cache"
	"swiftattend/internal/config"
	"swiftattend/internal/db"
	"swiftattend/internal/handler"
	"swiftattend/internal/repository"
	"swiftattend/internal/router"
	"swiftattend/internal/service"
)

// @title SwiftAttend API
// @version 1.0
// @description Event registration and QR / backup-code check-in with role-based JWT authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()
	if cfg.JWTSecret == "change-me" {
		log.Println("WARNING: JWT_SECRET is not set, using the development default")
	}

	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, cfg.DBDebug)
	if err != nil {
		log.Fatalf("database init: %v", err)
	}

	// Drop tables if RESET_DB environment variable is set
	if cfg.ResetDB {
		log.Println("RESET_DB=true detected, dropping all tables...")
		db.Reset(gormDB)
		log.Println("Tables dropped")
	}

	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("auto-migrate: %v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	if err := cacheClient.Ping(context.Background()); err != nil {
		log.Printf("redis unavailable at %s, continuing without cache: %v", cfg.RedisAddr, err)
	}

	loc := cfg.Location()
	clock := service.NewClock(loc)

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)
	eventRepo := repository.NewEventRepository(gormDB)
	registrationRepo := repository.NewRegistrationRepository(gormDB)
	attendanceRepo := repository.NewAttendanceRepository(gormDB)
	checkinLogRepo := repository.NewCheckinLogRepository(gormDB)
	supportRepo := repository.NewSupportMessageRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret)
	tokenStore := auth.NewTokenStore(cacheClient)

	// Initialize services
	authService, err := service.NewAuthService(userRepo, jwtService, tokenStore, service.AuthPolicy{
		AdminPassword:          cfg.AdminPassword,
		StaffPassword:          cfg.StaffPassword,
		ParticipantEmailDomain: cfg.ParticipantEmailDomain,
	})
	if err != nil {
		log.Fatalf("auth init: %v", err)
	}
	userService := service.NewUserService(userRepo, cacheClient)
	eventService := service.NewEventService(eventRepo, registrationRepo, attendanceRepo, cacheClient, clock)
	registrationService := service.NewRegistrationService(eventRepo, registrationRepo, cacheClient, service.NewCodeGenerator(), clock)
	checkinService := service.NewCheckinService(eventRepo, registrationRepo, attendanceRepo, checkinLogRepo, cacheClient)
	supportService := service.NewSupportService(supportRepo, eventRepo)

	e := echo.New()
	e.HideBanner = true

	// Register routes
	router.Register(e, cfg, router.Deps{
		JWTService: jwtService,
		TokenStore: tokenStore,
		DB:         gormDB,
		Cache:      cacheClient,
	}, router.Handlers{
		Auth:         handler.NewAuthHandler(authService),
		User:         handler.NewUserHandler(userService),
		Event:        handler.NewEventHandler(eventService),
		Registration: handler.NewRegistrationHandler(registrationService, eventService, loc),
		Checkin:      handler.NewCheckinHandler(checkinService),
		Support:      handler.NewSupportHandler(supportService),
		Seed:         handler.NewSeedHandler(eventService),
	})

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "https://"), "http://")
	}
	log.Printf("Swagger documentation available at: http://%s/swagger/index.html", docs.SwaggerInfo.Host)

	go func() {
		addr := ":" + cfg.ServerPort
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server start: %v", err)
		}
	}()

	// Wait for signal
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Println("shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.Printf("server shutdown: %v", err)
	}

	// flush queued check-in attempt logs before the database goes away
	checkinService.Close()
	_ = cacheClient.Close()
	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	log.Println("bye")
}
