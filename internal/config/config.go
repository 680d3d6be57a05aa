package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application level configuration loaded from environment variables.
type Config struct {
	ServerPort  string
	DBDriver    string
	DatabaseDSN string
	DBDebug     bool
	ResetDB     bool
	RedisAddr   string
	RedisDB     int
	RedisPass   string
	JWTSecret   string
	SwaggerHost string
	CORSOrigins []string

	// Shared passwords for the admin and staff roles.
	AdminPassword string
	StaffPassword string
	// Participants must log in with an email ending in this suffix.
	ParticipantEmailDomain string

	Timezone string
}

// Load builds Config from environment with sensible defaults.
// A .env file in the working directory is loaded first when present.
func Load() *Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("config: .env not loaded: %v", err)
	}

	return &Config{
		ServerPort:             getEnv("SERVER_PORT", "8080"),
		DBDriver:               strings.ToLower(getEnv("DB_DRIVER", "sqlite")),
		DatabaseDSN:            getEnv("DATABASE_DSN", "swiftattend.db"),
		DBDebug:                getEnvBool("DB_DEBUG", false),
		ResetDB:                getEnvBool("RESET_DB", false),
		RedisAddr:              getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		RedisPass:              os.Getenv("REDIS_PASSWORD"),
		JWTSecret:              getEnv("JWT_SECRET", "change-me"),
		SwaggerHost:            os.Getenv("SWAGGER_HOST"),
		CORSOrigins:            getEnvList("CORS_ORIGINS", []string{"*"}),
		AdminPassword:          getEnv("ADMIN_PASSWORD", "admin123"),
		StaffPassword:          getEnv("STAFF_PASSWORD", "staff123"),
		ParticipantEmailDomain: emailDomain(getEnv("PARTICIPANT_EMAIL_DOMAIN", "@qatar.cmu.edu")),
		Timezone:               getEnv("TIMEZONE", "UTC"),
	}
}

// Location resolves Timezone, falling back to UTC when it is unknown.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("config: unknown TIMEZONE %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if parsed, err := strconv.ParseBool(v); err == nil {
			return parsed
		}
	}
	return def
}

// emailDomain lowercases a domain suffix and anchors it at the '@'.
func emailDomain(v string) string {
	v = strings.ToLower(strings.TrimSpace(v))
	if v == "" || strings.HasPrefix(v, "@") {
		return v
	}
	return "@" + v
}

func getEnvList(key string, def []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return def
	}
	return out
}
