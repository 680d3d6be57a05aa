package main

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"swiftattend/internal/config"
	"swiftattend/internal/db"
	"swiftattend/internal/model"
	"swiftattend/internal/repository"
	"swiftattend/internal/service"
)

const seedAdminEmail = "seed.admin@swiftattend.local"

//go:embed events.json
var defaultEvents []byte

// SeedEventData represents one event in the seed file.
type SeedEventData struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Date        string `json:"date"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Location    string `json:"location"`
	MaxCapacity *int   `json:"max_capacity"`
	PosterURL   string `json:"poster_url"`
}

// Usage: seed [path-or-url]. Without an argument the bundled demo events are used.
func main() {
	log.Println("Starting seed script...")

	// Load configuration
	cfg := config.Load()

	// Connect to database
	gormDB, err := db.Open(cfg.DBDriver, cfg.DatabaseDSN, cfg.DBDebug)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	log.Println("Connected to database")

	// Run migrations to ensure schema is up to date
	if err := db.Migrate(gormDB); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	log.Println("Database migrations completed")

	source := ""
	if len(os.Args) > 1 {
		source = os.Args[1]
	}
	events, err := loadEvents(source)
	if err != nil {
		log.Fatalf("Failed to load events: %v", err)
	}
	log.Printf("Loaded %d events", len(events))

	ctx := context.Background()
	userRepo := repository.NewUserRepository(gormDB)
	admin, err := ensureSeedAdmin(ctx, userRepo)
	if err != nil {
		log.Fatalf("Failed to prepare seed admin: %v", err)
	}

	eventService := service.NewEventService(
		repository.NewEventRepository(gormDB),
		repository.NewRegistrationRepository(gormDB),
		repository.NewAttendanceRepository(gormDB),
		nil,
		service.NewClock(cfg.Location()),
	)

	inputs := make([]service.EventInput, 0, len(events))
	for _, e := range events {
		inputs = append(inputs, service.EventInput{
			Name:        e.Name,
			Description: e.Description,
			Date:        e.Date,
			StartTime:   e.StartTime,
			EndTime:     e.EndTime,
			Location:    e.Location,
			MaxCapacity: e.MaxCapacity,
			PosterURL:   e.PosterURL,
		})
	}

	log.Println("Seeding events into database...")
	result, err := eventService.ImportEvents(ctx, admin.ID, inputs)
	if err != nil {
		log.Fatalf("Failed to seed events: %v", err)
	}
	for _, skip := range result.Skipped {
		log.Printf("Skipped event #%d %q: %s", skip.Index, skip.Name, skip.Reason)
	}

	log.Printf("Seed completed successfully!")
	log.Printf("  - Events created: %d", len(result.Created))
	log.Printf("  - Events skipped: %d", len(result.Skipped))
}

// loadEvents reads events from a URL, a file, or the bundled defaults.
func loadEvents(source string) ([]SeedEventData, error) {
	var body []byte
	switch {
	case source == "":
		body = defaultEvents
	case strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://"):
		log.Printf("Fetching events from: %s", source)
		fetched, err := fetchEvents(source)
		if err != nil {
			return nil, err
		}
		body = fetched
	default:
		data, err := os.ReadFile(source)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", source, err)
		}
		body = data
	}

	var events []SeedEventData
	if err := json.Unmarshal(body, &events); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}
	return events, nil
}

// fetchEvents fetches event data from a remote JSON document.
func fetchEvents(url string) ([]byte, error) {
	client := &http.Client{Timeout: 30 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch from %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("source returned status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, nil
}

// ensureSeedAdmin finds or creates the admin the seeded events are attributed to.
func ensureSeedAdmin(ctx context.Context, repo repository.UserRepository) (*model.User, error) {
	existing, err := repo.FindByEmail(ctx, seedAdminEmail)
	if err == nil {
		return existing, nil
	}
	if !db.IsNotFound(err) {
		return nil, fmt.Errorf("error checking seed admin: %w", err)
	}

	admin := &model.User{Name: "Seed Admin", Email: seedAdminEmail, Role: model.RoleAdmin}
	if err := repo.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("error creating seed admin: %w", err)
	}
	return admin, nil
}
