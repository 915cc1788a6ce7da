package main

import (
	"context"
	"crypto/sha256"
	"flag"
	"fmt"
	"log"
	"os"

	"voyago/internal/config"
	"voyago/internal/database"
	"voyago/internal/models"
	"voyago/internal/repository"
)

// Seeds an admin user and a couple of catalog trips so a fresh stack is
// immediately usable. Safe to re-run: existing users and trips are left alone.
//
//	go run scripts/seed.go -email admin@voyago.test -password admin123
func main() {
	var email, password string
	flag.StringVar(&email, "email", envDefault("SEED_ADMIN_EMAIL", "admin@voyago.test"), "Admin email")
	flag.StringVar(&password, "password", envDefault("SEED_ADMIN_PASSWORD", "admin123"), "Admin password")
	flag.Parse()

	cfg := config.Load()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	ctx := context.Background()
	repos := repository.NewRepositories(db)

	if err := seedAdmin(ctx, repos.Users, email, password); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	if err := seedTrips(ctx, repos.Trips); err != nil {
		log.Fatalf("Failed to seed trips: %v", err)
	}

	log.Println("Seed complete")
}

func envDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func seedAdmin(ctx context.Context, users *repository.UserRepository, email, password string) error {
	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Printf("Admin user %s already exists (id=%d), skipping", email, existing.UserID)
		return nil
	}

	hash := sha256.Sum256([]byte(password))
	user := &models.User{
		Email:        email,
		PasswordHash: fmt.Sprintf("%x", hash),
		FirstName:    "Admin",
		Surname:      "Voyago",
		IsAdmin:      true,
		IsActive:     true,
	}
	if err := users.Create(ctx, user); err != nil {
		return err
	}

	log.Printf("Created admin user %s (id=%d)", email, user.UserID)
	return nil
}

func seedTrips(ctx context.Context, trips *repository.TripRepository) error {
	existing, err := trips.ListActive(ctx, 1, 1)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		log.Println("Trips already present, skipping catalog seed")
		return nil
	}

	samples := []models.Trip{
		{
			Title:           "Lisbon Coastal Week",
			Destination:     "Lisbon",
			Price:           12500,
			MaxParticipants: 16,
			Active:          true,
		},
		{
			Title:           "Kyoto Temples and Gardens",
			Destination:     "Kyoto",
			Price:           28000,
			MaxParticipants: 10,
			Active:          true,
		},
	}

	for i := range samples {
		if err := trips.Create(ctx, &samples[i]); err != nil {
			return err
		}
		log.Printf("Created trip %q (id=%d)", samples[i].Title, samples[i].ID)
	}

	return nil
}
