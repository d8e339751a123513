package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/database"
	"github.com/playpong/backend/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize configuration
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	st := store.New(db)

	// Seed player account
	username := os.Getenv("SEED_USERNAME")
	if username == "" {
		username = "demo"
		log.Printf("Using default seed username: %s", username)
	}

	password := os.Getenv("SEED_PASSWORD")
	if password == "" {
		password = "change-me-in-production"
		log.Printf("WARNING: Using default seed password. Set SEED_PASSWORD env var in production!")
	}

	ctx := context.Background()

	if existing, err := st.PlayerByUsername(ctx, username); err == nil {
		log.Printf("Player %q already exists (id=%s), nothing to do", existing.Username, existing.ID)
		return
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	player, err := st.CreatePlayer(ctx, username, hash)
	if err != nil {
		log.Fatalf("Failed to create player: %v", err)
	}

	log.Printf("✓ Player account created successfully")
	log.Printf("  Username: %s", player.Username)
	log.Printf("  ID: %s", player.ID)
	log.Println("\nYou can now login at /api/auth/login with:")
	log.Printf("  Username: %s", username)
	log.Printf("  Password: %s", password)
}
