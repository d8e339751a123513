package main

import (
	"context"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/playpong/backend/internal/api"
	"github.com/playpong/backend/internal/auth"
	"github.com/playpong/backend/internal/config"
	"github.com/playpong/backend/internal/database"
	"github.com/playpong/backend/internal/game"
	"github.com/playpong/backend/internal/migrations"
	"github.com/playpong/backend/internal/redis"
	"github.com/playpong/backend/internal/store"
	"github.com/playpong/backend/internal/ws"
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

	// Run migrations on start if requested
	if cfg.MigrateOnStart {
		log.Println("↗ Running DB migrations on startup...")
		if err := migrations.RunMigrations(cfg.DatabaseURL); err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
	}

	// Initialize Redis
	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer rdb.Close()

	st := store.New(db)

	// Token service: access/refresh pair, sliding refresh, blacklist on rotation
	tokens := auth.NewTokenService(
		cfg.JWTSecret,
		time.Duration(cfg.AccessTokenTTLSeconds)*time.Second,
		time.Duration(cfg.RefreshTokenTTLSeconds)*time.Second,
		time.Duration(cfg.RefreshThresholdSecs)*time.Second,
		auth.CookieConfig{
			AccessName:  cfg.AccessCookieName,
			RefreshName: cfg.RefreshCookieName,
			Secure:      cfg.CookieSecure,
			SameSite:    cfg.CookieSameSite,
		},
		st,
	)
	twoFactor := auth.NewTwoFactor(st, cfg.TOTPIssuer)

	// Socket hub and game managers
	hub := ws.NewHub(st)
	registry := game.NewRegistry(st, st)
	matchmaker := game.NewMatchmaker(rdb, st, hub)
	challenges := game.NewChallenges(st, st, hub)
	tournaments := game.NewTournaments(st, st, hub, registry)
	tournaments.SetAttachDeadline(time.Duration(cfg.AttachDeadlineSecs) * time.Second)

	// Socket loss feeds back into the domain: drop pending challenges when the
	// notification socket goes, leave the queue when the matchmaking socket
	// goes, forfeit bracket placement when the tournament socket goes.
	hub.SetDisconnectHooks(ws.DisconnectHooks{
		Notification: func(playerID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			challenges.CancelPendingFor(ctx, playerID)
		},
		Matchmaking: func(playerID string) {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := matchmaker.Cancel(ctx, playerID); err != nil {
				log.Printf("[MATCHMAKER] Cancel on disconnect for %s: %v", playerID, err)
			}
		},
		Tournament: tournaments.HandleDetach,
	})

	// Background workers
	auth.StartBlacklistPruner(context.Background(), st, time.Duration(cfg.BlacklistPruneIntervalM)*time.Minute)
	game.StartStaleGameSweeper(context.Background(), st, registry,
		time.Duration(cfg.SweepIntervalMinutes)*time.Minute,
		time.Duration(cfg.StaleGameMaxAgeMinutes)*time.Minute)

	// Set up Gin router
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	api.SetupRoutes(router, api.Deps{
		Cfg:         cfg,
		Store:       st,
		Redis:       rdb,
		Tokens:      tokens,
		TwoFactor:   twoFactor,
		Hub:         hub,
		Registry:    registry,
		Matchmaker:  matchmaker,
		Challenges:  challenges,
		Tournaments: tournaments,
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Starting PlayPong server on port %s", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
