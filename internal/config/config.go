package config

import (
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Environment
	Environment string

	// Server
	Port        string
	FrontendURL string

	// Database
	DatabaseURL    string
	MigrateOnStart bool

	// Redis
	RedisURL string

	// Auth
	JWTSecret              string
	AccessTokenTTLSeconds  int
	RefreshTokenTTLSeconds int
	RefreshThresholdSecs   int
	AccessCookieName       string
	RefreshCookieName      string
	CookieSecure           bool
	CookieSameSite         http.SameSite
	TOTPIssuer             string

	// Game settings
	AttachDeadlineSecs      int
	StaleGameMaxAgeMinutes  int
	SweepIntervalMinutes    int
	BlacklistPruneIntervalM int
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	return &Config{
		// Environment
		Environment: getEnv("APP_ENV", "development"),

		// Server
		Port:        getEnv("APP_PORT", "8080"),
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:5173"),

		// Database
		DatabaseURL:    getEnv("DATABASE_URL", "postgres://localhost:5432/playpong?sslmode=disable"),
		MigrateOnStart: getEnvBool("MIGRATE_ON_START", true),

		// Redis
		RedisURL: getEnv("REDIS_URL", "redis://localhost:6379/0"),

		// Auth
		JWTSecret:              getEnv("JWT_SECRET", "change-me-in-production"),
		AccessTokenTTLSeconds:  getEnvInt("ACCESS_TOKEN_TTL_SECONDS", 900),
		RefreshTokenTTLSeconds: getEnvInt("REFRESH_TOKEN_TTL_SECONDS", 604800),
		RefreshThresholdSecs:   getEnvInt("REFRESH_THRESHOLD_SECONDS", 120),
		AccessCookieName:       getEnv("ACCESS_COOKIE_NAME", "access_token"),
		RefreshCookieName:      getEnv("REFRESH_COOKIE_NAME", "refresh_token"),
		CookieSecure:           getEnvBool("COOKIE_SECURE", false),
		CookieSameSite:         parseSameSite(getEnv("COOKIE_SAMESITE", "lax")),
		TOTPIssuer:             getEnv("TOTP_ISSUER", "PlayPong"),

		// Game settings
		AttachDeadlineSecs:      getEnvInt("ATTACH_DEADLINE_SECONDS", 60),
		StaleGameMaxAgeMinutes:  getEnvInt("STALE_GAME_MAX_AGE_MINUTES", 10),
		SweepIntervalMinutes:    getEnvInt("SWEEP_INTERVAL_MINUTES", 5),
		BlacklistPruneIntervalM: getEnvInt("BLACKLIST_PRUNE_INTERVAL_MINUTES", 60),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseSameSite(value string) http.SameSite {
	switch strings.ToLower(value) {
	case "strict":
		return http.SameSiteStrictMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteLaxMode
	}
}
