package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// Canonical store (PostgREST / Supabase)
	StoreURL        string
	StoreAnonKey    string
	StoreServiceKey string

	// Legacy database (pre-consolidation local data)
	LegacyDBPath string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration

	// Cache
	SnapshotCacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Profile tokens
	JWTSecret string
	// DevProfile injects a fixed development profile when no token is
	// presented, instead of rejecting the request.
	DevProfile   bool
	DevProfileID string

	// Feature flag process-wide defaults (profiles may override)
	JourneyEnabledDefault   bool
	TaxEngineEnabledDefault bool

	// Tax estimation
	BracketTablePath  string // YAML; empty means the embedded default table
	GeneralRegimeRate float64
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		StoreURL:        getEnv("STORE_URL", ""),
		StoreAnonKey:    getEnv("STORE_ANON_KEY", ""),
		StoreServiceKey: getEnv("STORE_SERVICE_ROLE_KEY", ""),

		LegacyDBPath: getEnv("LEGACY_DB_PATH", "legacy.db"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),

		SnapshotCacheTTL: getEnvDuration("SNAPSHOT_CACHE_TTL", 2*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret:    getEnv("JWT_SECRET", "cierre-default-dev-secret-change-me"),
		DevProfile:   getEnv("DEV_PROFILE", "false") == "true",
		DevProfileID: getEnv("DEV_PROFILE_ID", "dev"),

		JourneyEnabledDefault:   getEnv("JOURNEY_ENABLED", "true") == "true",
		TaxEngineEnabledDefault: getEnv("TAX_ENGINE_ENABLED", "false") == "true",

		BracketTablePath:  getEnv("BRACKET_TABLE_PATH", ""),
		GeneralRegimeRate: getEnvFloat("GENERAL_REGIME_RATE", 0.30),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
