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

	// Database
	DatabaseURL    string
	DBMaxOpenConns int
	DBMaxIdleConns int
	DBTxTimeout    time.Duration // 0 keeps the driver default

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Cache
	CacheTTL time.Duration
	RedisURL string

	// Observability
	OTLPEndpoint string

	// Auth (tokens are issued elsewhere; only validated here)
	JWTSecret string

	// Collaborators
	HTTPTimeout        time.Duration
	NotificationAPIURL string
	ReopeningAPIURL    string
	FileStorageDir     string

	// Reference data fixture for the in-memory backend
	SeedFile string

	// Certification rules
	BiosecurityModuleFrom      int64
	ExpirationAlertMonths      int
	CertificationValidityYears int
	DefaultLanguage            string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DatabaseURL:    getEnv("DATABASE_URL", ""),
		DBMaxOpenConns: getEnvInt("DB_MAX_OPEN_CONNS", 20),
		DBMaxIdleConns: getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBTxTimeout:    getEnvDuration("DB_TX_TIMEOUT", 0),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),
		RedisURL: getEnv("REDIS_URL", ""),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),

		JWTSecret: getEnv("JWT_SECRET", "certificacion-dev-secret-change-me"),

		HTTPTimeout:        getEnvDuration("HTTP_TIMEOUT", 10*time.Second),
		NotificationAPIURL: getEnv("NOTIFICATION_API_URL", ""),
		ReopeningAPIURL:    getEnv("REOPENING_API_URL", ""),
		FileStorageDir:     getEnv("FILE_STORAGE_DIR", "./data/archivos"),

		SeedFile: getEnv("SEED_FILE", ""),

		BiosecurityModuleFrom:      int64(getEnvInt("BIOSECURITY_MODULE_FROM", 11)),
		ExpirationAlertMonths:      getEnvInt("EXPIRATION_ALERT_MONTHS", 6),
		CertificationValidityYears: getEnvInt("CERTIFICATION_VALIDITY_YEARS", 2),
		DefaultLanguage:            getEnv("DEFAULT_LANGUAGE", "es"),
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
