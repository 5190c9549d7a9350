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

	// Persistence
	DataDir string

	// Fiscal authorizer. Empty URL keeps emissions on the local simulator.
	FiscalAPIURL string

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxRetries     int
	InitialBackoff time.Duration
	MaxConcurrency int

	// Fiscal-gateway circuit breaker
	BreakerWindow       time.Duration
	BreakerCooldown     time.Duration
	BreakerMinRequests  uint32
	BreakerFailureRatio float64

	// Cache
	CacheTTL time.Duration

	// Observability
	OTLPEndpoint string

	// JWT / Auth. Empty AuthPassword disables the auth layer entirely.
	JWTSecret    string
	JWTAccessTTL time.Duration
	AuthUser     string
	AuthPassword string
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataDir: getEnv("DATA_DIR", "./data"),

		FiscalAPIURL: getEnv("FISCAL_API_URL", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 10),

		BreakerWindow:       getEnvDuration("BREAKER_WINDOW", 30*time.Second),
		BreakerCooldown:     getEnvDuration("BREAKER_COOLDOWN", 10*time.Second),
		BreakerMinRequests:  uint32(getEnvInt("BREAKER_MIN_REQUESTS", 5)),
		BreakerFailureRatio: getEnvFloat("BREAKER_FAILURE_RATIO", 0.6),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		JWTSecret:    getEnv("JWT_SECRET", "cobranca-default-dev-secret-change-me"),
		JWTAccessTTL: getEnvDuration("JWT_ACCESS_TTL", 12*time.Hour),
		AuthUser:     getEnv("AUTH_USER", "operador"),
		AuthPassword: getEnv("AUTH_PASSWORD", ""),
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
