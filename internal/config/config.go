package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	LogFormat     string
	PublicBaseURL string
	DatabaseURL   string

	// Therapist-facing API auth.
	TherapistJWTSecret string
	CORSAllowedOrigins string

	// Google Calendar integration. Credentials handling (OAuth token
	// refresh) lives outside the core; this only names the calendar
	// and the service-account key file.
	GoogleCredentialsFile string
	GoogleCalendarID      string

	// Billing defaults.
	DefaultVATRatePercent float64

	// Calendar repaint rate-limit posture.
	RepaintBatchSize  int
	RepaintBatchDelay time.Duration
	RepaintMaxRetries int
	RepaintRetryBase  time.Duration

	// Sync-state cache. Redis is optional; without it the cache is
	// process-local.
	RedisAddr     string
	RedisPassword string
	SyncCacheTTL  time.Duration
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		Env:                   getEnv("ENV", "development"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		LogFormat:             getEnv("LOG_FORMAT", "json"),
		PublicBaseURL:         getEnv("PUBLIC_BASE_URL", ""),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		TherapistJWTSecret:    getEnv("THERAPIST_JWT_SECRET", ""),
		CORSAllowedOrigins:    getEnv("CORS_ALLOWED_ORIGINS", ""),
		GoogleCredentialsFile: getEnv("GOOGLE_CREDENTIALS_FILE", ""),
		GoogleCalendarID:      getEnv("GOOGLE_CALENDAR_ID", "primary"),
		DefaultVATRatePercent: getEnvAsFloat("DEFAULT_VAT_RATE_PERCENT", 17),
		RepaintBatchSize:      getEnvAsInt("REPAINT_BATCH_SIZE", 3),
		RepaintBatchDelay:     getEnvAsDuration("REPAINT_BATCH_DELAY", 500*time.Millisecond),
		RepaintMaxRetries:     getEnvAsInt("REPAINT_MAX_RETRIES", 2),
		RepaintRetryBase:      getEnvAsDuration("REPAINT_RETRY_BASE", time.Second),
		RedisAddr:             getEnv("REDIS_ADDR", ""),
		RedisPassword:         getEnv("REDIS_PASSWORD", ""),
		SyncCacheTTL:          getEnvAsDuration("SYNC_CACHE_TTL", 12*time.Hour),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
