package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Upstream scheduling provider
	ProviderBaseURL    string
	ProviderAPIKey     string
	ProviderLocationID string
	ProviderTimeout    time.Duration

	// Cache backend. When RedisAddr is empty the in-memory store is used.
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Cache TTLs per data class. Catalog data deliberately defaults to zero
	// so services and categories are always confirmed fresh.
	CatalogTTL      time.Duration
	StaffTTL        time.Duration
	AvailabilityTTL time.Duration

	// Availability resolution tuning.
	BatchDays          int
	BookingHorizonDays int
	JitterMin          time.Duration
	JitterMax          time.Duration

	// Preload tuning.
	PreloadServices int
	PreloadDays     int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ProviderBaseURL:    getEnv("PROVIDER_BASE_URL", ""),
		ProviderAPIKey:     getEnv("PROVIDER_API_KEY", ""),
		ProviderLocationID: getEnv("PROVIDER_LOCATION_ID", ""),
		ProviderTimeout:    getEnvAsDuration("PROVIDER_TIMEOUT", 20*time.Second),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		CatalogTTL:      getEnvAsDuration("CATALOG_TTL", 0),
		StaffTTL:        getEnvAsDuration("STAFF_TTL", 10*time.Minute),
		AvailabilityTTL: getEnvAsDuration("AVAILABILITY_TTL", 2*time.Minute),

		BatchDays:          getEnvAsInt("BATCH_DAYS", 7),
		BookingHorizonDays: getEnvAsInt("BOOKING_HORIZON_DAYS", 0),
		JitterMin:          getEnvAsDuration("JITTER_MIN", 100*time.Millisecond),
		JitterMax:          getEnvAsDuration("JITTER_MAX", 300*time.Millisecond),

		PreloadServices: getEnvAsInt("PRELOAD_SERVICES", 3),
		PreloadDays:     getEnvAsInt("PRELOAD_DAYS", 2),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnvAsSlice retrieves a comma-separated environment variable as a slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
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

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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
