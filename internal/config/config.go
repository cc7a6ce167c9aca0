package config

import (
	"os"
	"strconv"
	"time"

	"tickmate/internal/cache"
	"tickmate/internal/database"
	"tickmate/internal/external"
	"tickmate/internal/identity"
	"tickmate/internal/messaging"
)

// Config holds the application configuration
type Config struct {
	Port      string
	GinMode   string
	LogLevel  string
	LogFormat string

	Database database.Config
	Cache    cache.Config
	NATS     messaging.Config
	Payment  external.PaymentConfig
	Identity identity.Config
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:      getEnv("PORT", "8080"),
		GinMode:   getEnv("GIN_MODE", "debug"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "tickmate"),
			Password:           getEnv("DB_PASSWORD", "tickmate123"),
			DBName:             getEnv("DB_NAME", "tickmate"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Cache: cache.Config{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "tickmate"),
			ClientID:  getEnv("NATS_CLIENT_ID", "tickmate-api"),
		},

		Payment: external.PaymentConfig{
			BaseURL:      getEnv("PAYMENT_GATEWAY_URL", "http://localhost:9090"),
			MerchantSlug: getEnv("PAYMENT_MERCHANT_SLUG", ""),
			Password:     getEnv("PAYMENT_PASSWORD", ""),
			Timeout:      time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 10)) * time.Second,
		},

		Identity: identity.Config{
			JWTSecret: getEnv("JWT_SECRET", "dev-secret-change-me"),
			TokenTTL:  time.Duration(getEnvInt("TOKEN_TTL_HOURS", 24)) * time.Hour,
		},
	}
}

// getEnv reads an environment variable with a fallback default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt reads an integer environment variable with a fallback default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
