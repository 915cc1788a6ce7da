package config

import (
	"os"
	"strconv"
	"time"

	"voyago/internal/cache"
	"voyago/internal/database"
	"voyago/internal/external"
	"voyago/internal/messaging"
)

// Booking holds the booking-policy knobs.
type Booking struct {
	// EnforceCapacity turns the trip capacity check on. Off by default:
	// overbooking is tolerated unless an operator opts in.
	EnforceCapacity bool
	// PendingTTL is how long a PENDING booking without a settled payment
	// may live before the expiration job cancels it.
	PendingTTL time.Duration
}

// Config contains the application configuration
type Config struct {
	Port           string
	GinMode        string
	LogLevel       string
	LogFormat      string
	RequestTimeout time.Duration

	Database database.Config
	Redis    cache.Config
	NATS     messaging.Config
	Provider external.ProviderConfig
	Booking  Booking
}

// Load reads the configuration from environment variables
func Load() *Config {
	return &Config{
		Port:           getEnv("PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "json"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_SEC", 30)) * time.Second,

		Database: database.Config{
			Host:               getEnv("DB_HOST", "localhost"),
			Port:               getEnvInt("DB_PORT", 5432),
			User:               getEnv("DB_USER", "voyago"),
			Password:           getEnv("DB_PASSWORD", "voyago123"),
			DBName:             getEnv("DB_NAME", "voyago"),
			SSLMode:            getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns:       getEnvInt("DB_MAX_OPEN_CONNS", 50),
			MaxIdleConns:       getEnvInt("DB_MAX_IDLE_CONNS", 10),
			ConnMaxLifetimeMin: getEnvInt("DB_CONN_MAX_LIFETIME_MIN", 5),
			ConnMaxIdleTimeMin: getEnvInt("DB_CONN_MAX_IDLE_TIME_MIN", 1),
		},

		Redis: cache.Config{
			Addr:         getEnv("REDIS_ADDR", "localhost:6379"),
			Password:     os.Getenv("REDIS_PASSWORD"),
			UsersHashKey: getEnv("REDIS_USERS_HASH_KEY", "users:auth"),
		},

		NATS: messaging.Config{
			URL:       getEnv("NATS_URL", "nats://localhost:4222"),
			ClusterID: getEnv("NATS_CLUSTER_ID", "voyago"),
			ClientID:  getEnv("NATS_CLIENT_ID", "voyago-api"),
		},

		Provider: external.ProviderConfig{
			BaseURL:       getEnv("PAYMENT_PROVIDER_URL", "https://pay.example.com/api/v1"),
			MerchantID:    getEnv("PAYMENT_MERCHANT_ID", ""),
			SigningSecret: getEnv("PAYMENT_SIGNING_SECRET", ""),
			Currency:      getEnv("PAYMENT_CURRENCY", "EUR"),
			Timeout:       time.Duration(getEnvInt("PAYMENT_TIMEOUT_SEC", 30)) * time.Second,
		},

		Booking: Booking{
			EnforceCapacity: getEnv("BOOKING_ENFORCE_CAPACITY", "false") == "true",
			PendingTTL:      time.Duration(getEnvInt("BOOKING_PENDING_TTL_MIN", 30)) * time.Minute,
		},
	}
}

// getEnv returns an environment variable or a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default value
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
