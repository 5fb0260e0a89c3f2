package config

import (
	"os"
	"strconv"
	"time"

	"ticket-scanner/internal/services/ticketing"
)

type Config struct {
	// Server configuration
	Port        string
	Environment string

	// Redis configuration
	RedisURL      string
	RedisPassword string
	RedisDB       int

	// Ticketing backend configuration
	Ticketing ticketing.Config

	// PubNub configuration (outcome feed for live dashboards)
	PubNubPublishKey   string
	PubNubSubscribeKey string
	PubNubSecretKey    string

	// Scan workflow configuration
	DebounceWindow    time.Duration
	ValidationTimeout time.Duration
	SessionTTL        time.Duration

	// Offline cache configuration
	OfflineSnapshotTTL time.Duration

	// Cleanup configuration
	CleanupInterval time.Duration

	// Monitoring
	EnableMetrics bool
	MetricsPort   string
}

func LoadConfig() *Config {
	return &Config{
		// Server
		Port:        getEnv("PORT", "8090"),
		Environment: getEnv("ENVIRONMENT", "development"),

		// Redis
		RedisURL:      getEnv("REDIS_URL", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		// Ticketing backend
		Ticketing: ticketing.Config{
			BaseURL:   getEnv("TICKETING_BASE_URL", "http://localhost:8080"),
			ClientID:  getEnv("TICKETING_CLIENT_ID", ""),
			ClientKey: getEnv("TICKETING_CLIENT_KEY", ""),
			HMACKey:   getEnv("TICKETING_HMAC_KEY", ""),

			PNSubKey:  getEnv("TICKETING_PN_SUBKEY", ""),
			PNUUID:    getEnv("TICKETING_PN_UUID", "ticket-scanner"),
			PNChannel: getEnv("TICKETING_PN_CHANNEL", "ticket-status"),
		},

		// PubNub outcome feed
		PubNubPublishKey:   getEnv("PUBNUB_PUBLISH_KEY", ""),
		PubNubSubscribeKey: getEnv("PUBNUB_SUBSCRIBE_KEY", ""),
		PubNubSecretKey:    getEnv("PUBNUB_SECRET_KEY", ""),

		// Scan workflow
		DebounceWindow:    getEnvAsDuration("DEBOUNCE_WINDOW", "3s"),
		ValidationTimeout: getEnvAsDuration("VALIDATION_TIMEOUT", "15s"),
		SessionTTL:        getEnvAsDuration("SESSION_TTL", "30m"),

		// Offline cache
		OfflineSnapshotTTL: getEnvAsDuration("OFFLINE_SNAPSHOT_TTL", "24h"),

		// Cleanup
		CleanupInterval: getEnvAsDuration("CLEANUP_INTERVAL", "10m"),

		// Monitoring
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		MetricsPort:   getEnv("METRICS_PORT", "9090"),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := getEnv(key, defaultValue)
	if duration, err := time.ParseDuration(valueStr); err == nil {
		return duration
	}
	// If parsing fails, try to parse default value
	duration, _ := time.ParseDuration(defaultValue)
	return duration
}
