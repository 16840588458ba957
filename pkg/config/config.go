package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	FirebaseProject string
	Environment     string
	DevTokenSecret  string

	// ChannelMode selects the channel identity key: "listing" scopes a
	// channel to one listing, "pair" reuses one channel per user pair.
	ChannelMode string

	OfferTTL       time.Duration
	ReservationTTL time.Duration
	SweepInterval  time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		Environment:     getEnv("ENVIRONMENT", "development"),
		DevTokenSecret:  getEnv("DEV_TOKEN_SECRET", "dev-secret"),
		ChannelMode:     getEnv("CHANNEL_MODE", "listing"),
		OfferTTL:        getEnvAsDuration("OFFER_TTL_HOURS", 48) * time.Hour,
		ReservationTTL:  getEnvAsDuration("RESERVATION_TTL_HOURS", 2) * time.Hour,
		SweepInterval:   getEnvAsDuration("SWEEP_INTERVAL_MINUTES", 15) * time.Minute,
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsDuration falls back to the default for unparsable or
// non-positive values; the results feed tickers and deadlines, which
// both reject zero.
func getEnvAsDuration(key string, defaultValue int64) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil && intValue > 0 {
			return time.Duration(intValue)
		}
	}
	return time.Duration(defaultValue)
}
