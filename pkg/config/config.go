package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort      string
	Environment     string
	FirebaseProject string
	RedisURL        string
	StoreDriver     string // "firestore" or "memory"
	StateDriver     string // "redis" or "memory"
	GreetingText    string
	PresenceTimeout time.Duration
	PresenceSweep   time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	config := &Config{
		ServerPort:      getEnv("SERVER_PORT", "8080"),
		Environment:     getEnv("ENVIRONMENT", "development"),
		FirebaseProject: getEnv("FIREBASE_PROJECT_ID", ""),
		RedisURL:        getEnv("REDIS_URL", "redis://localhost:6379/0"),
		StoreDriver:     getEnv("STORE_DRIVER", "firestore"),
		StateDriver:     getEnv("STATE_DRIVER", "redis"),
		GreetingText:    getEnv("GREETING_TEXT", "Hi! How can we help you today?"),
		PresenceTimeout: time.Duration(getEnvAsInt64("PRESENCE_TIMEOUT_SECONDS", 45)) * time.Second,
		PresenceSweep:   time.Duration(getEnvAsInt64("PRESENCE_SWEEP_SECONDS", 5)) * time.Second,
	}

	return config, nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value, exists := os.LookupEnv(key); exists {
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return intValue
		}
	}
	return defaultValue
}
