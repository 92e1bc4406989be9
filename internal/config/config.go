package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the messaging service.
type Config struct {
	Port string
	Env  string

	// StoreDriver selects the persistence adapter: "mongo", "postgres" or "bolt".
	StoreDriver string
	MongoURL    string
	MongoDB     string
	DatabaseURL string
	BoltPath    string

	RedisURL  string
	JWTSecret string

	AsynqConcurrency int
}

// Load reads configuration from environment variables.
// In development it also loads a .env file if present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Env:              getEnv("ENV", "development"),
		StoreDriver:      getEnv("STORE_DRIVER", "bolt"),
		MongoURL:         os.Getenv("MONGO_URL"),
		MongoDB:          getEnv("MONGO_DB", "lms"),
		DatabaseURL:      os.Getenv("DB_URL"),
		BoltPath:         getEnv("BOLT_PATH", "lms-chat.bolt"),
		RedisURL:         os.Getenv("REDIS_URL"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		AsynqConcurrency: getEnvInt("ASYNQ_CONCURRENCY", 10),
	}

	if cfg.Env == "production" {
		if cfg.JWTSecret == "" {
			panic("JWT_SECRET is required in production")
		}
		switch cfg.StoreDriver {
		case "mongo":
			if cfg.MongoURL == "" {
				panic("MONGO_URL is required when STORE_DRIVER=mongo")
			}
		case "postgres":
			if cfg.DatabaseURL == "" {
				panic("DB_URL is required when STORE_DRIVER=postgres")
			}
		}
	}

	return cfg
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}
