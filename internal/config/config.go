// Package config loads application configuration from environment
// variables.  A .env file in the working directory is read first when
// present; real environment variables take precedence over it.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Storage drivers.
const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.
type Config struct {
	Env     string // application environment (dev, test, prod)
	Port    string // HTTP port to listen on
	Storage string // ledger storage driver: mysql or memory

	DBUser    string
	DBPass    string // empty allowed
	DBHost    string
	DBPort    string
	DBName    string
	DBMigrate bool // create the ledger tables on startup

	JWTSecret    string // secret used to verify access tokens
	LinkTokenKey string // keys the stored digest of payment link tokens

	RabbitURL  string // broker for ledger events; empty logs events instead
	EventQueue string

	LinkTTL           time.Duration // lifetime of an issued payment link
	LinkSweepInterval time.Duration // how often stale links are expired; 0 disables

	LogLevel  string
	LogFormat string
}

// Load reads configuration values from the environment.  Required
// variables are enforced by must() and a missing value stops the process.
// Database settings are required only for the mysql storage driver.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		Env:               must("APP_ENV"),
		Port:              must("APP_PORT"),
		Storage:           envStr("STORAGE_DRIVER", StorageMySQL),
		DBPass:            os.Getenv("DB_PASS"),
		DBMigrate:         envBool("DB_MIGRATE", false),
		JWTSecret:         must("JWT_SECRET"),
		LinkTokenKey:      os.Getenv("LINK_TOKEN_KEY"),
		RabbitURL:         os.Getenv("RABBITMQ_URL"),
		EventQueue:        envStr("EVENT_QUEUE", "ledger.events"),
		LinkTTL:           envDur("LINK_TTL", 7*24*time.Hour),
		LinkSweepInterval: envDur("LINK_SWEEP_INTERVAL", 15*time.Minute),
		LogLevel:          envStr("LOG_LEVEL", "info"),
		LogFormat:         envStr("LOG_FORMAT", "json"),
	}
	if cfg.LinkTokenKey == "" {
		cfg.LinkTokenKey = cfg.JWTSecret
	}
	switch cfg.Storage {
	case StorageMySQL:
		cfg.DBUser = must("DB_USER")
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = must("DB_PORT")
		cfg.DBName = must("DB_NAME")
	case StorageMemory:
	default:
		log.Fatalf("invalid STORAGE_DRIVER %q (want mysql or memory)", cfg.Storage)
	}
	return cfg
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
