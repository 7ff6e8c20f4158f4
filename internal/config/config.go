package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=qrmenu port=5432 sslmode=disable"

type Config struct {
	AppEnv      string
	HTTPPort    string
	DBDriver    string
	DatabaseDSN string
	JWTSecret   string
	CORSOrigins string
	FrontendURL string // base of the QR deep links printed on tables
	LogLevel    string

	RabbitMQURL      string // empty disables the cross-instance relay
	RabbitMQExchange string

	OwnerSessionTTL time.Duration
	StaffSessionTTL time.Duration
}

// Load reads the environment, after merging a local .env file if one exists.
func Load() *Config {
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "development")
	defaultLevel := "info"
	if env == "development" {
		defaultLevel = "debug"
	}

	cfg := &Config{
		AppEnv:           env,
		HTTPPort:         getEnv("HTTP_PORT", "8080"),
		DBDriver:         strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DatabaseDSN:      getEnv("DATABASE_DSN", defaultDSN),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		CORSOrigins:      getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		FrontendURL:      strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:5173"), "/"),
		LogLevel:         getEnv("LOG_LEVEL", defaultLevel),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQExchange: getEnv("RABBITMQ_EXCHANGE", "order_events"),
		OwnerSessionTTL:  getEnvDuration("OWNER_SESSION_TTL", 24*time.Hour),
		StaffSessionTTL:  getEnvDuration("STAFF_SESSION_TTL", 8*time.Hour),
	}

	if cfg.DatabaseDSN == defaultDSN {
		log.Println("[WARN] DATABASE_DSN is using the default value, set your own connection string in production.")
	}
	if cfg.CORSOrigins == "http://localhost:5173" {
		log.Println("[WARN] CORS_ALLOWED_ORIGINS is using the default value, set your own domain in production.")
	}

	return cfg
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return errors.New("JWT_SECRET must be at least 32 characters")
	}
	switch c.DBDriver {
	case "postgres", "mysql", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.OwnerSessionTTL <= 0 || c.StaffSessionTTL <= 0 {
		return errors.New("session TTLs must be positive")
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("[WARN] %s=%q is not a duration, using %s", key, v, def)
	}
	return def
}
