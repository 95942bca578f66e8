// Package config loads application configuration from environment variables.
package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values. Each field
// corresponds to an environment variable. The types reflect how the
// values are used: strings for identifiers, durations for timeouts.
type Config struct {
	Env       string        // application environment (e.g. "dev", "prod")
	Port      string        // HTTP port for the operational endpoints
	DBUser    string        // database username
	DBPass    string        // database password (optional)
	DBHost    string        // database host address
	DBPort    string        // database port number
	DBName    string        // database name
	OpTimeout time.Duration // per-operation timeout applied around repository calls
}

// Load reads configuration from the environment, after loading a
// local .env file when one exists. Required variables are enforced
// by must() and missing values cause the program to exit with a
// fatal log message.
func Load() Config {
	_ = godotenv.Load()
	return Config{
		Env:       must("APP_ENV"),
		Port:      must("APP_PORT"),
		DBUser:    must("DB_USER"),
		DBPass:    os.Getenv("DB_PASS"), // empty allowed
		DBHost:    must("DB_HOST"),
		DBPort:    must("DB_PORT"),
		DBName:    must("DB_NAME"),
		OpTimeout: parseDur(getenv("OP_TIMEOUT", "5s")),
	}
}

// must retrieves the value of a required environment variable. If
// the variable is unset or empty, the application logs a fatal error
// and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDur(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 5 * time.Second
	}
	return d
}
