package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Load reads .env into the process environment. A missing file is fine;
// deployed environments inject real variables.
func Load() {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file loaded", "error", err)
	}
}

// Get returns the environment variable or the fallback when unset.
func Get(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
