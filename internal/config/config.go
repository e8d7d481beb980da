package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                 string
	DBDSN                string
	LogLevel             string
	LogFile              string
	HistoryRetentionDays int
}

func Load() Config {
	// .env is optional; real env vars win either way
	_ = godotenv.Load()

	cfg := Config{
		Port:                 getenv("PORT", "8080"),
		DBDSN:                getenv("DB_DSN", "priceboard.db"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogFile:              os.Getenv("LOG_FILE"),
		HistoryRetentionDays: getint("HISTORY_RETENTION_DAYS", 365),
	}
	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getint(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}
