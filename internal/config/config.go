package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds the application configuration
type Config struct {
	DatabaseURL string
	ServerAddr  string

	// LoanPeriodDays is the loan period used to derive due dates.
	LoanPeriodDays int

	// MaxOpenLoans caps concurrent open loans per member; 0 disables the cap.
	MaxOpenLoans int

	// UseMemoryStore runs the server on the in-process store instead of
	// PostgreSQL. Development and testing only.
	UseMemoryStore bool
}

// LoadFromEnv loads configuration from environment variables
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ServerAddr:     getEnv("SERVER_ADDR", ":8080"),
		LoanPeriodDays: 14,
		MaxOpenLoans:   5,
	}

	cfg.UseMemoryStore = os.Getenv("USE_MEMORY_STORE") == "true"

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" && !cfg.UseMemoryStore {
		return nil, fmt.Errorf("DATABASE_URL is required when USE_MEMORY_STORE is not set")
	}

	if v := os.Getenv("LOAN_PERIOD_DAYS"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return nil, fmt.Errorf("invalid LOAN_PERIOD_DAYS: %s", v)
		}
		cfg.LoanPeriodDays = days
	}

	if v := os.Getenv("MAX_OPEN_LOANS"); v != "" {
		max, err := strconv.Atoi(v)
		if err != nil || max < 0 {
			return nil, fmt.Errorf("invalid MAX_OPEN_LOANS: %s", v)
		}
		cfg.MaxOpenLoans = max
	}

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
