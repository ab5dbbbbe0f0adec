package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
type Config struct {
	// Database
	DatabaseURL string

	// Server
	Port        string
	CORSOrigins []string
	Env         string

	// Batch processing
	WorkerPoolSize int

	// Lending policy
	DayCountDefault      string
	BusinessDayMode      string
	PrepaymentPenaltyPct decimal.Decimal
	LateFeeRatePct       decimal.Decimal
	LateFeeGraceDays     int
	NPATriggerDPD        int
	SMABoundaries        [3]int

	// EOD scheduling
	EODIntervalMinutes int

	// Rate limiting
	RateLimitPerMinute int
	RateLimitBurst     int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		Port:               getEnv("PORT", "8080"),
		CORSOrigins:        strings.Split(getEnv("CORS_ORIGINS", "http://localhost:3000"), ","),
		Env:                getEnv("ENV", "development"),
		WorkerPoolSize:     getEnvInt("WORKER_POOL_SIZE", 8),
		DayCountDefault:    getEnv("DAY_COUNT_DEFAULT", "ACT/365"),
		BusinessDayMode:    getEnv("BUSINESS_DAY_MODE", "none"),
		LateFeeGraceDays:   getEnvInt("LATE_FEE_GRACE_DAYS", 0),
		NPATriggerDPD:      getEnvInt("NPA_TRIGGER_DPD", 90),
		EODIntervalMinutes: getEnvInt("EOD_INTERVAL_MINUTES", 15),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 300),
		RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 30),
	}

	penalty, err := decimal.NewFromString(getEnv("PREPAYMENT_PENALTY_PCT", "2"))
	if err != nil {
		return nil, fmt.Errorf("PREPAYMENT_PENALTY_PCT is not a number: %w", err)
	}
	cfg.PrepaymentPenaltyPct = penalty

	lateFee, err := decimal.NewFromString(getEnv("LATE_FEE_RATE_PCT", "2"))
	if err != nil {
		return nil, fmt.Errorf("LATE_FEE_RATE_PCT is not a number: %w", err)
	}
	cfg.LateFeeRatePct = lateFee

	boundaries, err := parseSMABoundaries(getEnv("SMA_BOUNDARIES", "30,60,90"))
	if err != nil {
		return nil, err
	}
	cfg.SMABoundaries = boundaries

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.WorkerPoolSize < 1 {
		return fmt.Errorf("WORKER_POOL_SIZE must be at least 1")
	}
	if c.NPATriggerDPD < 1 {
		return fmt.Errorf("NPA_TRIGGER_DPD must be at least 1")
	}
	if c.EODIntervalMinutes < 1 {
		return fmt.Errorf("EOD_INTERVAL_MINUTES must be at least 1")
	}
	for i := 1; i < len(c.SMABoundaries); i++ {
		if c.SMABoundaries[i] <= c.SMABoundaries[i-1] {
			return fmt.Errorf("SMA_BOUNDARIES must be strictly increasing")
		}
	}
	return nil
}

func parseSMABoundaries(value string) ([3]int, error) {
	parts := strings.Split(value, ",")
	if len(parts) != 3 {
		return [3]int{}, fmt.Errorf("SMA_BOUNDARIES needs exactly three comma-separated values")
	}
	var boundaries [3]int
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return [3]int{}, fmt.Errorf("SMA_BOUNDARIES value %q is not a number", part)
		}
		boundaries[i] = n
	}
	return boundaries, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
