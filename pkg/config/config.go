package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// Batch
	Batch BatchConfig

	// Factor model
	Factor FactorConfig

	// API
	API APIConfig

	// Logging
	LogLevel  string
	LogFormat string
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration for the price-series cache
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool

	// TTL for cached price series
	PriceTTL time.Duration
}

// BatchConfig holds daily batch orchestration configuration
type BatchConfig struct {
	// Cron expression for the daily run (with seconds field)
	Schedule string

	// Portfolio-level parallelism; 1 means strictly sequential
	Workers int

	// Retry policy for transient failures
	MaxRetries int
	RetryDelay time.Duration
}

// FactorConfig holds factor-exposure model configuration
type FactorConfig struct {
	// Trailing window of observations fed into the regression
	LookbackDays int

	// Minimum aligned observations before a position gets real betas
	MinRegressionDays int

	// Ridge regularization strength
	RidgeLambda float64

	// Daily risk-free rate subtracted to form excess returns
	RiskFreeDaily float64

	// Active factor basis version: "traditional-v1" or "spread-v1"
	BasisVersion string
}

// APIConfig holds read-API configuration
type APIConfig struct {
	// Requests per second allowed per server, with burst
	RateLimit float64
	RateBurst int
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8090"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			PriceTTL: getEnvAsDuration("REDIS_PRICE_TTL", "6h"),
		},

		// Batch
		Batch: BatchConfig{
			Schedule:   getEnv("BATCH_SCHEDULE", "0 30 17 * * MON-FRI"),
			Workers:    getEnvAsInt("BATCH_WORKERS", 1),
			MaxRetries: getEnvAsInt("BATCH_MAX_RETRIES", 3),
			RetryDelay: getEnvAsDuration("BATCH_RETRY_DELAY", "30s"),
		},

		// Factor model
		Factor: FactorConfig{
			LookbackDays:      getEnvAsInt("FACTOR_LOOKBACK_DAYS", 252),
			MinRegressionDays: getEnvAsInt("FACTOR_MIN_REGRESSION_DAYS", 60),
			RidgeLambda:       getEnvAsFloat("FACTOR_RIDGE_LAMBDA", 0.0005),
			RiskFreeDaily:     getEnvAsFloat("FACTOR_RISK_FREE_DAILY", 0.0),
			BasisVersion:      getEnv("FACTOR_BASIS_VERSION", "traditional-v1"),
		},

		// API
		API: APIConfig{
			RateLimit: getEnvAsFloat("API_RATE_LIMIT", 50),
			RateBurst: getEnvAsInt("API_RATE_BURST", 100),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Batch.Workers < 1 {
		return fmt.Errorf("BATCH_WORKERS must be >= 1")
	}

	if c.Factor.MinRegressionDays < 2 {
		return fmt.Errorf("FACTOR_MIN_REGRESSION_DAYS must be >= 2")
	}

	if c.Factor.LookbackDays < c.Factor.MinRegressionDays {
		return fmt.Errorf("FACTOR_LOOKBACK_DAYS must be >= FACTOR_MIN_REGRESSION_DAYS")
	}

	if c.Factor.RidgeLambda < 0 {
		return fmt.Errorf("FACTOR_RIDGE_LAMBDA must be >= 0")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}
