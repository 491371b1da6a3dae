package config

import (
	"os"
	"strconv"
	"time"

	apperr "sjsage522/stockwatcher/pkg/errors"
)

// Config represents the application configuration
type Config struct {
	// HTTP server
	HTTPAddr string

	// SQLite database
	DatabasePath string
	SeedOnStart  bool

	// Redis configuration (notification stream + run lock)
	RedisAddr            string
	RedisDB              int
	RedisStream          string
	RedisStreamMaxLength int

	// Memcache configuration (fetch block windows)
	MemcacheAddr string

	// Monitoring configuration
	FetchTimeout    time.Duration
	FetchBlockTime  time.Duration
	MonitorInterval time.Duration // 0 disables the internal scheduler
	WorkerCount     int
	RunLockTTL      time.Duration

	// Environment
	Environment string
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLen, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "500"))
	fetchTimeout, _ := strconv.Atoi(getEnv("FETCH_TIMEOUT_SECONDS", "10"))
	blockTime, _ := strconv.Atoi(getEnv("FETCH_BLOCK_SECONDS", "300"))
	monitorInterval, _ := strconv.Atoi(getEnv("MONITOR_INTERVAL_MINUTES", "0"))
	workerCount, _ := strconv.Atoi(getEnv("WORKER_COUNT", "4"))
	runLockTTL, _ := strconv.Atoi(getEnv("RUN_LOCK_TTL_MINUTES", "10"))

	return &Config{
		HTTPAddr:             getEnv("HTTP_ADDR", ":8080"),
		DatabasePath:         getEnv("DATABASE_PATH", "stockwatcher.db"),
		SeedOnStart:          getEnv("SEED_ON_START", "false") == "true",
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "notifications"),
		RedisStreamMaxLength: streamMaxLen,
		MemcacheAddr:         getEnv("MEMCACHE_ADDR", "localhost:11211"),
		FetchTimeout:         time.Duration(fetchTimeout) * time.Second,
		FetchBlockTime:       time.Duration(blockTime) * time.Second,
		MonitorInterval:      time.Duration(monitorInterval) * time.Minute,
		WorkerCount:          workerCount,
		RunLockTTL:           time.Duration(runLockTTL) * time.Minute,
		Environment:          getEnv("STOCKWATCHER_ENVIRONMENT", "development"),
	}
}

// Validate checks the configuration for invalid values
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return apperr.NewConfiguration("DATABASE_PATH must not be empty")
	}
	if c.WorkerCount < 1 {
		return apperr.NewConfiguration("WORKER_COUNT must be at least 1")
	}
	if c.FetchTimeout <= 0 {
		return apperr.NewConfiguration("FETCH_TIMEOUT_SECONDS must be positive")
	}
	if c.RunLockTTL <= 0 {
		return apperr.NewConfiguration("RUN_LOCK_TTL_MINUTES must be positive")
	}
	if c.RedisStreamMaxLength < 1 {
		return apperr.NewConfiguration("REDIS_STREAM_MAX_LENGTH must be at least 1")
	}
	return nil
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
