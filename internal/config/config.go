package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/efreitasn/stocktrader/internal/domain"
)

// Config holds all runtime configuration for the stock trader.
type Config struct {
	Port                 int
	LogLevel             string
	DBPath               string // empty selects the in-memory fallback
	FallbackLogPath      string // empty disables the fallback CSV mirror
	FallbackLogMaxSizeMB int
	PriceUpdateInterval  time.Duration
	PriceMaxChange       float64 // fraction, 0.01 = ±1%
	PriceFloor           int64   // cents
	SeedFile             string  // empty selects the built-in seed
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	ShutdownTimeout      time.Duration
}

// Load reads configuration from environment variables, applies defaults,
// and validates values. It returns an error for any invalid value.
func Load() (*Config, error) {
	port, err := getInt("PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("invalid PORT: %w", err)
	}

	logLevel := getStr("LOG_LEVEL", "info")
	if !isValidLogLevel(logLevel) {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %q, must be one of: debug, info, warn, error", logLevel)
	}

	fallbackMaxSize, err := getInt("FALLBACK_LOG_MAX_SIZE_MB", 10)
	if err != nil {
		return nil, fmt.Errorf("invalid FALLBACK_LOG_MAX_SIZE_MB: %w", err)
	}
	if fallbackMaxSize <= 0 {
		return nil, fmt.Errorf("invalid FALLBACK_LOG_MAX_SIZE_MB: %d, must be > 0", fallbackMaxSize)
	}

	priceInterval, err := getDuration("PRICE_UPDATE_INTERVAL", 2*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_UPDATE_INTERVAL: %w", err)
	}
	if priceInterval <= 0 {
		return nil, fmt.Errorf("invalid PRICE_UPDATE_INTERVAL: %v, must be > 0", priceInterval)
	}

	maxChange, err := getFloat("PRICE_MAX_CHANGE", 0.01)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_MAX_CHANGE: %w", err)
	}
	if maxChange <= 0 || maxChange >= 1 {
		return nil, fmt.Errorf("invalid PRICE_MAX_CHANGE: %v, must be in (0, 1)", maxChange)
	}

	floorDollars, err := getFloat("PRICE_FLOOR", 0.01)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_FLOOR: %w", err)
	}
	floor, err := domain.DollarsToCents(floorDollars)
	if err != nil {
		return nil, fmt.Errorf("invalid PRICE_FLOOR: %w", err)
	}
	if floor <= 0 {
		return nil, fmt.Errorf("invalid PRICE_FLOOR: %v, must be >= 0.01", floorDollars)
	}

	readTimeout, err := getDuration("READ_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid READ_TIMEOUT: %w", err)
	}

	writeTimeout, err := getDuration("WRITE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid WRITE_TIMEOUT: %w", err)
	}

	idleTimeout, err := getDuration("IDLE_TIMEOUT", 60*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid IDLE_TIMEOUT: %w", err)
	}

	shutdownTimeout, err := getDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %w", err)
	}

	return &Config{
		Port:                 port,
		LogLevel:             logLevel,
		DBPath:               getStr("DB_PATH", ""),
		FallbackLogPath:      getStr("FALLBACK_LOG_PATH", ""),
		FallbackLogMaxSizeMB: fallbackMaxSize,
		PriceUpdateInterval:  priceInterval,
		PriceMaxChange:       maxChange,
		PriceFloor:           floor,
		SeedFile:             getStr("SEED_FILE", ""),
		ReadTimeout:          readTimeout,
		WriteTimeout:         writeTimeout,
		IdleTimeout:          idleTimeout,
		ShutdownTimeout:      shutdownTimeout,
	}, nil
}

func getStr(key, defaultVal string) string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	return v
}

func getInt(key string, defaultVal int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.Atoi(v)
}

func getFloat(key string, defaultVal float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return strconv.ParseFloat(v, 64)
}

func getDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal, nil
	}
	return time.ParseDuration(v)
}

func isValidLogLevel(level string) bool {
	switch level {
	case "debug", "info", "warn", "error":
		return true
	}
	return false
}
