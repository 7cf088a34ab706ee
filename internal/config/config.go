package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wnt/blinkwatch/internal/money"
)

// DefaultAccountName names the account configured through BLINK_API_KEY
const DefaultAccountName = "default"

// HistoryMode selects how much transaction history a cycle loads
type HistoryMode string

const (
	HistoryAll    HistoryMode = "all"
	HistoryRecent HistoryMode = "recent"
	HistoryOff    HistoryMode = "off"
)

// Account is one named API credential. String never includes the key.
type Account struct {
	Name   string
	APIKey string
}

func (a Account) String() string {
	return a.Name
}

// Config holds all configuration for blinkwatch
type Config struct {
	// Provider configuration
	APIURL   string
	Accounts []Account

	// Refresh configuration
	RefreshInterval time.Duration
	PageSize        int
	MaxPages        int
	HistoryMode     HistoryMode
	// RecentSize is the single page size in recent mode, zero uses PageSize
	RecentSize int

	// Display configuration
	DisplayUnit money.DisplayUnit
	Location    *time.Location

	// HTTP configuration
	RequestsPerSecond float64
	HTTPTimeout       time.Duration
	HTTPMaxRetries    int

	// Logging configuration
	LogLevel string

	// Metrics configuration, empty disables the server
	MetricsPort string

	// Optional sinks
	RedisURL    string
	DatabaseURL string
}

// Load reads configuration from environment variables and validates it
func Load() (Config, error) {
	cfg := Config{
		APIURL:      getEnv("BLINK_API_URL", "https://api.blink.sv/graphql"),
		HistoryMode: HistoryMode(strings.ToLower(getEnv("HISTORY_MODE", string(HistoryAll)))),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		MetricsPort: lookupEnv("METRICS_PORT", "9100"),
		RedisURL:    getEnv("REDIS_URL", ""),
		DatabaseURL: getEnv("DATABASE_URL", ""),
	}

	var err error
	cfg.Accounts, err = parseAccounts(getEnv("BLINK_ACCOUNTS", ""), getEnv("BLINK_API_KEY", ""))
	if err != nil {
		return cfg, fmt.Errorf("invalid BLINK_ACCOUNTS: %w", err)
	}
	if len(cfg.Accounts) == 0 {
		return cfg, fmt.Errorf("BLINK_API_KEY or BLINK_ACCOUNTS environment variable is required")
	}

	cfg.RefreshInterval, err = parseDurationEnv("REFRESH_INTERVAL", 2*time.Minute)
	if err != nil {
		return cfg, fmt.Errorf("invalid REFRESH_INTERVAL: %w", err)
	}

	cfg.PageSize, err = parseIntEnv("PAGE_SIZE", 100)
	if err != nil {
		return cfg, fmt.Errorf("invalid PAGE_SIZE: %w", err)
	}

	cfg.MaxPages, err = parseIntEnv("MAX_PAGES", 50)
	if err != nil {
		return cfg, fmt.Errorf("invalid MAX_PAGES: %w", err)
	}

	cfg.RecentSize, err = parseIntEnv("RECENT_SIZE", 0)
	if err != nil {
		return cfg, fmt.Errorf("invalid RECENT_SIZE: %w", err)
	}

	cfg.DisplayUnit, err = money.ParseDisplayUnit(getEnv("DISPLAY_UNIT", string(money.UnitSats)))
	if err != nil {
		return cfg, fmt.Errorf("invalid DISPLAY_UNIT: %w", err)
	}

	cfg.Location = time.Local
	if tz := getEnv("TIMEZONE", ""); tz != "" {
		cfg.Location, err = time.LoadLocation(tz)
		if err != nil {
			return cfg, fmt.Errorf("invalid TIMEZONE: %w", err)
		}
	}

	cfg.RequestsPerSecond, err = parseFloatEnv("REQUESTS_PER_SECOND", 2)
	if err != nil {
		return cfg, fmt.Errorf("invalid REQUESTS_PER_SECOND: %w", err)
	}

	cfg.HTTPTimeout, err = parseDurationEnv("HTTP_TIMEOUT", 30*time.Second)
	if err != nil {
		return cfg, fmt.Errorf("invalid HTTP_TIMEOUT: %w", err)
	}

	cfg.HTTPMaxRetries, err = parseIntEnv("HTTP_MAX_RETRIES", 3)
	if err != nil {
		return cfg, fmt.Errorf("invalid HTTP_MAX_RETRIES: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return cfg, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Account returns the named account
func (c Config) Account(name string) (Account, bool) {
	for _, a := range c.Accounts {
		if a.Name == name {
			return a, true
		}
	}
	return Account{}, false
}

// validate checks that the configuration is valid
func (c Config) validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("BLINK_API_URL is required")
	}

	if c.RefreshInterval <= 0 {
		return fmt.Errorf("REFRESH_INTERVAL must be positive")
	}

	if c.PageSize < 1 {
		return fmt.Errorf("PAGE_SIZE must be at least 1")
	}

	if c.MaxPages < 1 {
		return fmt.Errorf("MAX_PAGES must be at least 1")
	}

	if c.RecentSize < 0 {
		return fmt.Errorf("RECENT_SIZE must not be negative")
	}

	switch c.HistoryMode {
	case HistoryAll, HistoryRecent, HistoryOff:
	default:
		return fmt.Errorf("invalid HISTORY_MODE: %s (must be one of: all, recent, off)", c.HistoryMode)
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("REQUESTS_PER_SECOND must not be negative")
	}

	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive")
	}

	if c.HTTPMaxRetries < 0 {
		return fmt.Errorf("HTTP_MAX_RETRIES must not be negative")
	}

	validLogLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
		"fatal": true,
		"panic": true,
	}

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid LOG_LEVEL: %s (must be one of: trace, debug, info, warn, error, fatal, panic)", c.LogLevel)
	}

	return nil
}

// parseAccounts reads "name=key,name=key". A bare key is added as the
// default account unless that name is already taken.
func parseAccounts(list, defaultKey string) ([]Account, error) {
	var accounts []Account
	seen := make(map[string]bool)

	for i, entry := range strings.Split(list, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		name, key, ok := strings.Cut(entry, "=")
		name, key = strings.TrimSpace(name), strings.TrimSpace(key)
		if !ok || name == "" || key == "" {
			return nil, fmt.Errorf("entry %d must have the form name=key", i+1)
		}
		if seen[name] {
			return nil, fmt.Errorf("duplicate account %q", name)
		}
		seen[name] = true
		accounts = append(accounts, Account{Name: name, APIKey: key})
	}

	if key := strings.TrimSpace(defaultKey); key != "" && !seen[DefaultAccountName] {
		accounts = append([]Account{{Name: DefaultAccountName, APIKey: key}}, accounts...)
	}

	return accounts, nil
}

// getEnv retrieves an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// lookupEnv is getEnv for variables where an explicit empty value is meaningful
func lookupEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(value)
	}
	return defaultValue
}

// parseIntEnv parses an integer environment variable with a default value
func parseIntEnv(key string, defaultValue int) (int, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.Atoi(str)
}

func parseFloatEnv(key string, defaultValue float64) (float64, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return strconv.ParseFloat(str, 64)
}

func parseDurationEnv(key string, defaultValue time.Duration) (time.Duration, error) {
	str := os.Getenv(key)
	if str == "" {
		return defaultValue, nil
	}
	return time.ParseDuration(str)
}
