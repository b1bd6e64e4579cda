// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Stock API providers
const (
	ProviderAlphaVantage = "alpha-vantage"
	ProviderFinnhub      = "finnhub"
)

// Config holds application configuration
type Config struct {
	DataDir  string // Base directory for all databases (always absolute)
	Port     int
	LogLevel string
	DevMode  bool

	MarketData MarketDataConfig
	Gemini     GeminiConfig
	News       NewsConfig
	Auth       AuthConfig
	Banking    BankingConfig
	Backup     BackupConfig

	RedisURL             string // Consent store backend; in-memory when empty
	CacheCleanupSchedule string
}

// MarketDataConfig configures the quote providers
type MarketDataConfig struct {
	Provider           string
	AlphaVantageAPIKey string
	FinnhubAPIKey      string
	Timeout            time.Duration
	RatePerMinute      int
}

// GeminiConfig configures the free-text completion service
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
}

// NewsConfig configures the news feed
type NewsConfig struct {
	APIKey  string
	BaseURL string
}

// AuthConfig configures token issuing and route protection
type AuthConfig struct {
	JWTSecret   string
	TokenExpiry time.Duration
	RequireAuth bool
}

// BankingConfig holds the defaults used when a bank account is created lazily
type BankingConfig struct {
	DefaultBankName     string
	AccountNumberPrefix string
}

// BackupConfig configures S3 backups. Backups are disabled when Bucket is empty.
type BackupConfig struct {
	Bucket        string
	Prefix        string
	Region        string
	Endpoint      string
	AccessKeyID   string
	SecretKey     string
	Schedule      string
	RetentionDays int
}

// Enabled reports whether S3 backups are configured
func (b BackupConfig) Enabled() bool {
	return b.Bucket != ""
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	absDataDir, err := filepath.Abs(getEnv("PM_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(absDataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	providerTimeout := getEnvAsDuration("PROVIDER_TIMEOUT", 5*time.Second)

	cfg := &Config{
		DataDir:  absDataDir,
		Port:     getEnvAsInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		DevMode:  getEnvAsBool("DEV_MODE", false),
		MarketData: MarketDataConfig{
			Provider:           getEnv("STOCK_API_PROVIDER", ProviderAlphaVantage),
			AlphaVantageAPIKey: getEnv("ALPHA_VANTAGE_API_KEY", "demo"),
			FinnhubAPIKey:      getEnv("FINNHUB_API_KEY", "demo"),
			Timeout:            providerTimeout,
			RatePerMinute:      getEnvAsInt("PROVIDER_RATE_PER_MINUTE", 5),
		},
		Gemini: GeminiConfig{
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			Timeout: providerTimeout,
		},
		News: NewsConfig{
			APIKey:  getEnv("NEWS_API_KEY", ""),
			BaseURL: getEnv("NEWS_API_URL", "https://newsapi.org/v2"),
		},
		Auth: AuthConfig{
			JWTSecret:   getEnv("JWT_SECRET", "dev-secret-change-me"),
			TokenExpiry: getEnvAsDuration("JWT_EXPIRY", 24*time.Hour),
			RequireAuth: getEnvAsBool("REQUIRE_AUTH", false),
		},
		Banking: BankingConfig{
			DefaultBankName:     getEnv("DEFAULT_BANK_NAME", "HSBC Bank"),
			AccountNumberPrefix: getEnv("ACCOUNT_NUMBER_PREFIX", "ACC"),
		},
		Backup: BackupConfig{
			Bucket:        getEnv("BACKUP_S3_BUCKET", ""),
			Prefix:        getEnv("BACKUP_S3_PREFIX", "portfolio-manager/"),
			Region:        getEnv("BACKUP_S3_REGION", "us-east-1"),
			Endpoint:      getEnv("BACKUP_S3_ENDPOINT", ""),
			AccessKeyID:   getEnv("BACKUP_S3_ACCESS_KEY_ID", ""),
			SecretKey:     getEnv("BACKUP_S3_SECRET_ACCESS_KEY", ""),
			Schedule:      getEnv("BACKUP_SCHEDULE", "0 0 3 * * *"),
			RetentionDays: getEnvAsInt("BACKUP_RETENTION_DAYS", 30),
		},
		RedisURL:             getEnv("REDIS_URL", ""),
		CacheCleanupSchedule: getEnv("CACHE_CLEANUP_SCHEDULE", "0 0 * * * *"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks if required configuration is present
func (c *Config) Validate() error {
	switch c.MarketData.Provider {
	case ProviderAlphaVantage, ProviderFinnhub:
	default:
		return fmt.Errorf("unknown stock API provider: %q", c.MarketData.Provider)
	}

	if c.Port <= 0 {
		return fmt.Errorf("port must be positive, got %d", c.Port)
	}
	if c.MarketData.Timeout <= 0 {
		return fmt.Errorf("provider timeout must be positive")
	}
	if c.MarketData.RatePerMinute <= 0 {
		return fmt.Errorf("provider rate must be positive")
	}
	if c.Auth.RequireAuth && c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required when REQUIRE_AUTH is enabled")
	}

	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
