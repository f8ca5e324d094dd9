package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Summarizer variants selectable at construction.
const (
	SummarizerNaive  = "naive"
	SummarizerOpenAI = "openai"
)

// Cache backends selectable at construction.
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Port  string
	Debug bool

	// Schedule configuration
	ReportSchedule string // "daily" or "weekly"
	TimeZone       string

	// Mention source configuration
	NewsAPIKey string
	Brands     []string
	BrandsFile string
	Lookback   time.Duration

	// Cache configuration
	CacheTTL     time.Duration
	CacheBackend string // "memory" or "redis"
	RedisURL     string

	// Summarizer configuration
	Summarizer     string // "naive" or "openai"
	OpenAIAPIKey   string
	DigestMaxChars int

	// Snapshot archive (Azure Blob) configuration
	StorageAccount   string
	StorageContainer string
	ArchiveRetention int // archived snapshots to keep, 0 keeps everything

	// Notification configuration
	TeamsWebhookURL   string
	NotificationEmail string
	SMTPHost          string
	SMTPPort          int
	SMTPUsername      string
	SMTPPassword      string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Debug:          getBoolEnv("DEBUG", false),
		ReportSchedule: getEnv("REPORT_SCHEDULE", "daily"),
		TimeZone:       getEnv("TIMEZONE", "UTC"),

		NewsAPIKey: getEnv("NEWSAPI_KEY", ""),
		Brands:     getSliceEnv("BRANDS", []string{"Zomato", "Swiggy"}),
		BrandsFile: getEnv("BRANDS_FILE", ""),
		Lookback:   getDurationEnv("LOOKBACK", 24*time.Hour),

		CacheTTL:     getDurationEnv("CACHE_TTL", time.Hour),
		CacheBackend: getEnv("CACHE_BACKEND", CacheBackendMemory),
		RedisURL:     getEnv("REDIS_URL", ""),

		Summarizer:     getEnv("SUMMARIZER", SummarizerNaive),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		DigestMaxChars: getIntEnv("DIGEST_MAX_CHARS", 500),

		StorageAccount:   getEnv("AZURE_STORAGE_ACCOUNT", ""),
		StorageContainer: getEnv("AZURE_STORAGE_CONTAINER", "snapshots"),
		ArchiveRetention: getIntEnv("ARCHIVE_RETENTION", 30),

		TeamsWebhookURL:   getEnv("TEAMS_WEBHOOK_URL", ""),
		NotificationEmail: getEnv("NOTIFICATION_EMAIL", ""),
		SMTPHost:          getEnv("SMTP_HOST", ""),
		SMTPPort:          getIntEnv("SMTP_PORT", 587),
		SMTPUsername:      getEnv("SMTP_USERNAME", ""),
		SMTPPassword:      getEnv("SMTP_PASSWORD", ""),
	}

	// A brands file overrides the env list when present.
	if cfg.BrandsFile != "" {
		brands, err := loadBrandsFile(cfg.BrandsFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load brands file: %w", err)
		}
		cfg.Brands = brands
	}

	// Validate required configuration
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if len(c.Brands) == 0 {
		return fmt.Errorf("at least one brand must be configured (BRANDS or BRANDS_FILE)")
	}

	if c.ReportSchedule != "daily" && c.ReportSchedule != "weekly" {
		return fmt.Errorf("REPORT_SCHEDULE must be 'daily' or 'weekly'")
	}

	if c.Lookback <= 0 {
		return fmt.Errorf("LOOKBACK must be a positive duration")
	}

	if c.CacheTTL <= 0 {
		return fmt.Errorf("CACHE_TTL must be a positive duration")
	}

	if c.CacheBackend != CacheBackendMemory && c.CacheBackend != CacheBackendRedis {
		return fmt.Errorf("CACHE_BACKEND must be 'memory' or 'redis'")
	}

	if c.CacheBackend == CacheBackendRedis && c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND is 'redis'")
	}

	if c.Summarizer != SummarizerNaive && c.Summarizer != SummarizerOpenAI {
		return fmt.Errorf("SUMMARIZER must be 'naive' or 'openai'")
	}

	if c.Summarizer == SummarizerOpenAI && c.OpenAIAPIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when SUMMARIZER is 'openai'")
	}

	if c.ArchiveRetention < 0 {
		return fmt.Errorf("ARCHIVE_RETENTION must be zero or positive")
	}

	if c.NotificationEmail != "" {
		if c.SMTPHost == "" || c.SMTPUsername == "" || c.SMTPPassword == "" {
			return fmt.Errorf("SMTP configuration is required when NOTIFICATION_EMAIL is set")
		}
	}

	return nil
}

type brandsFile struct {
	Brands []string `yaml:"brands"`
}

func loadBrandsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var parsed brandsFile
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, err
	}

	var brands []string
	for _, brand := range parsed.Brands {
		brand = strings.TrimSpace(brand)
		if brand != "" {
			brands = append(brands, brand)
		}
	}

	return brands, nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		var items []string
		for _, item := range strings.Split(value, ",") {
			item = strings.TrimSpace(item)
			if item != "" {
				items = append(items, item)
			}
		}
		return items
	}
	return defaultValue
}
