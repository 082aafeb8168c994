package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	Email        EmailConfig
	Cron         CronConfig
	Jobs         JobsConfig
	Scheduler    SchedulerConfig
	Health       HealthConfig
	RateLimit    RateLimitConfig
	Verification VerificationConfig
	Analytics    AnalyticsConfig
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           string
	Env            string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL          string
	AutoMigrate  bool
	MaxOpenConns int
}

// EmailConfig holds email provider settings
type EmailConfig struct {
	ResendAPIKey      string
	From              string
	APIURL            string
	AppBaseURL        string
	APIBaseURL        string
	UnsubscribeSecret string
}

// CronConfig holds the shared secret the scheduled invoker authenticates with
type CronConfig struct {
	Secret     string
	SecretHash string
}

// JobsConfig holds the default retry policy for background jobs
type JobsConfig struct {
	MaxRetries int
	RetryDelay time.Duration
	Timeout    time.Duration
}

// SchedulerConfig holds in-process scheduler settings
type SchedulerConfig struct {
	Enabled  bool
	Interval time.Duration
}

// HealthConfig holds health probe settings
type HealthConfig struct {
	RequiredEnv   []string
	MemoryFloorMB int
}

// RateLimitConfig holds request rate limit settings
type RateLimitConfig struct {
	RedisAddr         string
	RequestsPerMinute int
}

// VerificationConfig holds posting verification and expiry settings
type VerificationConfig struct {
	FetchPages bool
	PostingTTL time.Duration
}

// AnalyticsConfig holds the analytics refresh endpoint
type AnalyticsConfig struct {
	RefreshURL string
}

// Load reads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	return &Config{
		Server: ServerConfig{
			Port:           getEnv("SERVER_PORT", "8080"),
			Env:            getEnv("SERVER_ENV", "development"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Minute),
			AllowedOrigins: getSliceEnv("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
		Database: DatabaseConfig{
			URL:          getEnv("DATABASE_URL", ""),
			AutoMigrate:  getBoolEnv("DATABASE_AUTO_MIGRATE", false),
			MaxOpenConns: getIntEnv("DATABASE_MAX_OPEN_CONNS", 10),
		},
		Email: EmailConfig{
			ResendAPIKey:      getEnv("RESEND_API_KEY", ""),
			From:              getEnv("EMAIL_FROM", "ContractsOnly <digest@contractsonly.com>"),
			APIURL:            getEnv("EMAIL_API_URL", "https://api.resend.com"),
			AppBaseURL:        getEnv("APP_BASE_URL", "http://localhost:3000"),
			APIBaseURL:        getEnv("API_BASE_URL", "http://localhost:8080"),
			UnsubscribeSecret: getEnv("UNSUBSCRIBE_SECRET", ""),
		},
		Cron: CronConfig{
			Secret:     getEnv("CRON_SECRET", ""),
			SecretHash: getEnv("CRON_SECRET_HASH", ""),
		},
		Jobs: JobsConfig{
			MaxRetries: getIntEnv("JOB_MAX_RETRIES", 3),
			RetryDelay: getDurationEnv("JOB_RETRY_DELAY", time.Second),
			Timeout:    getDurationEnv("JOB_TIMEOUT", 60*time.Second),
		},
		Scheduler: SchedulerConfig{
			Enabled:  getBoolEnv("SCHEDULER_ENABLED", false),
			Interval: getDurationEnv("SCHEDULER_INTERVAL", time.Hour),
		},
		Health: HealthConfig{
			RequiredEnv:   getSliceEnv("HEALTH_REQUIRED_ENV", []string{"DATABASE_URL", "RESEND_API_KEY", "CRON_SECRET"}),
			MemoryFloorMB: getIntEnv("HEALTH_MEMORY_FLOOR_MB", 50),
		},
		RateLimit: RateLimitConfig{
			RedisAddr:         getEnv("REDIS_ADDR", ""),
			RequestsPerMinute: getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		},
		Verification: VerificationConfig{
			FetchPages: getBoolEnv("VERIFY_FETCH_PAGES", true),
			PostingTTL: getDurationEnv("POSTING_TTL", 720*time.Hour),
		},
		Analytics: AnalyticsConfig{
			RefreshURL: getEnv("ANALYTICS_REFRESH_URL", ""),
		},
	}, nil
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Validate checks that all required configuration values are present and valid.
// It returns an error describing all validation failures, or nil if valid.
func (c *Config) Validate() error {
	var errs []error

	// Server validation
	if c.Server.Port == "" {
		errs = append(errs, errors.New("SERVER_PORT is required"))
	}
	if c.Server.Env != "development" && c.Server.Env != "production" && c.Server.Env != "test" {
		errs = append(errs, fmt.Errorf("SERVER_ENV must be 'development', 'production', or 'test', got '%s'", c.Server.Env))
	}
	if len(c.Server.AllowedOrigins) == 0 {
		errs = append(errs, errors.New("CORS_ALLOWED_ORIGINS must have at least one origin"))
	}

	// Database validation
	if c.Database.URL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}

	// Cron auth - without a secret every trigger request is rejected
	if c.IsProduction() && !c.Cron.IsConfigured() {
		errs = append(errs, errors.New("CRON_SECRET or CRON_SECRET_HASH is required in production"))
	}

	// Email validation - critical for production
	if c.IsProduction() {
		if c.Email.ResendAPIKey == "" {
			errs = append(errs, errors.New("RESEND_API_KEY is required in production"))
		}
		if len(c.Email.UnsubscribeSecret) < 32 {
			errs = append(errs, errors.New("UNSUBSCRIBE_SECRET must be at least 32 characters in production"))
		}
	}
	if c.Email.From == "" {
		errs = append(errs, errors.New("EMAIL_FROM is required"))
	}

	// Job policy validation
	if c.Jobs.MaxRetries < 0 {
		errs = append(errs, errors.New("JOB_MAX_RETRIES must be >= 0"))
	}
	if c.Jobs.RetryDelay < 0 {
		errs = append(errs, errors.New("JOB_RETRY_DELAY must be >= 0"))
	}
	if c.Jobs.Timeout <= 0 {
		errs = append(errs, errors.New("JOB_TIMEOUT must be positive"))
	}

	if c.Scheduler.Enabled && c.Scheduler.Interval <= 0 {
		errs = append(errs, errors.New("SCHEDULER_INTERVAL must be positive when SCHEDULER_ENABLED is true"))
	}
	if c.Health.MemoryFloorMB < 0 {
		errs = append(errs, errors.New("HEALTH_MEMORY_FLOOR_MB must be >= 0"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must be positive"))
	}
	if c.Verification.PostingTTL <= 0 {
		errs = append(errs, errors.New("POSTING_TTL must be positive"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// IsConfigured returns true if either form of the cron secret is set
func (c CronConfig) IsConfigured() bool {
	return c.Secret != "" || c.SecretHash != ""
}

// MemoryFloorBytes returns the memory probe floor in bytes
func (h HealthConfig) MemoryFloorBytes() uint64 {
	if h.MemoryFloorMB <= 0 {
		return 0
	}
	return uint64(h.MemoryFloorMB) << 20
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
