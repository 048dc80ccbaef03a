// Package config handles application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are fixed for the lifetime of the process.
type Config struct {
	// Server settings
	Port    int
	BaseURL string

	// Database
	DatabaseURL string

	// Analysis pipeline
	DailyAnalysisLimit int           // Daily ceiling on started analyses
	CollectorTimeout   time.Duration // Per-collector fetch budget
	AnalysisTimeout    time.Duration // Overall wall-clock ceiling for one analysis
	SupportedLocales   []string      // First entry is the fallback locale
	UserAgent          string        // User-Agent for all outbound fetches

	// Discovery crawler
	DiscoveryMaxSites int // Max new sites one find-websites call may queue
	DiscoveryMaxDepth int

	// CORS
	CORSOrigins []string

	// Worker
	WorkerPollInterval time.Duration // How often to poll for pending analyses
	WorkerConcurrency  int           // Number of concurrent analysis runners

	// Outbound email (report delivery)
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SMTPFrom     string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:        getEnvInt("PORT", 8080),
		BaseURL:     getEnv("BASE_URL", "http://localhost:8080"),
		DatabaseURL: getEnv("DATABASE_URL", "file:siteaudit.db?_journal=WAL&_timeout=5000"),

		DailyAnalysisLimit: getEnvInt("ANALYSIS_DAILY_LIMIT", 20),
		CollectorTimeout:   getEnvDuration("COLLECTOR_TIMEOUT", 10*time.Second),
		AnalysisTimeout:    getEnvDuration("ANALYSIS_TIMEOUT", 60*time.Second),
		SupportedLocales:   getEnvSlice("SUPPORTED_LOCALES", []string{"en", "de"}),
		UserAgent:          getEnv("USER_AGENT", "siteaudit-bot/1.0"),

		DiscoveryMaxSites: getEnvInt("DISCOVERY_MAX_SITES", 10),
		DiscoveryMaxDepth: getEnvInt("DISCOVERY_MAX_DEPTH", 2),

		CORSOrigins: getEnvSlice("CORS_ORIGINS", []string{"http://localhost:3000"}),

		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 2*time.Second),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 4),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnvInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
	}

	if cfg.DailyAnalysisLimit < 1 {
		return nil, fmt.Errorf("ANALYSIS_DAILY_LIMIT must be at least 1")
	}
	if len(cfg.SupportedLocales) == 0 {
		return nil, fmt.Errorf("SUPPORTED_LOCALES must not be empty")
	}
	for i, l := range cfg.SupportedLocales {
		cfg.SupportedLocales[i] = strings.ToLower(strings.TrimSpace(l))
	}
	if cfg.CollectorTimeout > cfg.AnalysisTimeout {
		return nil, fmt.Errorf("COLLECTOR_TIMEOUT (%s) must not exceed ANALYSIS_TIMEOUT (%s)",
			cfg.CollectorTimeout, cfg.AnalysisTimeout)
	}

	return cfg, nil
}

// DefaultLocale returns the fallback locale for unknown requests.
func (c *Config) DefaultLocale() string {
	return c.SupportedLocales[0]
}

// SupportsLocale reports whether locale is configured.
func (c *Config) SupportsLocale(locale string) bool {
	for _, l := range c.SupportedLocales {
		if l == locale {
			return true
		}
	}
	return false
}

// EmailEnabled returns true when outbound report email is configured.
func (c *Config) EmailEnabled() bool {
	return c.SMTPHost != "" && c.SMTPFrom != ""
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}
