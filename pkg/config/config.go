// Package config loads importer settings from the environment and optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Import        ImportConfig
	Database      DatabaseConfig
	Inbox         InboxConfig
	Observability ObservabilityConfig
	Log           LogConfig
}

type ImportConfig struct {
	DefaultCurrency string
	DefaultCard     string
	DefaultCategory string
	HeaderScanRows  int
	DatePastYears   int
	DateFutureYears int
	CategoryRules   string // optional YAML file with extra category rules
	PreviewRows     int
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type InboxConfig struct {
	Dir        string
	ArchiveDir string
	Schedule   string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads .env files when present, then configuration from environment variables
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", f, err)
		}
	}

	cfg := &Config{
		Import: ImportConfig{
			DefaultCurrency: strings.ToUpper(getEnv("IMPORT_DEFAULT_CURRENCY", "USD")),
			DefaultCard:     getEnv("IMPORT_DEFAULT_CARD", "Main card"),
			DefaultCategory: getEnv("IMPORT_DEFAULT_CATEGORY", "Other"),
			HeaderScanRows:  getEnvAsInt("IMPORT_HEADER_SCAN_ROWS", 20),
			DatePastYears:   getEnvAsInt("IMPORT_DATE_PAST_YEARS", 10),
			DateFutureYears: getEnvAsInt("IMPORT_DATE_FUTURE_YEARS", 1),
			CategoryRules:   getEnv("IMPORT_CATEGORY_RULES", ""),
			PreviewRows:     getEnvAsInt("IMPORT_PREVIEW_ROWS", 5),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("POSTGRES_ENABLED", false),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "statements"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Inbox: InboxConfig{
			Dir:        getEnv("INBOX_DIR", "./inbox"),
			ArchiveDir: getEnv("INBOX_ARCHIVE_DIR", "./archive"),
			Schedule:   getEnv("INBOX_SCHEDULE", "*/5 * * * *"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}

	if len(cfg.Import.DefaultCurrency) != 3 {
		return nil, fmt.Errorf("IMPORT_DEFAULT_CURRENCY must be a 3-letter code, got %q", cfg.Import.DefaultCurrency)
	}
	if cfg.Import.HeaderScanRows <= 0 {
		return nil, errors.New("IMPORT_HEADER_SCAN_ROWS must be positive")
	}

	return cfg, nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}
