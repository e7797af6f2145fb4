package config

import (
	"fmt"
	"os"
	"strconv"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Upload        UploadConfig
	Observability ObservabilityConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// UploadConfig holds the batch upload processing limits.
type UploadConfig struct {
	// MaxRowsPerBatch caps how many data rows one upload may carry.
	MaxRowsPerBatch int
	// MaxFileSizeMB caps the uploaded workbook size.
	MaxFileSizeMB int
	// AllowedExtensions is a comma-separated list of accepted file
	// extensions, lower-case with the leading dot.
	AllowedExtensions string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	MetricsPort    int
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "localhost"),
			Port: getEnvAsInt("SERVER_PORT", 8080),
		},
		Database: DatabaseConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "batch-upload"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Upload: UploadConfig{
			MaxRowsPerBatch:   getEnvAsInt("UPLOAD_MAX_ROWS", 10000),
			MaxFileSizeMB:     getEnvAsInt("UPLOAD_MAX_FILE_SIZE_MB", 10),
			AllowedExtensions: getEnv("UPLOAD_ALLOWED_EXTENSIONS", ".xlsx,.xlsm"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
	}

	if cfg.Upload.MaxRowsPerBatch <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_ROWS must be positive, got %d", cfg.Upload.MaxRowsPerBatch)
	}
	if cfg.Upload.MaxFileSizeMB <= 0 {
		return nil, fmt.Errorf("UPLOAD_MAX_FILE_SIZE_MB must be positive, got %d", cfg.Upload.MaxFileSizeMB)
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
