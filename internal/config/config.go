package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"assetdesk/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Admin    AdminConfig
	Import   ImportConfig
	Log      LogConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Driver          string
	URL             string
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port            string
	GinMode         string
	ShutdownTimeout time.Duration
}

// AdminConfig holds the health and profiling listener settings
type AdminConfig struct {
	Port    string
	Enabled bool
}

// ImportConfig holds spreadsheet import settings
type ImportConfig struct {
	// Profile selects a built-in schema; ignored when SchemaFile is set
	Profile         string
	SchemaFile      string
	AcceptThreshold float64 // 0 keeps the schema's own threshold
	Workers         int
	MaxUploadMB     int64
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string
	Format string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
		Admin:    *loadAdminConfig(),
		Import:   *loadImportConfig(),
		Log:      *loadLogConfig(),
	}

	// Validate required fields
	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}

	return config, nil
}

// LoadOffline reads configuration for commands that never open the
// database; database settings are loaded but not validated
func LoadOffline() (*Config, error) {
	config := &Config{
		Database: *loadDatabaseConfig(),
		Server:   *loadServerConfig(),
		Admin:    *loadAdminConfig(),
		Import:   *loadImportConfig(),
		Log:      *loadLogConfig(),
	}
	if err := validateImportConfig(config.Import); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadDatabaseConfig() *DatabaseConfig {
	driver := getEnvOrDefault("DB_DRIVER", "postgres")
	defaultURL := ""
	if driver == "sqlite3" {
		defaultURL = "file:assetdesk.db?_foreign_keys=on"
	}

	return &DatabaseConfig{
		Driver:          driver,
		URL:             getEnvOrDefault("DATABASE_URL", defaultURL),
		MaxOpenConns:    getEnvIntOrDefault("DB_MAX_OPEN_CONNS", 10),
		ConnMaxLifetime: getEnvDurationOrDefault("DB_CONN_MAX_LIFETIME", 30*time.Minute),
	}
}

func loadServerConfig() *ServerConfig {
	return &ServerConfig{
		Port:            getEnvOrDefault("PORT", "8080"),
		GinMode:         getEnvOrDefault("GIN_MODE", "release"),
		ShutdownTimeout: getEnvDurationOrDefault("SHUTDOWN_TIMEOUT", 10*time.Second),
	}
}

func loadAdminConfig() *AdminConfig {
	return &AdminConfig{
		Port:    getEnvOrDefault("ADMIN_PORT", "6060"),
		Enabled: getEnvBoolOrDefault("ADMIN_ENABLED", true),
	}
}

func loadImportConfig() *ImportConfig {
	return &ImportConfig{
		Profile:         getEnvOrDefault("SCHEMA_PROFILE", "it"),
		SchemaFile:      getEnvOrDefault("SCHEMA_FILE", ""),
		AcceptThreshold: getEnvFloatOrDefault("ACCEPT_THRESHOLD", 0),
		Workers:         getEnvIntOrDefault("IMPORT_WORKERS", 4),
		MaxUploadMB:     int64(getEnvIntOrDefault("MAX_UPLOAD_MB", 20)),
	}
}

func loadLogConfig() *LogConfig {
	return &LogConfig{
		Level:  getEnvOrDefault("LOG_LEVEL", "info"),
		Format: getEnvOrDefault("LOG_FORMAT", "json"),
	}
}

func validateConfig(config *Config) error {
	switch config.Database.Driver {
	case "postgres", "sqlite3":
	default:
		return errors.ConfigInvalid(fmt.Sprintf("DB_DRIVER must be postgres or sqlite3, got %q", config.Database.Driver))
	}
	if config.Database.URL == "" {
		return errors.ConfigInvalid("DATABASE_URL is required")
	}
	return validateImportConfig(config.Import)
}

func validateImportConfig(cfg ImportConfig) error {
	if t := cfg.AcceptThreshold; t < 0 || t >= 1 {
		return errors.ConfigInvalid(fmt.Sprintf("ACCEPT_THRESHOLD must be in [0,1), got %g", t))
	}
	if cfg.Workers < 1 {
		return errors.ConfigInvalid("IMPORT_WORKERS must be at least 1")
	}
	if cfg.MaxUploadMB < 1 {
		return errors.ConfigInvalid("MAX_UPLOAD_MB must be at least 1")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
