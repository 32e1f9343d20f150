package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Storage  StorageConfig
	Gemini   GeminiConfig
	Watch    WatchConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN              string
	MaxConns         int32
	MinConns         int32
	MaxConnLifetime  time.Duration
	MaxConnIdleTime  time.Duration
	DialTimeout      time.Duration
	StatementTimeout time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr            string
	ReadTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// StorageConfig holds invoice blob storage configuration
type StorageConfig struct {
	Root string
}

// WatchConfig holds hot-folder ingestion configuration. Disabled unless a
// directory is set.
type WatchConfig struct {
	Dir      string
	PlanID   string
	PayerID  string
	Debounce time.Duration
}

// GeminiConfig holds extraction service configuration
type GeminiConfig struct {
	APIKey               string
	BaseURL              string
	Model                string
	Timeout              time.Duration
	BasicsThinkingBudget int
	ItemsThinkingBudget  int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:              getEnv("DB_URL", ""),
			MaxConns:         getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:         getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime:  getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime:  getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:      getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
			StatementTimeout: getEnvAsDuration("DB_STATEMENT_TIMEOUT", 0),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getEnvAsDuration("HTTP_READ_TIMEOUT", 5*time.Minute),
			ShutdownTimeout: getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Storage: StorageConfig{
			Root: getEnv("STORAGE_ROOT", "."),
		},
		Watch: WatchConfig{
			Dir:      getEnv("WATCH_DIR", ""),
			PlanID:   getEnv("WATCH_PLAN_ID", ""),
			PayerID:  getEnv("WATCH_PAYER_ID", ""),
			Debounce: getEnvAsDuration("WATCH_DEBOUNCE", 2*time.Second),
		},
		Gemini: GeminiConfig{
			APIKey:               getEnv("GOOGLE_API_KEY", ""),
			BaseURL:              getEnv("GEMINI_BASE_URL", ""),
			Model:                getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout:              getEnvAsDuration("GEMINI_TIMEOUT", 120*time.Second),
			BasicsThinkingBudget: getEnvAsInt("GEMINI_BASICS_THINKING_BUDGET", 128),
			ItemsThinkingBudget:  getEnvAsInt("GEMINI_ITEMS_THINKING_BUDGET", 2048),
		},
	}
}

// Helper functions for environment variable parsing
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

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Gemini.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GOOGLE_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	if c.Watch.Dir != "" && c.Watch.PlanID == "" {
		return NewAppError("CONFIG_ERROR", "WATCH_PLAN_ID is required when WATCH_DIR is set", ErrInvalidInput)
	}
	return nil
}
