// Package config provides application configuration loading from environment variables and .env files.
// It uses viper for flexible configuration management with sensible defaults.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all application configuration loaded from environment variables or .env file.
// Configuration priority: environment variables > .env file > defaults.
type Config struct {
	AppEnv         string // Application environment (dev, staging, prod)
	HTTPAddr       string // HTTP server bind address (e.g., ":8080")
	MetricsAddr    string // Metrics server bind address
	AdminAPIKey    string // Admin API key for event ingestion and reset
	EdgeConfigID   string // Network destination; empty means updates and tracking are dropped
	DatasetID      string // Optional dataset override sent with network requests
	LogLevel       string // trace, debug, info, warn, error
	LogFormat      string // text or json
	QueueSize      int    // Extension worker queue size
	OutboxBuffer   int    // Per-subscriber buffer of the event stream
	RateLimitPerIP int    // Requests per minute per client IP
}

const defaultAdminAPIKey = "admin-123"

// Load reads configuration from environment variables and .env file (if present).
// Environment variables take precedence over .env file values.
//
// Load does not validate the result; call Validate at startup.
func Load() (*Config, error) {
	viperInstance := viper.New()
	viperInstance.SetConfigFile(".env") // Optional; silently ignored if file doesn't exist
	_ = viperInstance.ReadInConfig()    // Ignore error - .env is optional
	viperInstance.AutomaticEnv()        // Read from environment variables

	setConfigDefaults(viperInstance)

	return &Config{
		AppEnv:         viperInstance.GetString("APP_ENV"),
		HTTPAddr:       viperInstance.GetString("APP_HTTP_ADDR"),
		MetricsAddr:    viperInstance.GetString("METRICS_ADDR"),
		AdminAPIKey:    viperInstance.GetString("ADMIN_API_KEY"),
		EdgeConfigID:   viperInstance.GetString("EDGE_CONFIG_ID"),
		DatasetID:      viperInstance.GetString("OPTIMIZE_DATASET_ID"),
		LogLevel:       viperInstance.GetString("LOG_LEVEL"),
		LogFormat:      viperInstance.GetString("LOG_FORMAT"),
		QueueSize:      viperInstance.GetInt("QUEUE_SIZE"),
		OutboxBuffer:   viperInstance.GetInt("OUTBOX_BUFFER"),
		RateLimitPerIP: viperInstance.GetInt("RATE_LIMIT_PER_IP"),
	}, nil
}

// setConfigDefaults sets default values for all configuration options.
// These defaults are suitable for local development but should be overridden in production.
func setConfigDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "dev")
	v.SetDefault("APP_HTTP_ADDR", ":8080")
	v.SetDefault("METRICS_ADDR", ":9090")
	v.SetDefault("ADMIN_API_KEY", defaultAdminAPIKey) // Change in production!
	v.SetDefault("EDGE_CONFIG_ID", "")
	v.SetDefault("OPTIMIZE_DATASET_ID", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("QUEUE_SIZE", 1000)
	v.SetDefault("OUTBOX_BUFFER", 64)
	v.SetDefault("RATE_LIMIT_PER_IP", 100)
}

// ExtensionConfiguration returns the shared configuration read by the extension.
// It is empty when no edge configuration id is set.
func (c *Config) ExtensionConfiguration() map[string]any {
	if c.EdgeConfigID == "" {
		return map[string]any{}
	}
	cfg := map[string]any{"edge.configId": c.EdgeConfigID}
	if c.DatasetID != "" {
		cfg["optimize.datasetId"] = c.DatasetID
	}
	return cfg
}

// ValidationError represents a configuration validation error with details about what failed.
type ValidationError struct {
	Field   string // Name of the configuration field
	Message string // Human-readable error message
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	return fmt.Sprintf("config validation failed [%s]: %s", e.Field, e.Message)
}

// Validate checks that the configuration is usable and, in production, safe.
// It returns the first ValidationError found.
//
// In production (APP_ENV prod or production) the default admin key is rejected.
// A missing EDGE_CONFIG_ID is not an error: the service runs and answers get
// requests from its cache, but drops update and track requests.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return ValidationError{
			Field:   "APP_HTTP_ADDR",
			Message: "HTTP server address cannot be empty",
		}
	}

	if c.MetricsAddr == "" {
		return ValidationError{
			Field:   "METRICS_ADDR",
			Message: "metrics server address cannot be empty",
		}
	}

	switch strings.ToLower(c.LogLevel) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return ValidationError{
			Field:   "LOG_LEVEL",
			Message: fmt.Sprintf("must be one of trace, debug, info, warn, error, got '%s'", c.LogLevel),
		}
	}

	if f := strings.ToLower(c.LogFormat); f != "text" && f != "json" {
		return ValidationError{
			Field:   "LOG_FORMAT",
			Message: fmt.Sprintf("must be 'text' or 'json', got '%s'", c.LogFormat),
		}
	}

	if c.QueueSize <= 0 {
		return ValidationError{
			Field:   "QUEUE_SIZE",
			Message: fmt.Sprintf("must be positive, got %d", c.QueueSize),
		}
	}

	if c.OutboxBuffer <= 0 {
		return ValidationError{
			Field:   "OUTBOX_BUFFER",
			Message: fmt.Sprintf("must be positive, got %d", c.OutboxBuffer),
		}
	}

	if c.RateLimitPerIP <= 0 {
		return ValidationError{
			Field:   "RATE_LIMIT_PER_IP",
			Message: fmt.Sprintf("must be positive, got %d", c.RateLimitPerIP),
		}
	}

	if c.AppEnv == "prod" || c.AppEnv == "production" {
		if c.AdminAPIKey == defaultAdminAPIKey {
			return ValidationError{
				Field:   "ADMIN_API_KEY",
				Message: "default admin API key 'admin-123' is not allowed in production",
			}
		}
	}

	return nil
}
