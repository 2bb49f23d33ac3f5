// Package config provides centralized configuration management for the application.
// It loads configuration from environment variables with sensible defaults and
// validates all settings on startup to fail fast on misconfiguration.
package config

import (
	"strconv"
	"time"
)

// Config holds all application configuration.
// All settings can be configured via environment variables.
type Config struct {
	Server   ServerConfig
	Dataset  DatasetConfig
	Rate     RateLimitConfig
	Security SecurityConfig
	Logging  LoggingConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Host is the interface to bind to (default: 0.0.0.0)
	Host string `env:"SERVER_HOST" default:"0.0.0.0"`

	// Port is the port to listen on (default: 8080)
	Port int `env:"SERVER_PORT" default:"8080"`

	// ReadTimeout is the maximum duration for reading request body (default: 15s)
	ReadTimeout time.Duration `env:"SERVER_READ_TIMEOUT" default:"15s"`

	// WriteTimeout is the maximum duration for writing response (default: 30s)
	WriteTimeout time.Duration `env:"SERVER_WRITE_TIMEOUT" default:"30s"`

	// IdleTimeout is the keep-alive timeout (default: 60s)
	IdleTimeout time.Duration `env:"SERVER_IDLE_TIMEOUT" default:"60s"`

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown (default: 10s)
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" default:"10s"`

	// RequestTimeout is the middleware timeout for requests (default: 30s)
	RequestTimeout time.Duration `env:"SERVER_REQUEST_TIMEOUT" default:"30s"`
}

// DatasetConfig holds settings for the CSV table engine.
type DatasetConfig struct {
	// DataDir is the directory CSV files are picked from and saved to (required).
	// Supports both DATA_DIR and SUPPLIERS_DATA_DIR.
	DataDir string `env:"DATA_DIR" envAlt:"SUPPLIERS_DATA_DIR" required:"true"`

	// MaxFileSize is the largest CSV file that may be loaded, in bytes (default: 100MB)
	MaxFileSize int64 `env:"DATASET_MAX_FILE_SIZE" default:"104857600"`

	// InitialFile is a file name inside DataDir to load at startup (optional)
	InitialFile string `env:"DATASET_INITIAL_FILE"`

	// Watch reports files changed on disk by other programs (default: true)
	Watch bool `env:"DATASET_WATCH" default:"true"`

	// DisplayColumns orders the columns shown first in listings (optional)
	DisplayColumns []string `env:"DISPLAY_COLUMNS" default:"Material,Soma de Saldo,Último UM pedido,Data de remessa mais recente,Primeiro Fornecedor"`
}

// RateLimitConfig holds rate limiting settings per time window.
type RateLimitConfig struct {
	// Enabled controls whether rate limiting is active (default: true)
	Enabled bool `env:"RATE_LIMIT_ENABLED" default:"true"`

	// RequestsPerMinute is the rate limit per IP (default: 120)
	RequestsPerMinute int `env:"RATE_LIMIT_REQUESTS_PER_MINUTE" default:"120"`
}

// SecurityConfig holds security-related settings.
type SecurityConfig struct {
	// TrustedProxies is a comma-separated list of trusted proxy CIDRs
	TrustedProxies []string `env:"TRUSTED_PROXIES"`

	// EnableCSP enables Content-Security-Policy headers (default: true)
	EnableCSP bool `env:"SECURITY_ENABLE_CSP" default:"true"`

	// RequireAPIKey enables X-API-Key authentication on /api routes (default: false)
	RequireAPIKey bool `env:"REQUIRE_API_KEY" default:"false"`

	// APIKeys is a comma-separated list of accepted API keys
	APIKeys []string `env:"API_KEYS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: debug, info, warn, error (default: info)
	Level string `env:"LOG_LEVEL" default:"info"`

	// Format is the log format: text or json (default: text)
	Format string `env:"LOG_FORMAT" default:"text"`

	// File, when set, receives a copy of the log output and is rotated by size
	File string `env:"LOG_FILE"`

	// FileMaxSizeMB is the size a log file reaches before rotation (default: 10)
	FileMaxSizeMB int `env:"LOG_FILE_MAX_SIZE_MB" default:"10"`

	// FileMaxBackups is how many rotated files are kept (default: 3)
	FileMaxBackups int `env:"LOG_FILE_MAX_BACKUPS" default:"3"`

	// FileMaxAgeDays removes rotated files older than this (default: 28)
	FileMaxAgeDays int `env:"LOG_FILE_MAX_AGE_DAYS" default:"28"`

	// FileCompress gzips rotated files (default: false)
	FileCompress bool `env:"LOG_FILE_COMPRESS" default:"false"`
}

// Addr returns the server listen address in host:port format.
func (c *ServerConfig) Addr() string {
	return c.Host + ":" + strconv.Itoa(c.Port)
}
