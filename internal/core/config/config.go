// Package config provides configuration management for the FilterGate service.
package config

import (
	"fmt"
	"os"
	"time"
)

// SMTPConfig holds optional SMTP delivery settings for notification actions.
// An empty Host disables SMTP; notifications are then logged instead of sent.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	From     string
}

// Config holds configuration for the FilterGate admin/evaluation service.
type Config struct {
	Host           string
	Port           int
	DatabaseURL    string
	RequestTimeout time.Duration
	LogLevel       string
	LogFormat      string
	SMTP           SMTPConfig
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Host:           "0.0.0.0",
		Port:           8420,
		RequestTimeout: 30 * time.Second,
		LogLevel:       "info",
		LogFormat:      "json",
		SMTP:           SMTPConfig{Port: 587},
	}
}

// SMTPPassword reads the SMTP password from the environment. Secrets are
// environment-only; config files carrying one are rejected at load time.
func SMTPPassword() string {
	return os.Getenv("FG_SMTP_PASSWORD")
}

// Validate checks port ranges and required fields.
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.RequestTimeout)
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("log_format must be json or console, got %q", c.LogFormat)
	}
	if c.SMTP.Host != "" && (c.SMTP.Port <= 0 || c.SMTP.Port > 65535) {
		return fmt.Errorf("smtp.port must be between 1 and 65535, got %d", c.SMTP.Port)
	}
	if c.SMTP.Host != "" && c.SMTP.From == "" {
		return fmt.Errorf("smtp.from is required when smtp.host is set")
	}
	return nil
}
