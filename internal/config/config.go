// Package config provides configuration loading for productflowd.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration for productflowd.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	LLM      LLMConfig      `koanf:"llm"`
	Storage  StorageConfig  `koanf:"storage"`
	NATS     NATSConfig     `koanf:"nats"`
	Sweeper  SweeperConfig  `koanf:"sweeper"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `koanf:"host"`
	Port int    `koanf:"port"`
}

// DatabaseConfig holds persistence settings.
type DatabaseConfig struct {
	// DSN is the sqlite data source name. Use "file::memory:?cache=shared"
	// for an in-memory database.
	DSN string `koanf:"dsn"`
}

// LLMConfig holds language model client settings.
type LLMConfig struct {
	// BaseURL overrides the OpenAI-compatible endpoint. Empty uses the default.
	BaseURL string `koanf:"base_url"`
	Model   string `koanf:"model"`
	APIKey  Secret `koanf:"api_key"`
	// Timeout bounds a single LLM call.
	Timeout Duration `koanf:"timeout"`
}

// StorageConfig holds blob storage settings.
type StorageConfig struct {
	// Root is the directory uploaded files are written under.
	Root string `koanf:"root"`
	// PublicBaseURL is prepended to object keys to form fetchable URLs.
	PublicBaseURL string `koanf:"public_base_url"`
}

// NATSConfig holds notification transport settings.
type NATSConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
	Subject string `koanf:"subject"`
}

// SweeperConfig holds stale-run reconciliation settings.
type SweeperConfig struct {
	Enabled  bool     `koanf:"enabled"`
	Interval Duration `koanf:"interval"`
	// GracePeriod is how long a run may stay non-terminal before it is
	// marked failed.
	GracePeriod Duration `koanf:"grace_period"`
}

// LoggingConfig holds logger settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// NewDefaultConfig returns config with production-ready defaults.
func NewDefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "localhost",
			Port: 8080,
		},
		Database: DatabaseConfig{
			DSN: "productflow.db",
		},
		LLM: LLMConfig{
			Model:   "gpt-4o-mini",
			Timeout: Duration(2 * time.Minute),
		},
		Storage: StorageConfig{
			Root:          "data/files",
			PublicBaseURL: "http://localhost:8080/files",
		},
		NATS: NATSConfig{
			Enabled: false,
			URL:     "nats://localhost:4222",
			Subject: "productflow.notifications",
		},
		Sweeper: SweeperConfig{
			Enabled:     true,
			Interval:    Duration(time.Minute),
			GracePeriod: Duration(6 * time.Minute),
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be 1-65535, got %d", c.Server.Port)
	}
	if c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.Timeout.Duration() <= 0 {
		return fmt.Errorf("llm.timeout must be positive")
	}
	if c.Storage.Root == "" {
		return fmt.Errorf("storage.root is required")
	}
	if c.Storage.PublicBaseURL == "" {
		return fmt.Errorf("storage.public_base_url is required")
	}
	if c.NATS.Enabled {
		if c.NATS.URL == "" {
			return fmt.Errorf("nats.url is required when nats is enabled")
		}
		if c.NATS.Subject == "" {
			return fmt.Errorf("nats.subject is required when nats is enabled")
		}
	}
	if c.Sweeper.Enabled {
		if c.Sweeper.Interval.Duration() <= 0 {
			return fmt.Errorf("sweeper.interval must be positive")
		}
		if c.Sweeper.GracePeriod.Duration() <= 0 {
			return fmt.Errorf("sweeper.grace_period must be positive")
		}
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	return nil
}
