// Package config provides configuration management for the PermitWise
// service.
//
// Everything non-secret lives in the config file or environment; provider
// API keys and HMAC secrets are environment-only and loading fails loudly
// when a config file tries to carry one.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config is the full service configuration.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Quota     QuotaConfig
	Log       LogConfig
	Providers ProvidersConfig
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host           string
	Port           int
	RequestTimeout time.Duration
}

// DatabaseConfig holds the database connection settings.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds the Redis connection for shared quota counters.
// An empty Addr selects the in-process limiter.
type RedisConfig struct {
	Addr string
}

// QuotaConfig holds per-caller limits. Enabled=false disables enforcement.
type QuotaConfig struct {
	Enabled    bool
	DailyLimit int
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string
	Format string
}

// ProvidersConfig names the default backend, its ordered fallback chain,
// and the per-backend connection settings.
type ProvidersConfig struct {
	Default  string
	Fallback []string
	Backends map[string]BackendConfig
}

// BackendConfig configures one language-model backend. Kind selects the
// wire protocol ("openai" or "anthropic"); the API key is never here.
type BackendConfig struct {
	Kind    string        `mapstructure:"kind"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// Default returns configuration with default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           8080,
			RequestTimeout: 60 * time.Second,
		},
		Database: DatabaseConfig{URL: "sqlite://permitwise.db"},
		Quota:    QuotaConfig{Enabled: true, DailyLimit: 50},
		Log:      LogConfig{Level: "info", Format: "json"},
		Providers: ProvidersConfig{
			Default:  "openai",
			Backends: map[string]BackendConfig{},
		},
	}
}

// ProviderAPIKey reads the backend's API key from the environment.
// Variable name: PW_PROVIDER_APIKEY_<NAME>, name uppercased.
func ProviderAPIKey(name string) string {
	return os.Getenv("PW_PROVIDER_APIKEY_" + strings.ToUpper(name))
}

// Validate checks structural invariants the rest of the service relies on.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", c.Server.RequestTimeout)
	}
	if c.Database.URL == "" {
		return fmt.Errorf("database url must be set")
	}
	if c.Quota.Enabled && c.Quota.DailyLimit <= 0 {
		return fmt.Errorf("quota daily_limit must be positive, got %d", c.Quota.DailyLimit)
	}

	if c.Providers.Default == "" {
		return fmt.Errorf("providers.default must be set")
	}
	if _, ok := c.Providers.Backends[c.Providers.Default]; !ok {
		return fmt.Errorf("default provider %q has no backend configuration", c.Providers.Default)
	}
	for _, name := range c.Providers.Fallback {
		if _, ok := c.Providers.Backends[name]; !ok {
			return fmt.Errorf("fallback provider %q has no backend configuration", name)
		}
	}
	for name, b := range c.Providers.Backends {
		if b.Kind != "openai" && b.Kind != "anthropic" {
			return fmt.Errorf("provider %q: unsupported kind %q (expected openai or anthropic)", name, b.Kind)
		}
		if b.Model == "" {
			return fmt.Errorf("provider %q: model must be set", name)
		}
	}
	return nil
}
