package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("server.host", defaults.Server.Host)
	v.SetDefault("server.port", defaults.Server.Port)
	v.SetDefault("server.request_timeout", defaults.Server.RequestTimeout.String())
	v.SetDefault("database.url", defaults.Database.URL)
	v.SetDefault("redis.addr", "")
	v.SetDefault("quota.enabled", defaults.Quota.Enabled)
	v.SetDefault("quota.daily_limit", defaults.Quota.DailyLimit)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("providers.default", defaults.Providers.Default)

	// Bind environment variables with PW_ prefix
	v.SetEnvPrefix("PW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: secrets are environment-only, never in config files
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
		},
		Database: DatabaseConfig{URL: v.GetString("database.url")},
		Redis:    RedisConfig{Addr: v.GetString("redis.addr")},
		Quota: QuotaConfig{
			Enabled:    v.GetBool("quota.enabled"),
			DailyLimit: v.GetInt("quota.daily_limit"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
		},
		Providers: ProvidersConfig{
			Default:  v.GetString("providers.default"),
			Fallback: v.GetStringSlice("providers.fallback"),
			Backends: map[string]BackendConfig{},
		},
	}

	if err := v.UnmarshalKey("providers.backends", &cfg.Providers.Backends); err != nil {
		return nil, fmt.Errorf("failed to parse provider backends: %w", err)
	}
	for name, b := range cfg.Providers.Backends {
		if b.Timeout <= 0 {
			b.Timeout = 30 * time.Second
			cfg.Providers.Backends[name] = b
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor
// principle). Provider API keys belong in PW_PROVIDER_APIKEY_<NAME>, HMAC
// secrets in PW_HMAC_SECRET.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.IsSet("hmac_secret") || v.IsSet("auth.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use PW_HMAC_SECRET environment variable)")
	}
	for _, key := range v.AllKeys() {
		last := key
		if i := strings.LastIndex(key, "."); i >= 0 {
			last = key[i+1:]
		}
		switch strings.ReplaceAll(last, "-", "_") {
		case "api_key", "apikey":
			return fmt.Errorf("API keys not allowed in config files (use PW_PROVIDER_APIKEY_<NAME> environment variable, found %q)", key)
		}
	}
	return nil
}
