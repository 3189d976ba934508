// cmd/permitwise/cmd/setup.go
package cmd

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/permitwise/permitwise/internal/core/config"
	"github.com/permitwise/permitwise/internal/core/db"
	"github.com/permitwise/permitwise/internal/logging"
	"github.com/permitwise/permitwise/internal/provider"
)

// loadConfig loads configuration and applies persistent flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	if logFormat != "" {
		cfg.Log.Format = logFormat
	}
	return cfg, nil
}

// buildLogger constructs the process logger from config.
func buildLogger(cfg *config.Config) (*zap.Logger, error) {
	return logging.New(cfg.Log.Level, cfg.Log.Format)
}

// openDatabase opens the configured database and loads named queries.
func openDatabase(cfg *config.Config) (*sqlx.DB, *db.Queries, error) {
	database, err := db.Open(cfg.Database.URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	queries, err := db.LoadQueries(database)
	if err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to load queries: %w", err)
	}
	return database, queries, nil
}

// buildGateway constructs provider backends from config. Backends without
// an API key in the environment are skipped; the chain tolerates absent
// members but the default backend must come up.
func buildGateway(cfg *config.Config, log *zap.Logger) (*provider.Gateway, error) {
	var backends []provider.Backend
	for name, b := range cfg.Providers.Backends {
		apiKey := config.ProviderAPIKey(name)
		if apiKey == "" {
			log.Warn("provider has no API key in environment, skipping",
				zap.String("provider", name))
			continue
		}
		switch b.Kind {
		case "openai":
			backends = append(backends, provider.NewOpenAI(name, b.BaseURL, apiKey, b.Model, b.Timeout))
		case "anthropic":
			backends = append(backends, provider.NewAnthropic(name, b.BaseURL, apiKey, b.Model, b.Timeout))
		}
	}

	gateway, err := provider.NewGateway(provider.ChainConfig{
		Default:  cfg.Providers.Default,
		Fallback: cfg.Providers.Fallback,
	}, backends, log)
	if err != nil {
		return nil, fmt.Errorf("failed to build provider gateway: %w", err)
	}
	return gateway, nil
}
