package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Loader resolves the final configuration from file, .env, and process
// environment. Secrets only ever come from the environment.
type Loader struct {
	logger *slog.Logger
}

// NewLoader creates a configuration loader.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{logger: logger}
}

// Load resolves configuration with layered precedence:
//  1. defaults
//  2. YAML config file (when path is non-empty)
//  3. environment variables (.env file, then process env) for secrets
//     and connection URLs
func (l *Loader) Load(path string) (*Config, error) {
	var config *Config
	var err error

	if path != "" {
		config, err = LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", "path", path)
	} else {
		config = DefaultConfig()
	}

	// .env is a development convenience; absence is not an error.
	if err := godotenv.Load(); err == nil {
		l.logger.Debug("Loaded .env file")
	}

	config.Provider.APIKey = os.Getenv(config.apiKeyEnv())

	if config.Database.URL == "" {
		config.Database.URL = os.Getenv("DATABASE_URL")
	}
	if config.NATS.URL == "" {
		config.NATS.URL = os.Getenv("NATS_URL")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}
