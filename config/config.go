// Package config provides configuration loading and management for the
// geowatch ingestion service.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Dispatch strategies for region fetches. Sequential spaces batches out
// to respect a shared per-key rate limit; parallel fans out one goroutine
// per region and relies solely on the per-request 429 backoff.
const (
	DispatchSequential = "sequential"
	DispatchParallel   = "parallel"
)

// Config represents the complete geowatch configuration.
type Config struct {
	Provider  ProviderConfig  `yaml:"provider"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Database  DatabaseConfig  `yaml:"database"`
	Server    ServerConfig    `yaml:"server"`
	NATS      NATSConfig      `yaml:"nats"`
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// RegionsFile optionally points at a YAML file overriding the
	// built-in world partition; it is hot-reloaded in serve mode.
	RegionsFile string `yaml:"regions_file"`
}

// ProviderConfig selects and configures the AI search backend.
type ProviderConfig struct {
	// Name is the backend to use: "gemini" or "perplexity".
	Name string `yaml:"name"`
	// Model is the provider-specific model identifier.
	Model string `yaml:"model"`
	// Endpoint overrides the provider's default API host.
	Endpoint string `yaml:"endpoint"`

	// APIKey is resolved from the environment (GEMINI_API_KEY or
	// PERPLEXITY_API_KEY), never from the config file.
	APIKey string `yaml:"-"`
}

// FetchConfig tunes the per-region fetch behaviour.
type FetchConfig struct {
	// TargetCount is the number of events requested per region.
	TargetCount int `yaml:"target_count"`
	// Dispatch is "sequential" or "parallel".
	Dispatch string `yaml:"dispatch"`
	// BatchDelay spaces sequential region fetches.
	BatchDelay time.Duration `yaml:"batch_delay"`
	// MaxRetries bounds extra attempts after a 429.
	MaxRetries int `yaml:"max_retries"`
	// RateLimitWait is the fallback wait when a 429 body has no hint.
	RateLimitWait time.Duration `yaml:"rate_limit_wait"`
	// Timeout is the per-request transport timeout.
	Timeout time.Duration `yaml:"timeout"`
	// Temperature passed to the backend. Low by default: this is
	// aggregation, not creative writing.
	Temperature float64 `yaml:"temperature"`
}

// DatabaseConfig configures the Postgres event store.
type DatabaseConfig struct {
	// URL is resolved from DATABASE_URL when empty.
	URL string `yaml:"url"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// EventsLimit is the default read-API page size.
	EventsLimit int `yaml:"events_limit"`
}

// NATSConfig configures optional cycle announcements. Disabled when URL
// is empty.
type NATSConfig struct {
	URL     string `yaml:"url"`
	Subject string `yaml:"subject"`
}

// SchedulerConfig configures the built-in periodic trigger. Zero
// interval disables it; an external cron hitting the HTTP trigger or
// running `geowatch fetch` works just as well.
type SchedulerConfig struct {
	Interval time.Duration `yaml:"interval"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Provider: ProviderConfig{
			Name:  "gemini",
			Model: "gemini-2.5-flash-lite",
		},
		Fetch: FetchConfig{
			TargetCount:   25,
			Dispatch:      DispatchSequential,
			BatchDelay:    5 * time.Second,
			MaxRetries:    3,
			RateLimitWait: 20 * time.Second,
			Timeout:       120 * time.Second,
			Temperature:   0.1,
		},
		Server: ServerConfig{
			Addr:        ":8080",
			EventsLimit: 100,
		},
		NATS: NATSConfig{
			Subject: "geowatch.ingest.cycle",
		},
	}
}

// Validate checks that the configuration is usable. Missing credentials
// for the selected provider or the store are configuration errors: fatal
// for the cycle, surfaced immediately, never retried.
func (c *Config) Validate() error {
	switch c.Provider.Name {
	case "gemini", "perplexity":
	case "":
		return fmt.Errorf("provider.name is required")
	default:
		return fmt.Errorf("unknown provider %q (want gemini or perplexity)", c.Provider.Name)
	}
	if c.Provider.Model == "" {
		return fmt.Errorf("provider.model is required")
	}
	if c.Provider.APIKey == "" {
		return fmt.Errorf("missing API key: set %s", c.apiKeyEnv())
	}
	if c.Database.URL == "" {
		return fmt.Errorf("missing database URL: set database.url or DATABASE_URL")
	}
	if c.Fetch.TargetCount <= 0 {
		return fmt.Errorf("fetch.target_count must be positive")
	}
	if c.Fetch.Dispatch != DispatchSequential && c.Fetch.Dispatch != DispatchParallel {
		return fmt.Errorf("fetch.dispatch must be %q or %q", DispatchSequential, DispatchParallel)
	}
	if c.Fetch.MaxRetries < 0 {
		return fmt.Errorf("fetch.max_retries must not be negative")
	}
	return nil
}

// apiKeyEnv names the environment variable holding the selected
// provider's credential.
func (c *Config) apiKeyEnv() string {
	switch c.Provider.Name {
	case "perplexity":
		return "PERPLEXITY_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

// LoadFromFile loads configuration from a YAML file on top of defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	return config, nil
}
