package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all storefront client configuration.
type Config struct {
	// Core settings
	Name string `yaml:"name"`

	// Remote storefront API
	API APIConfig `yaml:"api"`

	// Persisted session slot
	Session SessionConfig `yaml:"session"`

	// Fetch cache
	Query QueryConfig `yaml:"query"`

	// Terminal UI
	UI UIConfig `yaml:"ui"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`
}

// APIConfig configures the HTTP client.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Trace   bool          `yaml:"trace"` // wrap the transport with OpenTelemetry
	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the optional circuit breaker in front of the API.
// It never retries; an open breaker fails calls without sending them.
type BreakerConfig struct {
	Enabled     bool   `yaml:"enabled"`
	MaxFailures int    `yaml:"max_failures"`
	OpenTimeout string `yaml:"open_timeout"`
}

// SessionConfig selects where the bearer token is persisted.
type SessionConfig struct {
	Backend  string `yaml:"backend"` // sqlite, file, redis
	Path     string `yaml:"path"`
	Key      string `yaml:"key"`
	RedisURL string `yaml:"redis_url"`
	Watch    bool   `yaml:"watch"`
}

// QueryConfig configures the fetch cache.
type QueryConfig struct {
	StaleTime string `yaml:"stale_time"`
}

// UIConfig configures the terminal UI.
type UIConfig struct {
	Theme          string `yaml:"theme"` // light, dark, auto
	SearchDebounce string `yaml:"search_debounce"`
	ToastDuration  string `yaml:"toast_duration"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`  // debug, info, warn, error
	Format     string          `yaml:"format"` // json, console
	File       string          `yaml:"file"`
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendFile   = "file"
	BackendRedis  = "redis"
)

// ValidBackends lists all supported session backends.
var ValidBackends = []string{BackendSQLite, BackendFile, BackendRedis}

// DefaultDir returns ~/.storefront, or .storefront when the home directory is unknown.
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".storefront"
	}
	return filepath.Join(home, ".storefront")
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	dir := DefaultDir()
	return &Config{
		Name: "E-Shop",

		API: APIConfig{
			BaseURL: "http://localhost:3000/api",
			Breaker: BreakerConfig{
				Enabled:     false,
				MaxFailures: 5,
				OpenTimeout: "30s",
			},
		},

		Session: SessionConfig{
			Backend:  BackendSQLite,
			Path:     filepath.Join(dir, "session.db"),
			Key:      "token",
			RedisURL: "redis://localhost:6379/0",
			Watch:    true,
		},

		Query: QueryConfig{
			StaleTime: "0s",
		},

		UI: UIConfig{
			Theme:          "auto",
			SearchDebounce: "300ms",
			ToastDuration:  "3s",
		},

		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File:   filepath.Join(dir, "logs", "shop.log"),
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Return defaults if config file doesn't exist
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if url := os.Getenv("STOREFRONT_API_URL"); url != "" {
		c.API.BaseURL = url
	}
	if backend := os.Getenv("STOREFRONT_SESSION_BACKEND"); backend != "" {
		c.Session.Backend = strings.ToLower(backend)
	}
	if path := os.Getenv("STOREFRONT_SESSION_PATH"); path != "" {
		c.Session.Path = path
	}
	if url := os.Getenv("STOREFRONT_REDIS_URL"); url != "" {
		c.Session.RedisURL = url
	}
	if os.Getenv("STOREFRONT_DARK_MODE") == "1" {
		c.UI.Theme = "dark"
	}
	if level := os.Getenv("STOREFRONT_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.API.BaseURL == "" {
		return fmt.Errorf("api.base_url not configured (set STOREFRONT_API_URL)")
	}
	if !strings.HasPrefix(c.API.BaseURL, "http://") && !strings.HasPrefix(c.API.BaseURL, "https://") {
		return fmt.Errorf("api.base_url must be an http(s) URL: %s", c.API.BaseURL)
	}

	validBackend := false
	for _, b := range ValidBackends {
		if c.Session.Backend == b {
			validBackend = true
			break
		}
	}
	if !validBackend {
		return fmt.Errorf("invalid session backend: %s (valid: %v)", c.Session.Backend, ValidBackends)
	}
	if c.Session.Backend != BackendRedis && c.Session.Path == "" {
		return fmt.Errorf("session.path required for %s backend", c.Session.Backend)
	}
	if c.Session.Key == "" {
		return fmt.Errorf("session.key must not be empty")
	}

	return nil
}

// GetBreakerTimeout returns how long an open breaker rejects calls.
func (c *Config) GetBreakerTimeout() time.Duration {
	return parseDuration(c.API.Breaker.OpenTimeout, 30*time.Second)
}

// GetStaleTime returns how long a cached fetch counts as fresh.
func (c *Config) GetStaleTime() time.Duration {
	return parseDuration(c.Query.StaleTime, 0)
}

// GetSearchDebounce returns the delay between the last keystroke and a search refetch.
func (c *Config) GetSearchDebounce() time.Duration {
	return parseDuration(c.UI.SearchDebounce, 300*time.Millisecond)
}

// GetToastDuration returns how long notifications stay visible.
func (c *Config) GetToastDuration() time.Duration {
	return parseDuration(c.UI.ToastDuration, 3*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d < 0 {
		return fallback
	}
	return d
}
