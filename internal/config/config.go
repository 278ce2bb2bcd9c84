// Package config loads the service configuration from YAML over baked-in
// defaults. Secrets never live in the file: the YAML names the environment
// variables that hold them.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"foreman/internal/agents"
)

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Port            int    `yaml:"port"`
	MetricsPort     int    `yaml:"metrics_port"`
	JWTSecretEnv    string `yaml:"jwt_secret_env"`
	ShutdownSeconds int    `yaml:"shutdown_seconds"`
}

// JWTSecret resolves the signing secret. Empty means auth is disabled.
func (s ServerConfig) JWTSecret() string {
	if s.JWTSecretEnv == "" {
		return ""
	}
	return os.Getenv(s.JWTSecretEnv)
}

// ShutdownTimeout is how long in-flight requests get on shutdown.
func (s ServerConfig) ShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownSeconds) * time.Second
}

// ProviderConfig selects the completion backend.
type ProviderConfig struct {
	Backend   string `yaml:"backend"`
	BaseURL   string `yaml:"base_url"`
	Endpoint  string `yaml:"endpoint"`
	APIKeyEnv string `yaml:"api_key_env"`
}

// APIKey resolves the provider credential from the environment.
func (p ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// ModelConfig tunes the completion model for one role.
type ModelConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// AgentsConfig tunes the agent runtime.
type AgentsConfig struct {
	WindowSize        int                    `yaml:"window_size"`
	TimeoutSeconds    int                    `yaml:"timeout_seconds"`
	QueueCapacity     int                    `yaml:"queue_capacity"`
	ValidateResponses bool                   `yaml:"validate_responses"`
	DefaultModel      ModelConfig            `yaml:"default_model"`
	Models            map[string]ModelConfig `yaml:"models"`
}

// Timeout is the per-completion deadline.
func (a AgentsConfig) Timeout() time.Duration {
	return time.Duration(a.TimeoutSeconds) * time.Second
}

// ModelFor returns the model settings for one role, falling back to the
// defaults field by field.
func (a AgentsConfig) ModelFor(role agents.AgentRole) ModelConfig {
	m, ok := a.Models[string(role)]
	if !ok {
		return a.DefaultModel
	}
	if m.Model == "" {
		m.Model = a.DefaultModel.Model
	}
	if m.Temperature == 0 {
		m.Temperature = a.DefaultModel.Temperature
	}
	if m.MaxTokens == 0 {
		m.MaxTokens = a.DefaultModel.MaxTokens
	}
	return m
}

// DatabaseConfig points at the audit store. An empty dialect disables it.
type DatabaseConfig struct {
	Dialect string `yaml:"dialect"`
	DSN     string `yaml:"dsn"`
}

// DocumentsConfig controls document ingestion.
type DocumentsConfig struct {
	Root string `yaml:"root"`
}

// Config is the whole service configuration.
type Config struct {
	LogLevel  string          `yaml:"log_level"`
	Server    ServerConfig    `yaml:"server"`
	Provider  ProviderConfig  `yaml:"provider"`
	Agents    AgentsConfig    `yaml:"agents"`
	Database  DatabaseConfig  `yaml:"database"`
	Documents DocumentsConfig `yaml:"documents"`
}

// Default returns the baked-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Port:            8080,
			MetricsPort:     9090,
			ShutdownSeconds: 10,
		},
		Provider: ProviderConfig{
			Backend:   "openai",
			APIKeyEnv: "OPENAI_API_KEY",
		},
		Agents: AgentsConfig{
			WindowSize:     10,
			TimeoutSeconds: 30,
			QueueCapacity:  32,
			DefaultModel: ModelConfig{
				Model:       "gpt-4o-mini",
				Temperature: 0.2,
				MaxTokens:   1024,
			},
		},
	}
}

// Load reads path and overlays it onto the defaults. An empty path means
// defaults only.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server port %d out of range", c.Server.Port)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("config: metrics port %d out of range", c.Server.MetricsPort)
	}
	if c.Server.Port == c.Server.MetricsPort {
		return fmt.Errorf("config: server and metrics ports collide on %d", c.Server.Port)
	}

	switch c.Provider.Backend {
	case "openai":
	case "azure":
		if c.Provider.Endpoint == "" {
			return fmt.Errorf("config: azure backend requires an endpoint")
		}
	default:
		return fmt.Errorf("config: unknown provider backend %q", c.Provider.Backend)
	}

	if c.Agents.WindowSize < 1 {
		return fmt.Errorf("config: window size %d must be at least 1", c.Agents.WindowSize)
	}
	if c.Agents.TimeoutSeconds < 1 {
		return fmt.Errorf("config: agent timeout %ds must be at least 1s", c.Agents.TimeoutSeconds)
	}
	if c.Agents.QueueCapacity < 1 {
		return fmt.Errorf("config: queue capacity %d must be at least 1", c.Agents.QueueCapacity)
	}
	for name := range c.Agents.Models {
		if _, err := agents.ParseRole(name); err != nil {
			return fmt.Errorf("config: models: %w", err)
		}
	}

	switch c.Database.Dialect {
	case "", "sqlite3", "postgres":
	default:
		return fmt.Errorf("config: unknown database dialect %q", c.Database.Dialect)
	}
	if c.Database.Dialect != "" && c.Database.DSN == "" {
		return fmt.Errorf("config: database dialect %q set without a dsn", c.Database.Dialect)
	}

	return nil
}
