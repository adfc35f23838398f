package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

const (
	defaultHost     = "0.0.0.0"
	defaultPort     = 7777
	defaultModel    = "deepseek-chat"
	defaultBaseURL  = "https://api.deepseek.com/v1"
	defaultMaxSteps = 6
)

// Config represents the application configuration parsed from TOML or YAML.
// It is constructed once at startup and treated as read-only afterwards.
type Config struct {
	Server ServerConfig `toml:"server" yaml:"server"`
	Auth   AuthConfig   `toml:"auth" yaml:"auth"`
	Agent  AgentConfig  `toml:"agent" yaml:"agent"`
	Log    LogConfig    `toml:"log" yaml:"log"`
}

// ServerConfig defines listener configuration.
type ServerConfig struct {
	Host string `toml:"host" yaml:"host"`
	Port int    `toml:"port" yaml:"port"`
}

// AuthConfig holds the optional gateway API key. When empty, requests are
// not authenticated.
type AuthConfig struct {
	APIKey string `toml:"api_key" yaml:"api_key"`
}

// AgentConfig captures the upstream model and tool credentials for the agent.
type AgentConfig struct {
	Model        string `toml:"model" yaml:"model"`
	APIKey       string `toml:"api_key" yaml:"api_key"`
	BaseURL      string `toml:"base_url" yaml:"base_url"`
	SystemPrompt string `toml:"system_prompt" yaml:"system_prompt"`
	MaxSteps     int    `toml:"max_steps" yaml:"max_steps"`
	GitHubToken  string `toml:"github_token" yaml:"github_token"`
}

// LogConfig controls slog output.
type LogConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
	File   string `toml:"file" yaml:"file"`
}

// Load reads configuration from disk, applies defaults and validates the
// result. The format is chosen by file extension: .toml, .yaml or .yml.
func Load(path string) (Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return Config{}, fmt.Errorf("resolve config path: %w", err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return Config{}, fmt.Errorf("read config file %q: %w", absPath, err)
	}

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(absPath)); ext {
	case ".toml":
		if err := toml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", absPath, err)
		}
	default:
		return Config{}, fmt.Errorf("config file %q: unsupported extension %q (want .toml, .yaml or .yml)", absPath, ext)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = defaultHost
	}
	if c.Server.Port == 0 {
		c.Server.Port = defaultPort
	}
	if c.Agent.Model == "" {
		c.Agent.Model = defaultModel
	}
	if c.Agent.BaseURL == "" {
		c.Agent.BaseURL = defaultBaseURL
	}
	if c.Agent.MaxSteps == 0 {
		c.Agent.MaxSteps = defaultMaxSteps
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate performs strict sanity checks on the configuration.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be a valid TCP port, got %d", c.Server.Port)
	}

	if strings.TrimSpace(c.Agent.APIKey) == "" {
		return fmt.Errorf("agent.api_key must be provided")
	}
	if strings.TrimSpace(c.Agent.BaseURL) == "" {
		return fmt.Errorf("agent.base_url must not be empty")
	}
	if strings.TrimSpace(c.Agent.Model) == "" {
		return fmt.Errorf("agent.model must not be empty")
	}
	if c.Agent.MaxSteps <= 0 {
		return fmt.Errorf("agent.max_steps must be positive, got %d", c.Agent.MaxSteps)
	}

	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q must be one of debug, info, warn or error", c.Log.Level)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("log.format %q must be %q or %q", c.Log.Format, "text", "json")
	}

	return nil
}
