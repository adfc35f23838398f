package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "gateway.toml", `
[server]
host = "127.0.0.1"
port = 8080

[auth]
api_key = "gw-secret"

[agent]
model = "deepseek-reasoner"
api_key = "sk-upstream"
max_steps = 4
github_token = "ghp_token"

[log]
level = "debug"
format = "json"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "gw-secret", cfg.Auth.APIKey)
	assert.Equal(t, "deepseek-reasoner", cfg.Agent.Model)
	assert.Equal(t, "sk-upstream", cfg.Agent.APIKey)
	assert.Equal(t, 4, cfg.Agent.MaxSteps)
	assert.Equal(t, "ghp_token", cfg.Agent.GitHubToken)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "gateway.yaml", `
server:
  port: 9090
agent:
  api_key: sk-upstream
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, "sk-upstream", cfg.Agent.APIKey)
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, "minimal.toml", `
[agent]
api_key = "sk-upstream"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 7777, cfg.Server.Port)
	assert.Equal(t, "deepseek-chat", cfg.Agent.Model)
	assert.Equal(t, "https://api.deepseek.com/v1", cfg.Agent.BaseURL)
	assert.Equal(t, 6, cfg.Agent.MaxSteps)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Empty(t, cfg.Auth.APIKey)
}

func TestLoadUnsupportedExtension(t *testing.T) {
	path := writeConfig(t, "gateway.ini", "[server]\nport = 1\n")

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported extension")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 7777},
		Agent: AgentConfig{
			Model:    "deepseek-chat",
			APIKey:   "sk-upstream",
			BaseURL:  "https://api.deepseek.com/v1",
			MaxSteps: 6,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
	require.NoError(t, valid.Validate())

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"port too low", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"missing agent key", func(c *Config) { c.Agent.APIKey = "  " }, "agent.api_key"},
		{"empty base url", func(c *Config) { c.Agent.BaseURL = "" }, "agent.base_url"},
		{"empty model", func(c *Config) { c.Agent.Model = "" }, "agent.model"},
		{"non-positive steps", func(c *Config) { c.Agent.MaxSteps = -1 }, "agent.max_steps"},
		{"bad log level", func(c *Config) { c.Log.Level = "verbose" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, "broken.toml", `
[agent]
api_key = ""
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "agent.api_key")
}
