package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		AgentID:            "writer-1",
		Role:               RoleContentWriter,
		Provider:           ProviderAnthropic,
		Model:              "claude-sonnet-4-20250514",
		Temperature:        0.7,
		MaxConcurrentTasks: 3,
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	cfg, err := NewConfig(validConfig())
	require.NoError(t, err)

	assert.Equal(t, DefaultSubmitTimeout, cfg.SubmitTimeout)
	assert.Equal(t, DefaultTaskTimeout, cfg.TaskTimeout)
	assert.Equal(t, DefaultDrainTimeout, cfg.DrainTimeout)
	assert.Equal(t, 1024, cfg.MaxTokens)
}

func TestNewConfig_Validation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty id", func(c *Config) { c.AgentID = "  " }, "agent id"},
		{"unknown role", func(c *Config) { c.Role = "intern" }, "unknown role"},
		{"unknown provider", func(c *Config) { c.Provider = "acme" }, "unknown provider"},
		{"anthropic wrong model", func(c *Config) { c.Model = "gpt-4o" }, "claude model"},
		{"openai wrong model", func(c *Config) {
			c.Provider = ProviderOpenAI
			c.Model = "claude-sonnet-4-20250514"
		}, "gpt/o-series"},
		{"temperature low", func(c *Config) { c.Temperature = -0.1 }, "temperature"},
		{"temperature high", func(c *Config) { c.Temperature = 1.5 }, "temperature"},
		{"zero concurrency", func(c *Config) { c.MaxConcurrentTasks = 0 }, "max concurrent tasks"},
		{"negative ttl", func(c *Config) {
			c.CacheTTLs = map[string]time.Duration{"analytics": -time.Minute}
		}, "cache ttl"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			_, err := NewConfig(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNewConfig_MockProviderAcceptsAnyModel(t *testing.T) {
	cfg := validConfig()
	cfg.Provider = ProviderMock
	cfg.Model = ""

	_, err := NewConfig(cfg)
	assert.NoError(t, err)
}

func TestConfig_CacheTTL(t *testing.T) {
	cfg := validConfig()
	cfg.CacheTTLs = map[string]time.Duration{"keyword_research": 24 * time.Hour}
	cfg, err := NewConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, 24*time.Hour, cfg.CacheTTL("keyword_research", time.Minute))
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL("analytics", 30*time.Minute))
}
