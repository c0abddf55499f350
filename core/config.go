package core

import (
	"fmt"
	"strings"
	"time"
)

// Provider names accepted by Config. The mock provider is intended for tests
// and examples; it pairs with any model name.
const (
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderMock      = "mock"
)

// Default timing bounds applied by NewConfig when the caller leaves them zero.
const (
	DefaultSubmitTimeout = 30 * time.Second
	DefaultTaskTimeout   = 2 * time.Minute
	DefaultDrainTimeout  = 30 * time.Second
)

// Config holds the validated, immutable settings for one agent instance:
// identity, role, provider selection and sampling parameters, the local
// concurrency limit, execution deadlines and transport endpoints. Construct
// via NewConfig; a Config obtained any other way may violate the invariants
// the runtime depends on.
type Config struct {
	AgentID            string                   `json:"agent_id" yaml:"id"`
	Role               Role                     `json:"role" yaml:"role"`
	Provider           string                   `json:"provider" yaml:"provider"`
	Model              string                   `json:"model" yaml:"model"`
	Temperature        float64                  `json:"temperature" yaml:"temperature"`
	MaxTokens          int                      `json:"max_tokens" yaml:"max_tokens"`
	MaxConcurrentTasks int                      `json:"max_concurrent_tasks" yaml:"max_concurrent_tasks"`
	SubmitTimeout      time.Duration            `json:"submit_timeout" yaml:"submit_timeout"`
	TaskTimeout        time.Duration            `json:"task_timeout" yaml:"task_timeout"`
	DrainTimeout       time.Duration            `json:"drain_timeout" yaml:"drain_timeout"`
	BusAddr            string                   `json:"bus_addr,omitempty" yaml:"bus_addr"`
	CacheAddr          string                   `json:"cache_addr,omitempty" yaml:"cache_addr"`
	CacheTTLs          map[string]time.Duration `json:"cache_ttls,omitempty" yaml:"cache_ttls"`
}

// NewConfig validates the provided settings and returns an immutable Config.
// Zero timeouts and token budgets are replaced with defaults; everything else
// must be supplied explicitly. Validation enforces:
//   - non-empty agent id
//   - a role from the sealed role set
//   - a known provider with a consistent model selection
//   - temperature within [0, 1]
//   - a concurrency limit of at least 1
func NewConfig(cfg Config) (Config, error) {
	if strings.TrimSpace(cfg.AgentID) == "" {
		return Config{}, fmt.Errorf("config: agent id must not be empty")
	}
	if !cfg.Role.Valid() {
		return Config{}, fmt.Errorf("config: unknown role %q", cfg.Role)
	}
	if err := validateProvider(cfg.Provider, cfg.Model); err != nil {
		return Config{}, err
	}
	if cfg.Temperature < 0 || cfg.Temperature > 1 {
		return Config{}, fmt.Errorf("config: temperature %v out of range [0, 1]", cfg.Temperature)
	}
	if cfg.MaxConcurrentTasks < 1 {
		return Config{}, fmt.Errorf("config: max concurrent tasks must be >= 1, got %d", cfg.MaxConcurrentTasks)
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 1024
	}
	if cfg.SubmitTimeout <= 0 {
		cfg.SubmitTimeout = DefaultSubmitTimeout
	}
	if cfg.TaskTimeout <= 0 {
		cfg.TaskTimeout = DefaultTaskTimeout
	}
	if cfg.DrainTimeout <= 0 {
		cfg.DrainTimeout = DefaultDrainTimeout
	}
	if cfg.CacheTTLs != nil {
		ttls := make(map[string]time.Duration, len(cfg.CacheTTLs))
		for k, v := range cfg.CacheTTLs {
			if v <= 0 {
				return Config{}, fmt.Errorf("config: cache ttl for %q must be positive", k)
			}
			ttls[k] = v
		}
		cfg.CacheTTLs = ttls
	}
	return cfg, nil
}

// validateProvider checks provider/model consistency. Model prefixes follow
// the vendor naming conventions; the mock provider accepts anything.
func validateProvider(provider, model string) error {
	switch provider {
	case ProviderAnthropic:
		if model == "" || !strings.HasPrefix(model, "claude") {
			return fmt.Errorf("config: provider %s requires a claude model, got %q", provider, model)
		}
	case ProviderOpenAI:
		if model == "" || !(strings.HasPrefix(model, "gpt") || strings.HasPrefix(model, "o")) {
			return fmt.Errorf("config: provider %s requires a gpt/o-series model, got %q", provider, model)
		}
	case ProviderMock:
		// any model, including empty
	default:
		return fmt.Errorf("config: unknown provider %q", provider)
	}
	return nil
}

// CacheTTL returns the configured TTL for a cache category, or def when the
// category is absent.
func (c Config) CacheTTL(category string, def time.Duration) time.Duration {
	if ttl, ok := c.CacheTTLs[category]; ok {
		return ttl
	}
	return def
}
