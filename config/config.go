package config

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/growmesh/growmesh/core"
)

// Defaults is the file-level block applied to every agent entry that leaves
// the corresponding field unset. Durations are Go duration strings.
type Defaults struct {
	Provider           string            `yaml:"provider"`
	Model              string            `yaml:"model"`
	Temperature        *float64          `yaml:"temperature"`
	MaxTokens          int               `yaml:"max_tokens"`
	MaxConcurrentTasks int               `yaml:"max_concurrent_tasks"`
	SubmitTimeout      string            `yaml:"submit_timeout"`
	TaskTimeout        string            `yaml:"task_timeout"`
	DrainTimeout       string            `yaml:"drain_timeout"`
	BusAddr            string            `yaml:"bus_addr"`
	CacheAddr          string            `yaml:"cache_addr"`
	CacheTTLs          map[string]string `yaml:"cache_ttls"`
}

// AgentEntry is one agent definition. Unset fields inherit from Defaults.
type AgentEntry struct {
	ID                 string            `yaml:"id"`
	Role               string            `yaml:"role"`
	Provider           string            `yaml:"provider"`
	Model              string            `yaml:"model"`
	Temperature        *float64          `yaml:"temperature"`
	MaxTokens          int               `yaml:"max_tokens"`
	MaxConcurrentTasks int               `yaml:"max_concurrent_tasks"`
	SubmitTimeout      string            `yaml:"submit_timeout"`
	TaskTimeout        string            `yaml:"task_timeout"`
	DrainTimeout       string            `yaml:"drain_timeout"`
	BusAddr            string            `yaml:"bus_addr"`
	CacheAddr          string            `yaml:"cache_addr"`
	CacheTTLs          map[string]string `yaml:"cache_ttls"`
}

// File is the full YAML document.
type File struct {
	Defaults Defaults     `yaml:"defaults"`
	Agents   []AgentEntry `yaml:"agents"`
}

// Load reads and parses a hierarchy definition from path.
func Load(path string) ([]core.Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	configs, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return configs, nil
}

// Parse decodes a hierarchy definition, merges defaults into each agent
// entry and validates every merged entry. Unknown YAML fields are rejected
// so typos fail loudly instead of silently falling back to defaults.
func Parse(data []byte) ([]core.Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if len(f.Agents) == 0 {
		return nil, fmt.Errorf("config: no agents defined")
	}

	seen := make(map[string]struct{}, len(f.Agents))
	configs := make([]core.Config, 0, len(f.Agents))
	for i, entry := range f.Agents {
		cfg, err := mergeEntry(f.Defaults, entry)
		if err != nil {
			return nil, fmt.Errorf("config: agent %d (%s): %w", i, entry.ID, err)
		}
		if _, dup := seen[cfg.AgentID]; dup {
			return nil, fmt.Errorf("config: duplicate agent id %q", cfg.AgentID)
		}
		seen[cfg.AgentID] = struct{}{}
		configs = append(configs, cfg)
	}
	return configs, nil
}

func mergeEntry(def Defaults, entry AgentEntry) (core.Config, error) {
	cfg := core.Config{
		AgentID:            entry.ID,
		Role:               core.Role(entry.Role),
		Provider:           firstNonEmpty(entry.Provider, def.Provider),
		Model:              firstNonEmpty(entry.Model, def.Model),
		MaxTokens:          firstPositive(entry.MaxTokens, def.MaxTokens),
		MaxConcurrentTasks: firstPositive(entry.MaxConcurrentTasks, def.MaxConcurrentTasks),
		BusAddr:            firstNonEmpty(entry.BusAddr, def.BusAddr),
		CacheAddr:          firstNonEmpty(entry.CacheAddr, def.CacheAddr),
	}

	switch {
	case entry.Temperature != nil:
		cfg.Temperature = *entry.Temperature
	case def.Temperature != nil:
		cfg.Temperature = *def.Temperature
	}

	var err error
	if cfg.SubmitTimeout, err = parseDuration("submit_timeout", entry.SubmitTimeout, def.SubmitTimeout); err != nil {
		return core.Config{}, err
	}
	if cfg.TaskTimeout, err = parseDuration("task_timeout", entry.TaskTimeout, def.TaskTimeout); err != nil {
		return core.Config{}, err
	}
	if cfg.DrainTimeout, err = parseDuration("drain_timeout", entry.DrainTimeout, def.DrainTimeout); err != nil {
		return core.Config{}, err
	}

	ttls := entry.CacheTTLs
	if ttls == nil {
		ttls = def.CacheTTLs
	}
	if len(ttls) > 0 {
		cfg.CacheTTLs = make(map[string]time.Duration, len(ttls))
		for category, raw := range ttls {
			d, err := time.ParseDuration(raw)
			if err != nil {
				return core.Config{}, fmt.Errorf("cache ttl %q: %w", category, err)
			}
			cfg.CacheTTLs[category] = d
		}
	}

	return core.NewConfig(cfg)
}

// parseDuration resolves an entry value falling back to the default value;
// empty strings leave the duration zero so core.NewConfig applies its own
// default.
func parseDuration(field, value, fallback string) (time.Duration, error) {
	raw := firstNonEmpty(value, fallback)
	if raw == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", field, err)
	}
	return d, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
