package config

import (
	"fmt"
	"os"

	"github.com/dgnsrekt/meetnotes/internal/watcher"
	"gopkg.in/yaml.v3"
)

// WatchRule describes one host and path pattern that marks a meeting page.
type WatchRule struct {
	Host string `yaml:"host"`
	Path string `yaml:"path"`
}

// WatchRulesConfig is the top-level YAML configuration for the tab watcher.
type WatchRulesConfig struct {
	Rules []WatchRule `yaml:"rules"`
}

// LoadWatchRules reads and validates a watch rules YAML file.
// Returns an os.ErrNotExist-wrapped error if the file is absent (caller
// falls back to the default rule in that case).
func LoadWatchRules(path string) (*WatchRulesConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("watch rules config: %w", err)
	}
	var cfg WatchRulesConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("watch rules config: %w", err)
	}
	if len(cfg.Rules) < 1 {
		return nil, fmt.Errorf("watch rules config: at least one rule is required")
	}
	for i, r := range cfg.Rules {
		if r.Host == "" {
			return nil, fmt.Errorf("watch rules config: rules[%d] missing host", i)
		}
	}
	return &cfg, nil
}

// Matcher compiles the rules into a watcher.Matcher.
func (c *WatchRulesConfig) Matcher() (*watcher.Matcher, error) {
	m := watcher.NewMatcher()
	for i, r := range c.Rules {
		if err := m.Add(r.Host, r.Path); err != nil {
			return nil, fmt.Errorf("watch rules config: rules[%d]: %w", i, err)
		}
	}
	return m, nil
}
