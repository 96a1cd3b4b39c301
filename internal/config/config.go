// Package config loads the YAML sync configuration: where the
// database lives, which ICS feeds to pull, and how sources rank
// against each other when the same event arrives from several of them.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"calstore/internal/dedup"
)

// Source describes one subscribed ICS feed.
type Source struct {
	// Name identifies the source in stored records and precedence
	// arbitration.
	Name string `yaml:"name"`
	// URL is the ICS subscription endpoint.
	URL string `yaml:"url"`
	// Priority ranks this source against others; higher wins.
	Priority int `yaml:"priority"`
}

// Config is the top-level sync configuration.
type Config struct {
	// DB overrides the database path when set.
	DB string `yaml:"db"`

	// DaysBack / DaysAhead bound recurrence expansion during sync.
	DaysBack  int `yaml:"days_back"`
	DaysAhead int `yaml:"days_ahead"`

	// SkipSameSource drops same-priority re-imports from the source
	// that already owns a record instead of rewriting identical data.
	SkipSameSource bool `yaml:"skip_same_source"`

	// Sources is the list of subscribed feeds.
	Sources []Source `yaml:"sources"`
}

// Normalize fills missing values with defaults so partially filled
// configs behave correctly.
func (c *Config) Normalize() {
	if c.DaysBack < 0 {
		c.DaysBack = 0
	}
	if c.DaysAhead <= 0 {
		c.DaysAhead = 30
	}
	if c.Sources == nil {
		c.Sources = []Source{}
	}
}

// Load reads and validates the configuration at path
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Normalize()

	for i, src := range cfg.Sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source %d: name is required", i)
		}
		if src.URL == "" {
			return nil, fmt.Errorf("source %q: url is required", src.Name)
		}
	}
	return &cfg, nil
}

// Precedence returns the source-name to priority mapping.
func (c *Config) Precedence() map[string]int {
	out := make(map[string]int, len(c.Sources))
	for _, src := range c.Sources {
		out[src.Name] = src.Priority
	}
	return out
}

// Rules builds the deduplication policy for a batch written by the
// named source.
func (c *Config) Rules(source string) dedup.Rules {
	return dedup.Rules{
		Source:         source,
		Precedence:     c.Precedence(),
		SkipSameSource: c.SkipSameSource,
	}
}
